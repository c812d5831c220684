package queryset

import (
	"fmt"
	"sync"
)

// FieldCache memoizes lookup-path resolution per schema. It is purely an
// optimization: entries are write-once and the cache carries no correctness
// invariant if cleared or duplicated. Safe for concurrent use.
type FieldCache struct {
	entries sync.Map // map[string]Field, keyed by schema name + lookup
}

// NewFieldCache returns an empty cache.
func NewFieldCache() *FieldCache {
	return &FieldCache{}
}

// Resolve returns the field addressed by the first segment of the lookup
// path, consulting the cache first.
func (c *FieldCache) Resolve(schema *Schema, lookup string) (Field, error) {
	key := schema.Name + "\x00" + lookup
	if v, ok := c.entries.Load(key); ok {
		return v.(Field), nil
	}

	name, _, err := SplitLookup(lookup)
	if err != nil {
		return Field{}, err
	}
	field, ok := schema.Field(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: %q on schema %q", ErrUnknownField, name, schema.Name)
	}

	c.entries.Store(key, field)
	return field, nil
}
