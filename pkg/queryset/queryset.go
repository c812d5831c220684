// Package queryset defines the lazy, composable query abstraction the facet
// layer is built on, together with the field metadata it inspects when
// auto-selecting filters.
package queryset

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownField is returned when a lookup path does not resolve to a
	// schema field.
	ErrUnknownField = errors.New("unknown field")
	// ErrBadLookup is returned for lookup paths with more than two segments.
	ErrBadLookup = errors.New("lookup must contain no more than two parts")
	// ErrMixedSources is returned when two querysets over different sources
	// are intersected.
	ErrMixedSources = errors.New("cannot intersect querysets over different sources")
)

// Kind identifies a field's value type.
type Kind string

const (
	KindText     Kind = "text"
	KindInteger  Kind = "integer"
	KindBoolean  Kind = "boolean"
	KindDateTime Kind = "datetime"
	KindRelation Kind = "relation"
)

// ChoiceDef is one entry of a field's explicit choice enumeration.
type ChoiceDef struct {
	Value any
	Label string
}

// Relation describes a field referencing another schema.
type Relation struct {
	To      string // target schema name
	Many    bool   // true for many-to-many style references
	Verbose string // human-readable target name, used as a title fallback
}

// Field holds the metadata the filter layer inspects.
type Field struct {
	Name     string
	Kind     Kind
	Verbose  string
	Choices  []ChoiceDef
	Relation *Relation
}

// Schema describes one queryable entity type.
type Schema struct {
	Name         string
	Verbose      string
	KeyField     string
	DisplayField string
	Fields       []Field
}

// Field returns the named field, if declared.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SplitLookup splits a lookup path into its field name and optional related
// attribute. Paths with more than two segments are rejected.
func SplitLookup(lookup string) (field, attr string, err error) {
	parts := strings.Split(lookup, "__")
	switch len(parts) {
	case 1:
		return parts[0], "", nil
	case 2:
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("%w (got %q)", ErrBadLookup, lookup)
	}
}

// Op enumerates the supported predicate operations.
type Op string

const (
	OpEquals        Op = "eq"
	OpFirstCharFold Op = "first_char_fold"
	OpYear          Op = "year"
	OpMonth         Op = "month"
	OpDay           Op = "day"
	OpGTE           Op = "gte"
	OpLTE           Op = "lte"
)

// Predicate is a single restriction on a queryset. Lookup may traverse one
// relation hop using the "field__attr" form.
type Predicate struct {
	Lookup string
	Op     Op
	Value  any
}

// Equals matches records whose lookup value equals the given value, compared
// in canonical string form.
func Equals(lookup string, value any) Predicate {
	return Predicate{Lookup: lookup, Op: OpEquals, Value: value}
}

// FirstCharFold matches records whose lookup value starts with the given
// character, case-insensitively.
func FirstCharFold(lookup string, char string) Predicate {
	return Predicate{Lookup: lookup, Op: OpFirstCharFold, Value: char}
}

// Year matches records whose datetime lookup falls in the given year.
func Year(lookup string, year int) Predicate {
	return Predicate{Lookup: lookup, Op: OpYear, Value: year}
}

// Month matches records whose datetime lookup falls in the given month.
func Month(lookup string, month int) Predicate {
	return Predicate{Lookup: lookup, Op: OpMonth, Value: month}
}

// Day matches records whose datetime lookup falls on the given day of month.
func Day(lookup string, day int) Predicate {
	return Predicate{Lookup: lookup, Op: OpDay, Value: day}
}

// GTE matches records whose lookup value is greater than or equal to value.
func GTE(lookup string, value any) Predicate {
	return Predicate{Lookup: lookup, Op: OpGTE, Value: value}
}

// LTE matches records whose lookup value is less than or equal to value.
func LTE(lookup string, value any) Predicate {
	return Predicate{Lookup: lookup, Op: OpLTE, Value: value}
}

// ValueCount pairs a distinct field value with its usage count.
type ValueCount struct {
	Value any
	Count int
}

// RelationCount pairs a related record with the number of items referencing it.
type RelationCount struct {
	Record Record
	Count  int
}

// CountOptions tunes choice enumeration.
type CountOptions struct {
	// SortByUsage orders results by count descending (ties broken by value).
	SortByUsage bool
	// Restrict, when non-empty, limits enumeration to the given values,
	// compared in canonical string form.
	Restrict []any
}

// Record is one persisted item yielded by a queryset.
type Record interface {
	// Key returns the record's primary key in canonical string form.
	Key() string
	// Get returns the named field's value.
	Get(name string) (any, bool)
	// Display returns a human-readable label for the record.
	Display() string
}

// Queryset is a lazy query over one entity type. Filter, All and Intersect
// only compose; nothing touches the underlying source until an enumeration
// method is called with a context.
type Queryset interface {
	Schema() *Schema

	// Filter returns a new queryset additionally restricted by the predicate.
	Filter(p Predicate) Queryset
	// All returns a fresh, unrestricted queryset over the same source.
	All() Queryset
	// Intersect returns a queryset matching both operands. Both must be
	// built over the same source.
	Intersect(other Queryset) (Queryset, error)

	Records(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
	// ValueCounts enumerates distinct values of a field with usage counts.
	ValueCounts(ctx context.Context, field string, opts CountOptions) ([]ValueCount, error)
	// RelationCounts enumerates related records referenced from this
	// queryset, each with the number of referencing items.
	RelationCounts(ctx context.Context, field string, opts CountOptions) ([]RelationCount, error)
}

// ValueString renders a value in its canonical string form, the form used for
// query parameters, choice values and equality comparisons throughout the
// filter layer.
func ValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	case Record:
		return t.Key()
	default:
		return fmt.Sprint(t)
	}
}
