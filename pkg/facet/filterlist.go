package facet

import (
	"net/url"
	"strings"

	"github.com/rpattn/facetview/pkg/queryset"
)

// CountScope selects which queryset a filter's choice counts are computed
// against. The original behavior counts each filter independently against the
// caller's base queryset; the alternative additionally applies every other
// active filter's restriction.
type CountScope int

const (
	// CountScopeIndependent counts each filter's choices against the base
	// queryset only.
	CountScopeIndependent CountScope = iota
	// CountScopeIntersection counts each filter's choices against the base
	// queryset reduced by all other active filters.
	CountScopeIntersection
)

type listOptions struct {
	single      bool
	sortByUsage bool
	scope       CountScope
	cache       *queryset.FieldCache
}

// Option configures a FilterList.
type Option func(*listOptions)

// WithSingle marks only the first facet whose parameter is present as active;
// later facets stay inactive even when their parameters are also present.
func WithSingle() Option {
	return func(o *listOptions) { o.single = true }
}

// WithSortByUsage toggles ordering choices by usage count (on by default).
func WithSortByUsage(sort bool) Option {
	return func(o *listOptions) { o.sortByUsage = sort }
}

// WithCountScope sets the choice-counting policy.
func WithCountScope(scope CountScope) Option {
	return func(o *listOptions) { o.scope = scope }
}

// WithFieldCache supplies an explicitly owned field-resolution cache. When
// omitted a package-level cache is shared.
func WithFieldCache(cache *queryset.FieldCache) Option {
	return func(o *listOptions) { o.cache = cache }
}

var defaultFieldCache = queryset.NewFieldCache()

// FilterList holds one filter per facet, in declaration order, plus the base
// queryset they were derived from. Instances are request-scoped; the derived
// properties are computed once and are not safe for concurrent use.
type FilterList struct {
	filters []Filter
	base    queryset.Queryset
	single  bool

	active     []Filter
	activeDone bool
	urlencode  *string
	objectList queryset.Queryset
	cleanQuery queryset.Queryset
}

// NewFilterList builds one filter per facet, reading each filter's current
// value from the matching query parameter. An empty parameter counts as
// absent. A lookup that does not resolve to a schema field is fatal.
func NewFilterList(values url.Values, base queryset.Queryset, facets []Facet, opts ...Option) (*FilterList, error) {
	options := listOptions{sortByUsage: true, cache: defaultFieldCache}
	for _, opt := range opts {
		opt(&options)
	}

	schema := base.Schema()

	type pending struct {
		cfg  Config
		ctor Constructor
	}
	pendings := make([]pending, 0, len(facets))

	singleTriggered := false
	for _, fc := range facets {
		field, err := options.cache.Resolve(schema, fc.Lookup)
		if err != nil {
			return nil, err
		}

		value := values.Get(fc.param())
		active := false
		if value != "" && !singleTriggered {
			if options.single {
				singleTriggered = true
			}
			active = true
		}

		ctor := fc.New
		if ctor == nil {
			ctor = selectConstructor(field)
		}
		pendings = append(pendings, pending{
			cfg: Config{
				Param:       fc.param(),
				Lookup:      fc.Lookup,
				Value:       value,
				Active:      active,
				SortByUsage: options.sortByUsage,
				QS:          base,
				Field:       field,
			},
			ctor: ctor,
		})
	}

	filters := make([]Filter, len(pendings))
	for i, p := range pendings {
		filters[i] = p.ctor(p.cfg)
	}

	if options.scope == CountScopeIntersection {
		// Rebuild each filter's counting queryset with every *other* active
		// filter's restriction applied.
		for i, p := range pendings {
			qs := base
			for j, other := range filters {
				if j != i && other.Active() {
					qs = other.Apply(qs)
				}
			}
			cfg := p.cfg
			cfg.QS = qs
			filters[i] = p.ctor(cfg)
		}
	}

	return &FilterList{
		filters: filters,
		base:    base,
		single:  options.single,
	}, nil
}

// Filters returns all filters in facet declaration order.
func (l *FilterList) Filters() []Filter { return l.filters }

// Len returns the number of filters.
func (l *FilterList) Len() int { return len(l.filters) }

// Active returns the currently active filters; at most one in single mode.
func (l *FilterList) Active() []Filter {
	if l.activeDone {
		return l.active
	}
	for _, f := range l.filters {
		if f.Active() {
			l.active = append(l.active, f)
			if l.single {
				break
			}
		}
	}
	l.activeDone = true
	return l.active
}

// URLEncode encodes the active filters as a query string, parameters in facet
// declaration order, suitable for round-tripping into a new request.
func (l *FilterList) URLEncode() string {
	if l.urlencode != nil {
		return *l.urlencode
	}
	parts := make([]string, 0, len(l.Active()))
	for _, f := range l.Active() {
		parts = append(parts, f.URLEncode())
	}
	encoded := strings.Join(parts, "&")
	l.urlencode = &encoded
	return encoded
}

// CleanQuery returns a queryset built from scratch with only the active
// filters applied, without the base queryset's own restriction. Useful for
// auxiliary statistics unaffected by the caller's predefined restriction.
func (l *FilterList) CleanQuery() queryset.Queryset {
	if l.cleanQuery != nil {
		return l.cleanQuery
	}
	q := l.base.All()
	for _, f := range l.Active() {
		q = f.Apply(q)
	}
	l.cleanQuery = q
	return q
}

// ObjectList returns the base queryset intersected with CleanQuery: the
// caller's predefined restriction plus every active filter's restriction,
// each filter having been applied to a fresh query over the same source.
func (l *FilterList) ObjectList() (queryset.Queryset, error) {
	if l.objectList != nil {
		return l.objectList, nil
	}
	q, err := l.base.Intersect(l.CleanQuery())
	if err != nil {
		return nil, err
	}
	l.objectList = q
	return q, nil
}
