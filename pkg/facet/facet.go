// Package facet implements query-string-driven faceted filtering over a
// queryset: one Filter per facet, auto-selected by field type, each able to
// restrict the queryset and to enumerate its choices with usage counts.
package facet

// Facet describes one filterable field: the lookup path into the schema, the
// query parameter it is addressed by, and an optional explicit filter kind.
type Facet struct {
	// Lookup identifies the field, optionally traversing one relation hop
	// ("author", "author__name", "categories__slug").
	Lookup string
	// Param is the query parameter name; defaults to Lookup.
	Param string
	// New forces a concrete filter kind, bypassing auto-selection.
	New Constructor
}

// NewFacet builds a facet addressed by a parameter of the same name as its
// lookup.
func NewFacet(lookup string) Facet {
	return Facet{Lookup: lookup}
}

// WithParam sets the query parameter name.
func (f Facet) WithParam(param string) Facet {
	f.Param = param
	return f
}

// WithKind forces a concrete filter constructor.
func (f Facet) WithKind(ctor Constructor) Facet {
	f.New = ctor
	return f
}

func (f Facet) param() string {
	if f.Param != "" {
		return f.Param
	}
	return f.Lookup
}
