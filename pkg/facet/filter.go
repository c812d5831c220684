package facet

import (
	"context"
	"net/url"

	"github.com/rpattn/facetview/pkg/queryset"
)

// Choice is one candidate value for a filter, annotated with the number of
// matching items.
type Choice struct {
	Title  string
	Value  string
	Count  int
	Active bool

	param string
}

// URLEncode returns the choice as a query-string fragment.
func (c Choice) URLEncode() string {
	return url.QueryEscape(c.param) + "=" + url.QueryEscape(c.Value)
}

// Filter is one facet bound to a request value. Filters are constructed
// already in their final active/inactive state; no transitions occur
// afterwards.
type Filter interface {
	Param() string
	Lookup() string
	Value() string
	Active() bool
	Field() queryset.Field
	// Title returns the human-readable filter name.
	Title() string
	// Choices enumerates possible values with usage counts, memoized per
	// instance.
	Choices(ctx context.Context) ([]Choice, error)
	// Apply restricts the queryset by the filter's current value.
	Apply(qs queryset.Queryset) queryset.Queryset
	// URLEncode returns the filter's current state as a query-string
	// fragment.
	URLEncode() string
}

// Config carries everything a filter constructor needs. QS is the queryset
// choices are counted against; it is not yet reduced by this filter itself.
type Config struct {
	Param       string
	Lookup      string
	Value       string
	Active      bool
	SortByUsage bool
	QS          queryset.Queryset
	Field       queryset.Field
}

// Constructor builds a concrete filter from its configuration.
type Constructor func(Config) Filter

type filterSpec struct {
	suitable func(queryset.Field) bool
	build    Constructor
}

var registry []filterSpec

// Register adds a filter kind to the auto-selection registry. Kinds are tried
// in registration order and the first whose suitability predicate accepts the
// field wins, so a catch-all kind must be registered last. Kinds that would
// accept every field should not be registered at all; specify them explicitly
// in a facet instead.
func Register(suitable func(queryset.Field) bool, build Constructor) {
	registry = append(registry, filterSpec{suitable: suitable, build: build})
}

func init() {
	Register(func(f queryset.Field) bool { return f.Relation != nil }, NewRelationFilter)
	Register(func(f queryset.Field) bool { return f.Kind == queryset.KindBoolean }, NewBooleanFilter)
	Register(func(queryset.Field) bool { return true }, NewAllValuesFilter)
}

// selectConstructor picks the first registered kind suitable for the field.
func selectConstructor(field queryset.Field) Constructor {
	for _, spec := range registry {
		if spec.suitable(field) {
			return spec.build
		}
	}
	return NewAllValuesFilter
}

// baseFilter carries the state shared by every filter kind.
type baseFilter struct {
	cfg Config

	choices     []Choice
	choicesDone bool
}

func (b *baseFilter) Param() string         { return b.cfg.Param }
func (b *baseFilter) Lookup() string        { return b.cfg.Lookup }
func (b *baseFilter) Value() string         { return b.cfg.Value }
func (b *baseFilter) Active() bool          { return b.cfg.Active }
func (b *baseFilter) Field() queryset.Field { return b.cfg.Field }

// Title prefers the field's verbose name, then the relation target's, then
// the raw field name.
func (b *baseFilter) Title() string {
	if b.cfg.Field.Verbose != "" {
		return b.cfg.Field.Verbose
	}
	if rel := b.cfg.Field.Relation; rel != nil {
		if rel.Verbose != "" {
			return rel.Verbose
		}
		return rel.To
	}
	return b.cfg.Field.Name
}

func (b *baseFilter) URLEncode() string {
	return url.QueryEscape(b.cfg.Param) + "=" + url.QueryEscape(b.cfg.Value)
}

func (b *baseFilter) Apply(qs queryset.Queryset) queryset.Queryset {
	return qs.Filter(queryset.Equals(b.cfg.Lookup, b.cfg.Value))
}

// memoizedChoices computes choices once per instance. Filters are
// request-scoped; this is not safe for concurrent use.
func (b *baseFilter) memoizedChoices(ctx context.Context, generate func(context.Context) ([]Choice, error)) ([]Choice, error) {
	if b.choicesDone {
		return b.choices, nil
	}
	choices, err := generate(ctx)
	if err != nil {
		return nil, err
	}
	b.choices = choices
	b.choicesDone = true
	return choices, nil
}

// newChoice marks the choice active when its value equals the filter's
// current value.
func (b *baseFilter) newChoice(title, value string, count int) Choice {
	return Choice{
		Title:  title,
		Value:  value,
		Count:  count,
		Active: b.cfg.Value != "" && b.cfg.Value == value,
		param:  b.cfg.Param,
	}
}

// ActiveChoices returns the currently selected choices of a filter.
func ActiveChoices(ctx context.Context, f Filter) ([]Choice, error) {
	choices, err := f.Choices(ctx)
	if err != nil {
		return nil, err
	}
	var active []Choice
	for _, c := range choices {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

// FirstActiveChoice returns one currently selected choice, which is usually
// enough; ok reports whether any choice is active.
func FirstActiveChoice(ctx context.Context, f Filter) (Choice, bool, error) {
	active, err := ActiveChoices(ctx, f)
	if err != nil || len(active) == 0 {
		return Choice{}, false, err
	}
	return active[0], true, nil
}
