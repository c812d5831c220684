package facet

import (
	"context"

	"github.com/rpattn/facetview/pkg/queryset"
)

// AllValuesFilter is the catch-all kind: every distinct observed value with
// its count. If the field declares an explicit choice set, enumeration is
// restricted to those values and their labels are used as titles.
type AllValuesFilter struct {
	baseFilter
}

// NewAllValuesFilter is the Constructor for AllValuesFilter.
func NewAllValuesFilter(cfg Config) Filter {
	return &AllValuesFilter{baseFilter{cfg: cfg}}
}

func (f *AllValuesFilter) Choices(ctx context.Context) ([]Choice, error) {
	return f.memoizedChoices(ctx, f.generate)
}

func (f *AllValuesFilter) generate(ctx context.Context) ([]Choice, error) {
	opts := queryset.CountOptions{SortByUsage: f.cfg.SortByUsage}
	if len(f.cfg.Field.Choices) > 0 {
		for _, def := range f.cfg.Field.Choices {
			opts.Restrict = append(opts.Restrict, def.Value)
		}
	}

	counts, err := f.cfg.QS.ValueCounts(ctx, f.cfg.Lookup, opts)
	if err != nil {
		return nil, err
	}

	choices := make([]Choice, 0, len(counts))
	for _, vc := range counts {
		value := queryset.ValueString(vc.Value)
		choices = append(choices, f.newChoice(f.title(value), value, vc.Count))
	}
	return choices, nil
}

// title prefers the explicit choice label, falling back to the raw value.
func (f *AllValuesFilter) title(value string) string {
	for _, def := range f.cfg.Field.Choices {
		if queryset.ValueString(def.Value) == value && def.Label != "" {
			return def.Label
		}
	}
	return value
}
