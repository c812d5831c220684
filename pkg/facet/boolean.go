package facet

import (
	"context"

	"github.com/rpattn/facetview/pkg/queryset"
)

// BooleanFilter filters by a boolean field. It emits at most two choices,
// yes/no; a boolean value absent from the data yields no choice since
// iteration is driven by the distinct values actually present.
type BooleanFilter struct {
	baseFilter
}

// NewBooleanFilter is the Constructor for BooleanFilter.
func NewBooleanFilter(cfg Config) Filter {
	return &BooleanFilter{baseFilter{cfg: cfg}}
}

func (f *BooleanFilter) Choices(ctx context.Context) ([]Choice, error) {
	return f.memoizedChoices(ctx, f.generate)
}

func (f *BooleanFilter) generate(ctx context.Context) ([]Choice, error) {
	counts, err := f.cfg.QS.ValueCounts(ctx, f.cfg.Lookup, queryset.CountOptions{
		SortByUsage: f.cfg.SortByUsage,
	})
	if err != nil {
		return nil, err
	}

	pairs := []struct {
		value string
		title string
	}{
		{"true", "yes"},
		{"false", "no"},
	}

	var choices []Choice
	for _, pair := range pairs {
		for _, vc := range counts {
			if queryset.ValueString(vc.Value) == pair.value {
				choices = append(choices, f.newChoice(pair.title, pair.value, vc.Count))
			}
		}
	}
	return choices, nil
}
