package facet

import (
	"context"

	"github.com/rpattn/facetview/pkg/queryset"
)

// RelationFilter filters by a field referencing another entity. Choices are
// the related records referenced from the current queryset, counted by
// referencing items. An extended "relation__attr" lookup substitutes the
// related attribute for the related key as the choice value.
type RelationFilter struct {
	baseFilter
}

// NewRelationFilter is the Constructor for RelationFilter.
func NewRelationFilter(cfg Config) Filter {
	return &RelationFilter{baseFilter{cfg: cfg}}
}

func (f *RelationFilter) Choices(ctx context.Context) ([]Choice, error) {
	return f.memoizedChoices(ctx, f.generate)
}

func (f *RelationFilter) generate(ctx context.Context) ([]Choice, error) {
	fieldName, attr, err := queryset.SplitLookup(f.cfg.Lookup)
	if err != nil {
		return nil, err
	}

	counts, err := f.cfg.QS.RelationCounts(ctx, fieldName, queryset.CountOptions{
		SortByUsage: f.cfg.SortByUsage,
	})
	if err != nil {
		return nil, err
	}

	choices := make([]Choice, 0, len(counts))
	for _, rc := range counts {
		value := rc.Record.Key()
		if attr != "" && attr != "pk" {
			v, ok := rc.Record.Get(attr)
			if !ok {
				continue
			}
			value = queryset.ValueString(v)
		}
		choices = append(choices, f.newChoice(rc.Record.Display(), value, rc.Count))
	}
	return choices, nil
}
