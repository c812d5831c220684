package facet

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rpattn/facetview/pkg/queryset"
)

// AlphabeticFilter groups values by their lowercased first character,
// aggregating counts per character. Applying it matches any value whose first
// character equals the chosen one, case-insensitively.
//
// Not registered for auto-selection; specify it explicitly in a facet.
type AlphabeticFilter struct {
	baseFilter
}

// NewAlphabeticFilter is the Constructor for AlphabeticFilter.
func NewAlphabeticFilter(cfg Config) Filter {
	return &AlphabeticFilter{baseFilter{cfg: cfg}}
}

func (f *AlphabeticFilter) Choices(ctx context.Context) ([]Choice, error) {
	return f.memoizedChoices(ctx, f.generate)
}

func (f *AlphabeticFilter) generate(ctx context.Context) ([]Choice, error) {
	counts, err := f.cfg.QS.ValueCounts(ctx, f.cfg.Lookup, queryset.CountOptions{})
	if err != nil {
		return nil, err
	}

	// Compress distinct values into per-character buckets. Choices are
	// ordered by character; usage-sorting does not apply here.
	chars := map[string]int{}
	for _, vc := range counts {
		s := queryset.ValueString(vc.Value)
		if s == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(s)
		chars[string(unicode.ToLower(r))] += vc.Count
	}

	keys := make([]string, 0, len(chars))
	for c := range chars {
		keys = append(keys, c)
	}
	sort.Strings(keys)

	choices := make([]Choice, 0, len(keys))
	for _, c := range keys {
		choices = append(choices, f.newChoice(strings.ToUpper(c), c, chars[c]))
	}
	return choices, nil
}

func (f *AlphabeticFilter) Apply(qs queryset.Queryset) queryset.Queryset {
	return qs.Filter(queryset.FirstCharFold(f.cfg.Lookup, f.cfg.Value))
}
