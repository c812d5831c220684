package facet

import (
	"log"
	"net/url"
	"time"

	"github.com/rpattn/facetview/pkg/queryset"
)

// FilterDate restricts a queryset by a date, accepting three scopes: year,
// month and day. Zero values are skipped, and month/day only apply when the
// broader scope is set.
func FilterDate(qs queryset.Queryset, field string, year, month, day int) queryset.Queryset {
	if year > 0 {
		qs = qs.Filter(queryset.Year(field, year))
		if month > 0 {
			qs = qs.Filter(queryset.Month(field, month))
			if day > 0 {
				qs = qs.Filter(queryset.Day(field, day))
			}
		}
	}
	return qs
}

// DateBound names a datetime field and a partial date. Missing month/day
// default to the start of the period for range starts and the end of the
// period for range ends.
type DateBound struct {
	Field string
	Year  int
	Month int
	Day   int
}

// FilterDateRange restricts a queryset to records between two date bounds,
// inclusive. Useful where nested date lookups are not expressible.
func FilterDateRange(qs queryset.Queryset, start, end DateBound) queryset.Queryset {
	from := boundTime(start, 1, 1)
	till := boundTime(end, 12, 31)
	qs = qs.Filter(queryset.GTE(start.Field, from))
	qs = qs.Filter(queryset.LTE(end.Field, till))
	return qs
}

func boundTime(b DateBound, defaultMonth, defaultDay int) time.Time {
	month := b.Month
	if month == 0 {
		month = defaultMonth
	}
	day := b.Day
	if day == 0 {
		day = defaultDay
	}
	return time.Date(b.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// FilterField restricts a queryset by one field when a value is given.
//
// Deprecated: use NewFilterList instead.
func FilterField(qs queryset.Queryset, field, value string) queryset.Queryset {
	log.Printf("[FACET] FilterField is deprecated, use NewFilterList instead")
	if value != "" {
		qs = qs.Filter(queryset.Equals(field, value))
	}
	return qs
}

// FilterParam restricts a queryset by one field with its value taken from the
// matching query parameter; an empty param name defaults to the field name.
//
// Deprecated: use NewFilterList instead.
func FilterParam(qs queryset.Queryset, values url.Values, field, param string) queryset.Queryset {
	log.Printf("[FACET] FilterParam is deprecated, use NewFilterList instead")
	if param == "" {
		param = field
	}
	if value := values.Get(param); value != "" {
		qs = qs.Filter(queryset.Equals(field, value))
	}
	return qs
}

// FilterParams builds a FilterList and returns its object list alongside it.
//
// Deprecated: use NewFilterList instead.
func FilterParams(values url.Values, qs queryset.Queryset, facets []Facet, opts ...Option) (queryset.Queryset, *FilterList, error) {
	log.Printf("[FACET] FilterParams is deprecated, use NewFilterList instead")
	list, err := NewFilterList(values, qs, facets, opts...)
	if err != nil {
		return nil, nil, err
	}
	objects, err := list.ObjectList()
	if err != nil {
		return nil, nil, err
	}
	return objects, list, nil
}

// CurrentFilter returns the currently active single filter, if any.
func CurrentFilter(values url.Values, qs queryset.Queryset, facets []Facet) (Filter, bool, error) {
	list, err := NewFilterList(values, qs, facets, WithSingle())
	if err != nil {
		return nil, false, err
	}
	active := list.Active()
	if len(active) == 0 {
		return nil, false, nil
	}
	return active[0], true, nil
}
