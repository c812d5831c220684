// Package memory provides an in-memory Queryset implementation. It backs the
// test suites and works for small static datasets; the evaluation semantics
// match the postgres implementation.
package memory

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rpattn/facetview/pkg/queryset"
)

// Record is one in-memory item. Relation fields hold *Record or []*Record
// values; everything else holds plain values.
type Record struct {
	ID     string
	Label  string
	Fields map[string]any
}

func (r *Record) Key() string { return r.ID }

func (r *Record) Get(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

func (r *Record) Display() string { return r.Label }

// source is shared between a queryset and everything derived from it, so that
// All can rebuild an unrestricted query over the same data.
type source struct {
	schema  *queryset.Schema
	records []*Record
}

// Queryset is a lazy in-memory query. The zero value is not usable; construct
// with New.
type Queryset struct {
	src   *source
	preds []queryset.Predicate
}

// New builds a queryset over the given records.
func New(schema *queryset.Schema, records []*Record) *Queryset {
	return &Queryset{src: &source{schema: schema, records: records}}
}

func (q *Queryset) Schema() *queryset.Schema { return q.src.schema }

func (q *Queryset) Filter(p queryset.Predicate) queryset.Queryset {
	preds := make([]queryset.Predicate, 0, len(q.preds)+1)
	preds = append(preds, q.preds...)
	preds = append(preds, p)
	return &Queryset{src: q.src, preds: preds}
}

func (q *Queryset) All() queryset.Queryset {
	return &Queryset{src: q.src}
}

func (q *Queryset) Intersect(other queryset.Queryset) (queryset.Queryset, error) {
	o, ok := other.(*Queryset)
	if !ok || o.src != q.src {
		return nil, queryset.ErrMixedSources
	}
	preds := make([]queryset.Predicate, 0, len(q.preds)+len(o.preds))
	preds = append(preds, q.preds...)
	preds = append(preds, o.preds...)
	return &Queryset{src: q.src, preds: preds}, nil
}

func (q *Queryset) Records(ctx context.Context) ([]queryset.Record, error) {
	matched, err := q.matched()
	if err != nil {
		return nil, err
	}
	records := make([]queryset.Record, len(matched))
	for i, r := range matched {
		records[i] = r
	}
	return records, nil
}

func (q *Queryset) Count(ctx context.Context) (int, error) {
	matched, err := q.matched()
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (q *Queryset) ValueCounts(ctx context.Context, field string, opts queryset.CountOptions) ([]queryset.ValueCount, error) {
	matched, err := q.matched()
	if err != nil {
		return nil, err
	}

	allowed := map[string]bool{}
	for _, v := range opts.Restrict {
		allowed[queryset.ValueString(v)] = true
	}

	counts := map[string]*queryset.ValueCount{}
	var order []string
	for _, rec := range matched {
		raw, ok := rec.Get(field)
		if !ok {
			continue
		}
		key := queryset.ValueString(raw)
		if len(opts.Restrict) > 0 && !allowed[key] {
			continue
		}
		if vc, ok := counts[key]; ok {
			vc.Count++
			continue
		}
		counts[key] = &queryset.ValueCount{Value: raw, Count: 1}
		order = append(order, key)
	}

	sort.Strings(order)
	result := make([]queryset.ValueCount, len(order))
	for i, key := range order {
		result[i] = *counts[key]
	}
	if opts.SortByUsage {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Count > result[j].Count
		})
	}
	return result, nil
}

func (q *Queryset) RelationCounts(ctx context.Context, field string, opts queryset.CountOptions) ([]queryset.RelationCount, error) {
	matched, err := q.matched()
	if err != nil {
		return nil, err
	}

	counts := map[string]*queryset.RelationCount{}
	var order []string
	for _, rec := range matched {
		raw, ok := rec.Get(field)
		if !ok {
			continue
		}
		for _, rel := range relatedRecords(raw) {
			if rc, ok := counts[rel.Key()]; ok {
				rc.Count++
				continue
			}
			counts[rel.Key()] = &queryset.RelationCount{Record: rel, Count: 1}
			order = append(order, rel.Key())
		}
	}

	result := make([]queryset.RelationCount, len(order))
	for i, key := range order {
		result[i] = *counts[key]
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Record.Display() < result[j].Record.Display()
	})
	if opts.SortByUsage {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Count > result[j].Count
		})
	}
	return result, nil
}

func (q *Queryset) matched() ([]*Record, error) {
	var out []*Record
	for _, rec := range q.src.records {
		ok := true
		for _, p := range q.preds {
			match, err := q.matches(rec, p)
			if err != nil {
				return nil, err
			}
			if !match {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// matches evaluates one predicate against one record. Relation fields match
// when any referenced record satisfies the predicate.
func (q *Queryset) matches(rec *Record, p queryset.Predicate) (bool, error) {
	fieldName, attr, err := queryset.SplitLookup(p.Lookup)
	if err != nil {
		return false, err
	}

	raw, ok := rec.Get(fieldName)
	if !ok {
		return false, nil
	}

	var candidates []any
	if related := relatedRecords(raw); len(related) > 0 {
		for _, rel := range related {
			candidates = append(candidates, relatedValue(rel, attr))
		}
	} else {
		candidates = append(candidates, raw)
	}

	for _, v := range candidates {
		if evaluate(p.Op, v, p.Value) {
			return true, nil
		}
	}
	return false, nil
}

// relatedRecords normalizes a relation field value to a record slice; it
// returns nil for non-relation values.
func relatedRecords(raw any) []queryset.Record {
	switch t := raw.(type) {
	case *Record:
		if t == nil {
			return nil
		}
		return []queryset.Record{t}
	case []*Record:
		out := make([]queryset.Record, 0, len(t))
		for _, r := range t {
			if r != nil {
				out = append(out, r)
			}
		}
		return out
	default:
		return nil
	}
}

// relatedValue extracts the comparison value from a related record: the key
// by default, or a named attribute for "field__attr" lookups.
func relatedValue(rel queryset.Record, attr string) any {
	if attr == "" || attr == "pk" {
		return rel.Key()
	}
	if v, ok := rel.Get(attr); ok {
		return v
	}
	return nil
}

func evaluate(op queryset.Op, value, want any) bool {
	switch op {
	case queryset.OpEquals:
		return queryset.ValueString(value) == queryset.ValueString(want)
	case queryset.OpFirstCharFold:
		return firstCharFold(queryset.ValueString(value), queryset.ValueString(want))
	case queryset.OpYear:
		t, ok := value.(time.Time)
		return ok && queryset.ValueString(t.Year()) == queryset.ValueString(want)
	case queryset.OpMonth:
		t, ok := value.(time.Time)
		return ok && queryset.ValueString(int(t.Month())) == queryset.ValueString(want)
	case queryset.OpDay:
		t, ok := value.(time.Time)
		return ok && queryset.ValueString(t.Day()) == queryset.ValueString(want)
	case queryset.OpGTE:
		if tv, tw, ok := timePair(value, want); ok {
			return !tv.Before(tw)
		}
		return queryset.ValueString(value) >= queryset.ValueString(want)
	case queryset.OpLTE:
		if tv, tw, ok := timePair(value, want); ok {
			return !tv.After(tw)
		}
		return queryset.ValueString(value) <= queryset.ValueString(want)
	default:
		return false
	}
}

func timePair(a, b any) (time.Time, time.Time, bool) {
	ta, ok := a.(time.Time)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	tb, ok := b.(time.Time)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return ta, tb, true
}

func firstCharFold(value, want string) bool {
	if value == "" || want == "" {
		return false
	}
	v, _ := utf8.DecodeRuneInString(value)
	w, _ := utf8.DecodeRuneInString(strings.ToLower(want))
	return unicode.ToLower(v) == w
}
