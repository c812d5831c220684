// Package postgres implements the queryset abstraction over PostgreSQL,
// generating parameterized SQL for filtering, distinct-value counting and
// relation-choice counting.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/facetview/pkg/queryset"
)

// RelatedTable wires a relation field to its target table. Exactly one of
// ForeignKey (a column on the owning table) or JoinTable (a many-to-many join
// table) must be set.
type RelatedTable struct {
	Table         string
	KeyColumn     string
	DisplayColumn string

	ForeignKey string

	JoinTable         string
	JoinOwnerColumn   string
	JoinRelatedColumn string

	// Columns maps related field names to columns, for "relation__attr"
	// lookups and for attribute access on choice records.
	Columns map[string]string
}

// Table maps a schema onto its SQL layout.
type Table struct {
	Name          string
	KeyColumn     string
	DisplayColumn string
	Schema        *queryset.Schema
	// Columns maps field names to columns; missing entries default to the
	// field name itself.
	Columns   map[string]string
	Relations map[string]RelatedTable
}

func (t Table) column(field string) string {
	if col, ok := t.Columns[field]; ok {
		return col
	}
	return field
}

func (r RelatedTable) column(attr string) string {
	if col, ok := r.Columns[attr]; ok {
		return col
	}
	return attr
}

// Record is one row fetched from the database.
type Record struct {
	key     string
	display string
	values  map[string]any
}

func (r *Record) Key() string     { return r.key }
func (r *Record) Display() string { return r.display }

func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Queryset is a lazy query over one table. Filter, All and Intersect only
// compose predicates; SQL runs when an enumeration method is called.
type Queryset struct {
	pool  *pgxpool.Pool
	table Table
	preds []queryset.Predicate
}

// New builds an unrestricted queryset over the table.
func New(pool *pgxpool.Pool, table Table) *Queryset {
	return &Queryset{pool: pool, table: table}
}

func (q *Queryset) Schema() *queryset.Schema { return q.table.Schema }

func (q *Queryset) Filter(p queryset.Predicate) queryset.Queryset {
	preds := make([]queryset.Predicate, 0, len(q.preds)+1)
	preds = append(preds, q.preds...)
	preds = append(preds, p)
	return &Queryset{pool: q.pool, table: q.table, preds: preds}
}

func (q *Queryset) All() queryset.Queryset {
	return &Queryset{pool: q.pool, table: q.table}
}

func (q *Queryset) Intersect(other queryset.Queryset) (queryset.Queryset, error) {
	o, ok := other.(*Queryset)
	if !ok || o.table.Name != q.table.Name {
		return nil, queryset.ErrMixedSources
	}
	preds := make([]queryset.Predicate, 0, len(q.preds)+len(o.preds))
	preds = append(preds, q.preds...)
	preds = append(preds, o.preds...)
	return &Queryset{pool: q.pool, table: q.table, preds: preds}, nil
}

func (q *Queryset) Records(ctx context.Context) ([]queryset.Record, error) {
	sql, args, fields, err := q.selectSQL()
	if err != nil {
		return nil, err
	}

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.table.Name, err)
	}
	defer rows.Close()

	var records []queryset.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s row: %w", q.table.Name, err)
		}
		rec := &Record{values: map[string]any{}}
		rec.key, _ = values[0].(string)
		rec.display, _ = values[1].(string)
		for i, field := range fields {
			rec.values[field] = values[i+2]
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (q *Queryset) Count(ctx context.Context) (int, error) {
	sql, args, err := q.countSQL()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := q.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.table.Name, err)
	}
	return int(count), nil
}

func (q *Queryset) ValueCounts(ctx context.Context, field string, opts queryset.CountOptions) ([]queryset.ValueCount, error) {
	sql, args, err := q.valueCountsSQL(field, opts)
	if err != nil {
		return nil, err
	}

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count values of %s.%s: %w", q.table.Name, field, err)
	}
	defer rows.Close()

	var counts []queryset.ValueCount
	for rows.Next() {
		var value any
		var items int64
		if err := rows.Scan(&value, &items); err != nil {
			return nil, fmt.Errorf("failed to read value count row: %w", err)
		}
		counts = append(counts, queryset.ValueCount{Value: value, Count: int(items)})
	}
	return counts, rows.Err()
}

func (q *Queryset) RelationCounts(ctx context.Context, field string, opts queryset.CountOptions) ([]queryset.RelationCount, error) {
	rel, ok := q.table.Relations[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a relation on %s", queryset.ErrUnknownField, field, q.table.Name)
	}

	sql, args, attrs, err := q.relationCountsSQL(field, rel, opts)
	if err != nil {
		return nil, err
	}

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count relation %s.%s: %w", q.table.Name, field, err)
	}
	defer rows.Close()

	var counts []queryset.RelationCount
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read relation count row: %w", err)
		}
		rec := &Record{values: map[string]any{}}
		rec.key, _ = values[0].(string)
		rec.display, _ = values[1].(string)
		for i, attr := range attrs {
			rec.values[attr] = values[i+2]
		}
		items, _ := values[len(values)-1].(int64)
		counts = append(counts, queryset.RelationCount{Record: rec, Count: int(items)})
	}
	return counts, rows.Err()
}
