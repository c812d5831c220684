package postgres

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rpattn/facetview/pkg/queryset"
)

// argBuilder numbers query placeholders.
type argBuilder struct {
	args []any
}

func (b *argBuilder) add(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (q *Queryset) selectSQL() (string, []any, []string, error) {
	b := &argBuilder{}

	cols := []string{
		fmt.Sprintf("t.%s::text", q.table.KeyColumn),
		fmt.Sprintf("t.%s::text", q.table.DisplayColumn),
	}
	var fields []string
	for _, f := range q.table.Schema.Fields {
		if f.Relation != nil {
			// fetch the related key for FK relations so the loader layer can
			// batch-resolve them; m2m values are not selected per row
			rel, ok := q.table.Relations[f.Name]
			if !ok || rel.ForeignKey == "" {
				continue
			}
			cols = append(cols, fmt.Sprintf("t.%s::text", rel.ForeignKey))
			fields = append(fields, f.Name)
			continue
		}
		cols = append(cols, "t."+q.table.column(f.Name))
		fields = append(fields, f.Name)
	}

	where, err := q.whereClause(b)
	if err != nil {
		return "", nil, nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s t%s ORDER BY t.%s",
		strings.Join(cols, ", "), q.table.Name, where, q.table.KeyColumn)
	return sql, b.args, fields, nil
}

func (q *Queryset) countSQL() (string, []any, error) {
	b := &argBuilder{}
	where, err := q.whereClause(b)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT count(*) FROM %s t%s", q.table.Name, where), b.args, nil
}

func (q *Queryset) valueCountsSQL(field string, opts queryset.CountOptions) (string, []any, error) {
	b := &argBuilder{}
	col := "t." + q.table.column(field)

	conds, err := q.predicateConds(b)
	if err != nil {
		return "", nil, err
	}
	if len(opts.Restrict) > 0 {
		allowed := make([]string, len(opts.Restrict))
		for i, v := range opts.Restrict {
			allowed[i] = queryset.ValueString(v)
		}
		conds = append(conds, fmt.Sprintf("%s::text = ANY(%s)", col, b.add(allowed)))
	}

	order := fmt.Sprintf("%s::text ASC", col)
	if opts.SortByUsage {
		order = fmt.Sprintf("items DESC, %s::text ASC", col)
	}

	sql := fmt.Sprintf("SELECT %s, count(*) AS items FROM %s t%s GROUP BY %s ORDER BY %s",
		col, q.table.Name, whereFrom(conds), col, order)
	return sql, b.args, nil
}

func (q *Queryset) relationCountsSQL(field string, rel RelatedTable, opts queryset.CountOptions) (string, []any, []string, error) {
	b := &argBuilder{}

	attrs := make([]string, 0, len(rel.Columns))
	for attr := range rel.Columns {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	cols := []string{
		fmt.Sprintf("rel.%s::text", rel.KeyColumn),
		fmt.Sprintf("rel.%s::text", rel.DisplayColumn),
	}
	groupBy := []string{
		"rel." + rel.KeyColumn,
		"rel." + rel.DisplayColumn,
	}
	for _, attr := range attrs {
		cols = append(cols, "rel."+rel.column(attr))
		groupBy = append(groupBy, "rel."+rel.column(attr))
	}
	cols = append(cols, fmt.Sprintf("count(t.%s) AS items", q.table.KeyColumn))

	var from string
	switch {
	case rel.ForeignKey != "":
		from = fmt.Sprintf("%s rel JOIN %s t ON t.%s = rel.%s",
			rel.Table, q.table.Name, rel.ForeignKey, rel.KeyColumn)
	case rel.JoinTable != "":
		from = fmt.Sprintf("%s rel JOIN %s j ON j.%s = rel.%s JOIN %s t ON t.%s = j.%s",
			rel.Table, rel.JoinTable, rel.JoinRelatedColumn, rel.KeyColumn,
			q.table.Name, q.table.KeyColumn, rel.JoinOwnerColumn)
	default:
		return "", nil, nil, fmt.Errorf("relation %q on %s has neither a foreign key nor a join table", field, q.table.Name)
	}

	conds, err := q.predicateConds(b)
	if err != nil {
		return "", nil, nil, err
	}

	order := fmt.Sprintf("rel.%s ASC", rel.DisplayColumn)
	if opts.SortByUsage {
		order = fmt.Sprintf("items DESC, rel.%s ASC", rel.DisplayColumn)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s GROUP BY %s ORDER BY %s",
		strings.Join(cols, ", "), from, whereFrom(conds), strings.Join(groupBy, ", "), order)
	return sql, b.args, attrs, nil
}

func (q *Queryset) whereClause(b *argBuilder) (string, error) {
	conds, err := q.predicateConds(b)
	if err != nil {
		return "", err
	}
	return whereFrom(conds), nil
}

func whereFrom(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (q *Queryset) predicateConds(b *argBuilder) ([]string, error) {
	conds := make([]string, 0, len(q.preds))
	for _, p := range q.preds {
		cond, err := q.predicateSQL(b, p)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

// predicateSQL renders one predicate. Relation lookups become EXISTS
// subqueries against the related table.
func (q *Queryset) predicateSQL(b *argBuilder, p queryset.Predicate) (string, error) {
	fieldName, attr, err := queryset.SplitLookup(p.Lookup)
	if err != nil {
		return "", err
	}

	rel, isRelation := q.table.Relations[fieldName]
	if !isRelation {
		return opSQL(b, "t."+q.table.column(fieldName), p.Op, p.Value)
	}

	relCol := rel.KeyColumn
	if attr != "" && attr != "pk" {
		relCol = rel.column(attr)
	}
	cond, err := opSQL(b, "rel."+relCol, p.Op, p.Value)
	if err != nil {
		return "", err
	}

	switch {
	case rel.ForeignKey != "":
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s rel WHERE rel.%s = t.%s AND %s)",
			rel.Table, rel.KeyColumn, rel.ForeignKey, cond), nil
	case rel.JoinTable != "":
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s j JOIN %s rel ON rel.%s = j.%s WHERE j.%s = t.%s AND %s)",
			rel.JoinTable, rel.Table, rel.KeyColumn, rel.JoinRelatedColumn,
			rel.JoinOwnerColumn, q.table.KeyColumn, cond), nil
	default:
		return "", fmt.Errorf("relation %q on %s has neither a foreign key nor a join table", fieldName, q.table.Name)
	}
}

func opSQL(b *argBuilder, col string, op queryset.Op, value any) (string, error) {
	switch op {
	case queryset.OpEquals:
		return fmt.Sprintf("%s::text = %s", col, b.add(queryset.ValueString(value))), nil
	case queryset.OpFirstCharFold:
		return fmt.Sprintf("lower(left(%s::text, 1)) = %s", col, b.add(lowerFirstChar(queryset.ValueString(value)))), nil
	case queryset.OpYear:
		return fmt.Sprintf("extract(year FROM %s) = %s", col, b.add(value)), nil
	case queryset.OpMonth:
		return fmt.Sprintf("extract(month FROM %s) = %s", col, b.add(value)), nil
	case queryset.OpDay:
		return fmt.Sprintf("extract(day FROM %s) = %s", col, b.add(value)), nil
	case queryset.OpGTE:
		return fmt.Sprintf("%s >= %s", col, b.add(value)), nil
	case queryset.OpLTE:
		return fmt.Sprintf("%s <= %s", col, b.add(value)), nil
	default:
		return "", fmt.Errorf("unsupported predicate operation %q", op)
	}
}

func lowerFirstChar(s string) string {
	if s == "" {
		return s
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r))
}
