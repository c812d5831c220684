package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/rpattn/facetview/pkg/queryset"
)

func storyTable() Table {
	schema := &queryset.Schema{
		Name:         "stories",
		KeyField:     "id",
		DisplayField: "title",
		Fields: []queryset.Field{
			{Name: "title", Kind: queryset.KindText},
			{Name: "status", Kind: queryset.KindText},
			{Name: "paid", Kind: queryset.KindBoolean},
			{Name: "author", Kind: queryset.KindRelation, Relation: &queryset.Relation{To: "authors"}},
			{Name: "categories", Kind: queryset.KindRelation, Relation: &queryset.Relation{To: "categories", Many: true}},
		},
	}
	return Table{
		Name:          "stories",
		KeyColumn:     "id",
		DisplayColumn: "title",
		Schema:        schema,
		Relations: map[string]RelatedTable{
			"author": {
				Table:         "authors",
				KeyColumn:     "id",
				DisplayColumn: "name",
				ForeignKey:    "author_id",
				Columns:       map[string]string{"name": "name"},
			},
			"categories": {
				Table:             "categories",
				KeyColumn:         "id",
				DisplayColumn:     "title",
				JoinTable:         "story_categories",
				JoinOwnerColumn:   "story_id",
				JoinRelatedColumn: "category_id",
				Columns:           map[string]string{"title": "title", "slug": "slug"},
			},
		},
	}
}

func storyQueryset() *Queryset {
	return New(nil, storyTable())
}

func TestSelectSQL(t *testing.T) {
	qs := storyQueryset()

	sql, args, fields, err := qs.selectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT t.id::text, t.title::text, t.title, t.status, t.paid, t.author_id::text " +
		"FROM stories t ORDER BY t.id"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %q\nwant %q", sql, want)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
	// m2m fields are not selected per row
	if len(fields) != 4 || fields[3] != "author" {
		t.Fatalf("unexpected field order: %v", fields)
	}
}

func TestSelectSQLWithPredicates(t *testing.T) {
	qs := storyQueryset().
		Filter(queryset.Equals("status", "pub")).
		Filter(queryset.Equals("paid", true)).(*Queryset)

	sql, args, _, err := qs.selectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "WHERE t.status::text = $1 AND t.paid::text = $2") {
		t.Fatalf("unexpected sql: %q", sql)
	}
	if len(args) != 2 || args[0] != "pub" || args[1] != "true" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCountSQL(t *testing.T) {
	qs := storyQueryset().Filter(queryset.Equals("status", "draft")).(*Queryset)

	sql, args, err := qs.countSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql != "SELECT count(*) FROM stories t WHERE t.status::text = $1" {
		t.Fatalf("unexpected sql: %q", sql)
	}
	if len(args) != 1 || args[0] != "draft" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestValueCountsSQL(t *testing.T) {
	qs := storyQueryset()

	sql, args, err := qs.valueCountsSQL("status", queryset.CountOptions{SortByUsage: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT t.status, count(*) AS items FROM stories t " +
		"GROUP BY t.status ORDER BY items DESC, t.status::text ASC"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %q\nwant %q", sql, want)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestValueCountsSQLRestrict(t *testing.T) {
	qs := storyQueryset()

	sql, args, err := qs.valueCountsSQL("status", queryset.CountOptions{
		Restrict: []any{"draft", "pub"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "WHERE t.status::text = ANY($1)") {
		t.Fatalf("unexpected sql: %q", sql)
	}
	if !strings.HasSuffix(sql, "ORDER BY t.status::text ASC") {
		t.Fatalf("unexpected order clause: %q", sql)
	}
	allowed, ok := args[0].([]string)
	if !ok || len(allowed) != 2 || allowed[0] != "draft" || allowed[1] != "pub" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestRelationCountsSQLForeignKey(t *testing.T) {
	qs := storyQueryset().Filter(queryset.Equals("status", "pub")).(*Queryset)

	sql, args, attrs, err := qs.relationCountsSQL("author", qs.table.Relations["author"], queryset.CountOptions{SortByUsage: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT rel.id::text, rel.name::text, rel.name, count(t.id) AS items " +
		"FROM authors rel JOIN stories t ON t.author_id = rel.id " +
		"WHERE t.status::text = $1 " +
		"GROUP BY rel.id, rel.name, rel.name " +
		"ORDER BY items DESC, rel.name ASC"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %q\nwant %q", sql, want)
	}
	if len(args) != 1 || args[0] != "pub" {
		t.Fatalf("unexpected args: %v", args)
	}
	if len(attrs) != 1 || attrs[0] != "name" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
}

func TestRelationCountsSQLJoinTable(t *testing.T) {
	qs := storyQueryset()

	sql, _, attrs, err := qs.relationCountsSQL("categories", qs.table.Relations["categories"], queryset.CountOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantFrom := "FROM categories rel " +
		"JOIN story_categories j ON j.category_id = rel.id " +
		"JOIN stories t ON t.id = j.story_id"
	if !strings.Contains(sql, wantFrom) {
		t.Fatalf("unexpected sql: %q", sql)
	}
	if !strings.HasSuffix(sql, "ORDER BY rel.title ASC") {
		t.Fatalf("unexpected order clause: %q", sql)
	}
	// attrs are sorted so row values can be mapped deterministically
	if len(attrs) != 2 || attrs[0] != "slug" || attrs[1] != "title" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
}

func TestPredicateSQLRelationExists(t *testing.T) {
	qs := storyQueryset()
	b := &argBuilder{}

	cond, err := qs.predicateSQL(b, queryset.Equals("author", "a1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "EXISTS (SELECT 1 FROM authors rel WHERE rel.id = t.author_id AND rel.id::text = $1)"
	if cond != want {
		t.Fatalf("unexpected condition:\n got %q\nwant %q", cond, want)
	}

	cond, err = qs.predicateSQL(b, queryset.Equals("categories__slug", "news"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = "EXISTS (SELECT 1 FROM story_categories j JOIN categories rel ON rel.id = j.category_id " +
		"WHERE j.story_id = t.id AND rel.slug::text = $2)"
	if cond != want {
		t.Fatalf("unexpected condition:\n got %q\nwant %q", cond, want)
	}

	if len(b.args) != 2 || b.args[0] != "a1" || b.args[1] != "news" {
		t.Fatalf("unexpected args: %v", b.args)
	}
}

func TestPredicateSQLBadLookup(t *testing.T) {
	qs := storyQueryset().Filter(queryset.Equals("a__b__c", "x")).(*Queryset)
	if _, _, _, err := qs.selectSQL(); err == nil {
		t.Fatal("expected an error for a three-segment lookup")
	}
}

func TestOpSQL(t *testing.T) {
	cases := []struct {
		name string
		col  string
		pred queryset.Predicate
		want string
		arg  any
	}{
		{"equals folds to text", "t.title", queryset.Equals("title", 5), "t.title::text = $1", "5"},
		{"first char fold lowers in go", "t.title", queryset.FirstCharFold("title", "J"), "lower(left(t.title::text, 1)) = $1", "j"},
		{"year", "t.published", queryset.Year("published", 2007), "extract(year FROM t.published) = $1", 2007},
		{"month", "t.published", queryset.Month("published", 5), "extract(month FROM t.published) = $1", 5},
		{"day", "t.published", queryset.Day("published", 21), "extract(day FROM t.published) = $1", 21},
	}
	for _, tc := range cases {
		b := &argBuilder{}
		got, err := opSQL(b, tc.col, tc.pred.Op, tc.pred.Value)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
		if b.args[0] != tc.arg {
			t.Fatalf("%s: expected arg %v, got %v", tc.name, tc.arg, b.args[0])
		}
	}

	b := &argBuilder{}
	from := time.Date(2007, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := opSQL(b, "t.published", queryset.OpGTE, from)
	if err != nil || got != "t.published >= $1" {
		t.Fatalf("unexpected gte: %q %v", got, err)
	}
	if b.args[0] != from {
		t.Fatalf("expected the time passed through, got %v", b.args[0])
	}
}

func TestIntersectRequiresSameTable(t *testing.T) {
	stories := storyQueryset()

	otherTable := storyTable()
	otherTable.Name = "drafts"
	other := New(nil, otherTable)

	if _, err := stories.Intersect(other); err == nil {
		t.Fatal("expected an error intersecting querysets over different tables")
	}

	same, err := stories.Filter(queryset.Equals("status", "pub")).Intersect(stories.Filter(queryset.Equals("paid", true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(same.(*Queryset).preds) != 2 {
		t.Fatalf("expected combined predicates, got %+v", same.(*Queryset).preds)
	}
}
