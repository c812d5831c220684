package queryset

import (
	"errors"
	"testing"
	"time"
)

func TestValueString(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "pub", "pub"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"float", 1.5, "1.5"},
		{"float no trailing zeros", 2.0, "2"},
		{"time", time.Date(2007, 5, 21, 12, 30, 0, 0, time.UTC), "2007-05-21T12:30:00Z"},
	}
	for _, tc := range cases {
		if got := ValueString(tc.in); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestSplitLookup(t *testing.T) {
	field, attr, err := SplitLookup("author")
	if err != nil || field != "author" || attr != "" {
		t.Fatalf("unexpected result: %q %q %v", field, attr, err)
	}

	field, attr, err = SplitLookup("author__name")
	if err != nil || field != "author" || attr != "name" {
		t.Fatalf("unexpected result: %q %q %v", field, attr, err)
	}

	_, _, err = SplitLookup("author__name__contains")
	if !errors.Is(err, ErrBadLookup) {
		t.Fatalf("expected ErrBadLookup, got %v", err)
	}
}

func TestFieldCacheResolve(t *testing.T) {
	schema := &Schema{
		Name: "stories",
		Fields: []Field{
			{Name: "status", Kind: KindText},
			{Name: "author", Kind: KindRelation, Relation: &Relation{To: "authors"}},
		},
	}
	cache := NewFieldCache()

	field, err := cache.Resolve(schema, "author__name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field.Name != "author" || field.Relation == nil {
		t.Fatalf("expected the author relation field, got %+v", field)
	}

	// second resolution is served from the cache
	again, err := cache.Resolve(schema, "author__name")
	if err != nil || again.Name != field.Name {
		t.Fatalf("unexpected cached result: %+v %v", again, err)
	}

	if _, err := cache.Resolve(schema, "bogus"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, err := cache.Resolve(schema, "a__b__c"); !errors.Is(err, ErrBadLookup) {
		t.Fatalf("expected ErrBadLookup, got %v", err)
	}
}

func TestSchemaField(t *testing.T) {
	schema := &Schema{Fields: []Field{{Name: "title"}}}
	if _, ok := schema.Field("title"); !ok {
		t.Fatal("expected title to resolve")
	}
	if _, ok := schema.Field("missing"); ok {
		t.Fatal("expected missing to not resolve")
	}
}
