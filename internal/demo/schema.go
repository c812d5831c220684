// Package demo is the example application: stories with authors, categories,
// statuses and a paid flag, filterable from the query string.
package demo

import (
	"embed"

	"github.com/rpattn/facetview/pkg/facet"
	"github.com/rpattn/facetview/pkg/queryset"
	"github.com/rpattn/facetview/pkg/queryset/postgres"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

//go:embed templates/*.html
var TemplatesFS embed.FS

// StorySchema describes the story entity for the filter layer.
var StorySchema = &queryset.Schema{
	Name:         "stories",
	Verbose:      "Story",
	KeyField:     "id",
	DisplayField: "title",
	Fields: []queryset.Field{
		{Name: "title", Kind: queryset.KindText},
		{
			Name:    "status",
			Kind:    queryset.KindText,
			Verbose: "Status",
			Choices: []queryset.ChoiceDef{
				{Value: "draft", Label: "Draft"},
				{Value: "pub", Label: "Published"},
			},
		},
		{
			Name:     "author",
			Kind:     queryset.KindRelation,
			Verbose:  "Written by",
			Relation: &queryset.Relation{To: "authors", Verbose: "Author"},
		},
		{
			Name:     "categories",
			Kind:     queryset.KindRelation,
			Relation: &queryset.Relation{To: "categories", Many: true, Verbose: "Category"},
		},
		{Name: "paid", Kind: queryset.KindBoolean, Verbose: "Paid"},
	},
}

// StoryTable maps StorySchema onto its SQL layout.
var StoryTable = postgres.Table{
	Name:          "stories",
	KeyColumn:     "id",
	DisplayColumn: "title",
	Schema:        StorySchema,
	Relations: map[string]postgres.RelatedTable{
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

// StoryFacets is the filter navigation of the story list.
func StoryFacets() []facet.Facet {
	return []facet.Facet{
		facet.NewFacet("categories__slug").WithParam("category"),
		facet.NewFacet("author"),
		facet.NewFacet("status"),
		facet.NewFacet("paid"),
	}
}
