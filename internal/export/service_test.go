package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/facetview/pkg/queryset"
	"github.com/rpattn/facetview/pkg/queryset/memory"
)

func exportFixture() *memory.Queryset {
	schema := &queryset.Schema{
		Name:         "stories",
		KeyField:     "id",
		DisplayField: "title",
		Fields: []queryset.Field{
			{Name: "title", Kind: queryset.KindText},
			{Name: "status", Kind: queryset.KindText, Verbose: "Status"},
			{Name: "paid", Kind: queryset.KindBoolean, Verbose: "Paid"},
		},
	}
	records := []*memory.Record{
		{ID: "s1", Label: "First", Fields: map[string]any{"title": "First", "status": "pub", "paid": true}},
		{ID: "s2", Label: "Second", Fields: map[string]any{"title": "Second", "status": "draft", "paid": false}},
	}
	return memory.New(schema, records)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	service := NewService(WithSheetName("Stories"))

	err := service.WriteXLSX(context.Background(), exportFixture(), []string{"status", "paid"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != "Stories" {
		t.Fatalf("expected sheet Stories, got %q", got)
	}

	rows, err := f.GetRows("Stories")
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}

	wantHeader := []string{"id", "title", "Status", "Paid"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Fatalf("unexpected header: %v", rows[0])
		}
	}
	if rows[1][0] != "s1" || rows[1][2] != "pub" || rows[1][3] != "true" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != "s2" || rows[2][2] != "draft" || rows[2][3] != "false" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestWriteXLSXRespectsFilters(t *testing.T) {
	var buf bytes.Buffer
	qs := exportFixture().Filter(queryset.Equals("status", "pub"))

	err := NewService().WriteXLSX(context.Background(), qs, []string{"status"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Export")
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "s1" {
		t.Fatalf("expected only the published story, got %v", rows)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := NewService().WriteCSV(context.Background(), exportFixture(), []string{"status", "paid"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}
	if rows[0][2] != "Status" || rows[1][1] != "First" || rows[2][3] != "false" {
		t.Fatalf("unexpected CSV content: %v", rows)
	}
}
