// Package export writes a filtered object list out as a spreadsheet or CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/facetview/pkg/queryset"
)

type Service struct {
	sheetName string
}

type Option func(*Service)

// WithSheetName customizes the worksheet name for XLSX output.
func WithSheetName(name string) Option {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.sheetName = name
		}
	}
}

func NewService(opts ...Option) *Service {
	service := &Service{
		sheetName: "Export",
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// WriteXLSX streams the queryset's records into an XLSX workbook with one
// header row. Fields name the columns; the record key and display label are
// always emitted first.
func (s *Service) WriteXLSX(ctx context.Context, qs queryset.Queryset, fields []string, w io.Writer) error {
	records, err := qs.Records(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records for export: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, s.sheetName); err != nil {
		return fmt.Errorf("failed to name export sheet: %w", err)
	}

	header := headerRow(qs.Schema(), fields)
	if err := s.writeRow(f, 1, header); err != nil {
		return err
	}

	for i, rec := range records {
		if err := s.writeRow(f, i+2, dataRow(rec, fields)); err != nil {
			return err
		}
	}

	log.Printf("[EXPORT] wrote %d rows to sheet %q", len(records), s.sheetName)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV streams the queryset's records as CSV with one header row.
func (s *Service) WriteCSV(ctx context.Context, qs queryset.Queryset, fields []string, w io.Writer) error {
	records, err := qs.Records(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headerRow(qs.Schema(), fields)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(dataRow(rec, fields)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()

	log.Printf("[EXPORT] wrote %d CSV rows", len(records))
	return cw.Error()
}

func (s *Service) writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to compute cell name: %w", err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(s.sheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func headerRow(schema *queryset.Schema, fields []string) []string {
	header := []string{"id", "title"}
	for _, name := range fields {
		if f, ok := schema.Field(name); ok && f.Verbose != "" {
			header = append(header, f.Verbose)
			continue
		}
		header = append(header, name)
	}
	return header
}

func dataRow(rec queryset.Record, fields []string) []string {
	row := []string{rec.Key(), rec.Display()}
	for _, name := range fields {
		v, _ := rec.Get(name)
		row = append(row, queryset.ValueString(v))
	}
	return row
}
