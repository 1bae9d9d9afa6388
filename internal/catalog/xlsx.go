package catalog

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/erabu/internal/models"
)

// XLSXSource reads catalog rows from the first sheet of an XLSX workbook,
// treating the first row as the header.
type XLSXSource struct {
	path string
}

// NewXLSXSource creates a source for the workbook at path.
func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{path: path}
}

// Load reads and maps all rows from the first sheet.
func (s *XLSXSource) Load(ctx context.Context) ([]*models.CatalogRow, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open metadata workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("metadata workbook has no sheets")
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	header := records[0]
	if err := requireColumns(header); err != nil {
		return nil, err
	}

	var rows []*models.CatalogRow
	for i, record := range records[1:] {
		row, err := rowFromRecord(header, record, i+2)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
