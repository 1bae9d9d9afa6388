// Package catalog loads catalog rows from tabular sources and ingests them
// into the similarity index.
package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperjump/erabu/internal/models"
)

// Source yields catalog rows from a metadata table. Implementations exist for
// CSV, XLSX, and SQLite metadata files.
type Source interface {
	Load(ctx context.Context) ([]*models.CatalogRow, error)
}

// Well-known metadata column names shared by all sources.
const (
	columnID        = "file_name"
	columnImagePath = "local_path"
	columnCaption   = "caption"
	columnCategory  = "category"
)

// NewSource selects a source implementation from the metadata path extension:
// .csv, .xlsx, or .db/.sqlite/.sqlite3.
func NewSource(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVSource(path), nil
	case ".xlsx":
		return NewXLSXSource(path), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported catalog metadata format: %s (supported: csv, xlsx, sqlite)", path)
	}
}

// rowFromRecord maps a header-indexed record to a CatalogRow. Every column is
// copied verbatim into Meta; id and image path are required.
func rowFromRecord(header, record []string, line int) (*models.CatalogRow, error) {
	meta := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(record) {
			meta[name] = record[i]
		}
	}
	row := &models.CatalogRow{
		ID:        meta[columnID],
		ImagePath: meta[columnImagePath],
		Caption:   strings.TrimSpace(meta[columnCaption]),
		Category:  strings.TrimSpace(meta[columnCategory]),
		Meta:      meta,
	}
	if row.ID == "" {
		return nil, fmt.Errorf("row %d: missing %s", line, columnID)
	}
	if row.ImagePath == "" {
		return nil, fmt.Errorf("row %d: missing %s", line, columnImagePath)
	}
	return row, nil
}

// requireColumns verifies that the header contains the required columns.
func requireColumns(header []string) error {
	have := make(map[string]bool, len(header))
	for _, name := range header {
		have[name] = true
	}
	for _, name := range []string{columnID, columnImagePath} {
		if !have[name] {
			return fmt.Errorf("metadata header missing required column %q", name)
		}
	}
	return nil
}
