package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/erabu/internal/models"
)

// SQLiteSource reads catalog rows from an `items` table in a SQLite database:
// columns id, local_path, caption, category, and a JSON `meta` column for
// arbitrary extras.
type SQLiteSource struct {
	path string
}

// NewSQLiteSource creates a source for the database at path.
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// Load reads and maps all rows from the items table.
func (s *SQLiteSource) Load(ctx context.Context) ([]*models.CatalogRow, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}
	defer db.Close()

	// rowid order keeps ingestion deterministic across runs.
	res, err := db.QueryContext(ctx, `SELECT id, local_path, caption, category, meta FROM items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer res.Close()

	var rows []*models.CatalogRow
	for line := 1; res.Next(); line++ {
		var id, localPath string
		var capt, category, metaJSON sql.NullString
		if err := res.Scan(&id, &localPath, &capt, &category, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan item row %d: %w", line, err)
		}
		if id == "" {
			return nil, fmt.Errorf("item row %d: missing id", line)
		}
		if localPath == "" {
			return nil, fmt.Errorf("item row %d: missing local_path", line)
		}
		meta := map[string]string{
			columnID:        id,
			columnImagePath: localPath,
		}
		if metaJSON.Valid && metaJSON.String != "" {
			extras := make(map[string]string)
			if err := json.Unmarshal([]byte(metaJSON.String), &extras); err != nil {
				return nil, fmt.Errorf("item %q: invalid meta JSON: %w", id, err)
			}
			for k, v := range extras {
				meta[k] = v
			}
		}
		if capt.Valid && capt.String != "" {
			meta[columnCaption] = capt.String
		}
		if category.Valid && category.String != "" {
			meta[columnCategory] = category.String
		}
		rows = append(rows, &models.CatalogRow{
			ID:        id,
			ImagePath: localPath,
			Caption:   strings.TrimSpace(capt.String),
			Category:  strings.TrimSpace(category.String),
			Meta:      meta,
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return rows, nil
}
