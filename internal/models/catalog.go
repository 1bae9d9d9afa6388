// Package models defines core data structures for catalog rows, items, and recommendations.
package models

// CatalogRow is a single row from a catalog metadata source (CSV, XLSX, or SQLite).
// Meta holds every source column verbatim; it is what clients get back in results.
type CatalogRow struct {
	ID        string
	ImagePath string
	Caption   string
	Category  string
	Meta      map[string]string
}

// EmbeddingText returns the text used for the row's fused embedding:
// the caption when present, else the category, else the empty string.
func (r *CatalogRow) EmbeddingText() string {
	if r.Caption != "" {
		return r.Caption
	}
	return r.Category
}
