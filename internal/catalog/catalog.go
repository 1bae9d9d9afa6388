package catalog

// Catalog is the post-ingestion id -> metadata mapping. Images are not
// retained; only the metadata survives for result assembly. Immutable once
// returned by the ingestor.
type Catalog struct {
	meta map[string]map[string]string
}

// NewCatalog returns an empty catalog. Callers fill it with Set and then
// treat it as read-only.
func NewCatalog() *Catalog {
	return &Catalog{meta: make(map[string]map[string]string)}
}

// Set records the metadata for id, replacing any previous entry.
func (c *Catalog) Set(id string, meta map[string]string) {
	c.meta[id] = meta
}

// Meta returns the source metadata for id.
func (c *Catalog) Meta(id string) (map[string]string, bool) {
	m, ok := c.meta[id]
	return m, ok
}

// Size returns the number of cataloged items.
func (c *Catalog) Size() int {
	return len(c.meta)
}
