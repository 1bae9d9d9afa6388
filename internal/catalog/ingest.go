package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/erabu/internal/encoder"
	"github.com/hyperjump/erabu/internal/models"
	"github.com/hyperjump/erabu/internal/vector"
)

const defaultWorkers = 4

// Ingestor populates a fresh similarity index and catalog from a metadata
// source and an image directory. Rows whose image cannot be decoded are
// skipped with a warning; duplicate ids abort the run.
type Ingestor struct {
	source   Source
	imageDir string
	encoder  *encoder.DualEncoder
	workers   int
	indexOpts []vector.IndexOption
	logger    *zap.Logger // optional; when set, logs ingestion progress
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for ingestion events (skipped rows, totals).
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}

// WithWorkers sets the number of parallel embedding workers. Values below 1
// are ignored.
func WithWorkers(n int) IngestorOption {
	return func(ing *Ingestor) {
		if n >= 1 {
			ing.workers = n
		}
	}
}

// WithIndexOptions forwards options to the index the ingestor builds.
func WithIndexOptions(opts ...vector.IndexOption) IngestorOption {
	return func(ing *Ingestor) { ing.indexOpts = opts }
}

// NewIngestor creates an ingestor over the given source and image directory.
func NewIngestor(source Source, imageDir string, enc *encoder.DualEncoder, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		source:   source,
		imageDir: imageDir,
		encoder:  enc,
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// embedded pairs a surviving row with its fused embedding. The decoded image
// is dropped as soon as the embedding exists.
type embedded struct {
	row *models.CatalogRow
	vec []float32
}

// Run loads all rows, decodes and embeds them, and returns the built catalog
// and index. Embeddings are computed by a bounded worker pool into per-row
// slots; index adds then happen serially in row order, so parallelism never
// changes the observable index layout.
func (ing *Ingestor) Run(ctx context.Context) (*Catalog, *vector.FlatIndex, error) {
	rows, err := ing.source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog metadata: %w", err)
	}

	index, err := vector.NewFlatIndex(ing.encoder.Dimensions(), ing.indexOpts...)
	if err != nil {
		return nil, nil, err
	}

	results := make([]*embedded, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.workers)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			path := filepath.Join(ing.imageDir, row.ImagePath)
			img, err := imaging.Open(path)
			if err != nil {
				// Per-item decode failures are not fatal to the run.
				if ing.logger != nil {
					ing.logger.Warn("skipping catalog row: image decode failed",
						zap.String("id", row.ID),
						zap.String("path", path),
						zap.Error(err))
				}
				return nil
			}
			vec, err := ing.encoder.EncodeDual(gctx, img, row.EmbeddingText())
			if err != nil {
				return fmt.Errorf("embed %q: %w", row.ID, err)
			}
			results[i] = &embedded{row: row, vec: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	cat := NewCatalog()
	skipped := 0
	for _, e := range results {
		if e == nil {
			skipped++
			continue
		}
		if err := index.Add(ctx, e.row.ID, e.vec); err != nil {
			// Duplicate ids are a catalog integrity problem; abort startup.
			return nil, nil, fmt.Errorf("index catalog item: %w", err)
		}
		cat.Set(e.row.ID, e.row.Meta)
	}
	if err := index.Build(); err != nil {
		return nil, nil, err
	}

	if ing.logger != nil {
		ing.logger.Info("catalog ingested",
			zap.Int("rows", len(rows)),
			zap.Int("indexed", cat.Size()),
			zap.Int("skipped", skipped))
	}
	return cat, index, nil
}
