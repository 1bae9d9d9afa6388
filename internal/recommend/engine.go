// Package recommend composes the caption pipeline, the dual encoder, and the
// similarity index into the product recommendation flow.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/erabu/internal/caption"
	"github.com/hyperjump/erabu/internal/catalog"
	"github.com/hyperjump/erabu/internal/encoder"
	"github.com/hyperjump/erabu/internal/models"
	"github.com/hyperjump/erabu/internal/vector"
	"github.com/hyperjump/erabu/pkg/utils"
)

// ErrNotReady is returned when no catalog has been installed yet.
var ErrNotReady = errors.New("recommend: no catalog installed")

const defaultTopK = 5

// State is an immutable catalog snapshot: a built index plus the metadata for
// every indexed item. Reloads install a whole new State; queries in flight
// keep using the one they started with.
type State struct {
	Index   *vector.FlatIndex
	Catalog *catalog.Catalog
}

// Engine answers recommendation queries. Safe for concurrent use; Install may
// be called at any time to swap in a freshly ingested catalog.
type Engine struct {
	pipeline *caption.Pipeline
	dual     *encoder.DualEncoder
	topK     int
	logger   *zap.Logger
	state    atomic.Pointer[State]
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopK sets the default number of results per query. Values below 1 are
// ignored.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k >= 1 {
			e.topK = k
		}
	}
}

// WithLogger sets a logger for query events.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given caption pipeline and encoder.
// The engine starts with no catalog; call Install before querying.
func NewEngine(pipeline *caption.Pipeline, dual *encoder.DualEncoder, opts ...Option) (*Engine, error) {
	if pipeline == nil {
		return nil, errors.New("recommend: nil caption pipeline")
	}
	if dual == nil {
		return nil, errors.New("recommend: nil encoder")
	}
	e := &Engine{
		pipeline: pipeline,
		dual:     dual,
		topK:     defaultTopK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Install atomically swaps in a new catalog snapshot.
func (e *Engine) Install(st *State) {
	e.state.Store(st)
}

// Ready reports whether a catalog snapshot is installed.
func (e *Engine) Ready() bool {
	return e.state.Load() != nil
}

// Snapshot returns the current catalog snapshot, or nil before the first
// Install.
func (e *Engine) Snapshot() *State {
	return e.state.Load()
}

// Recommend describes the query image, fuses it with the prompt into one
// embedding, and returns the topK most similar catalog items. topK <= 0 uses
// the engine default.
func (e *Engine) Recommend(ctx context.Context, img image.Image, prompt string, topK int) (*models.Recommendation, error) {
	st := e.state.Load()
	if st == nil {
		return nil, ErrNotReady
	}
	if topK <= 0 {
		topK = e.topK
	}
	start := time.Now()

	desc, err := e.pipeline.Describe(ctx, img, prompt)
	if err != nil {
		return nil, fmt.Errorf("describe query image: %w", err)
	}
	query, err := e.dual.EncodeDual(ctx, img, desc)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	hits, err := st.Index.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]*models.RecommendedItem, 0, len(hits))
	for _, h := range hits {
		meta, ok := st.Catalog.Meta(h.ID)
		if !ok {
			// The index and catalog are built together; a miss means the
			// snapshot is corrupt.
			return nil, fmt.Errorf("no catalog metadata for indexed id %q", h.ID)
		}
		results = append(results, &models.RecommendedItem{
			ID:         h.ID,
			Similarity: 1 - h.Distance,
			Meta:       meta,
		})
	}

	elapsed := time.Since(start)
	if e.logger != nil {
		e.logger.Debug("recommendation served",
			zap.String("description", utils.Truncate(desc, 120)),
			zap.Int("results", len(results)),
			zap.Duration("elapsed", elapsed))
	}
	return &models.Recommendation{
		Description: desc,
		Results:     results,
		QueryTime:   elapsed.Milliseconds(),
	}, nil
}
