// Package vector provides the flat similarity index: exact L2 coarse retrieval
// over the full stored set followed by a cosine rerank of the candidate pool.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Index lifecycle errors. The index moves Empty -> Building -> Built: Add is only
// valid before Build, Search only after.
var (
	// ErrDuplicateID is returned by Add when the id is already stored.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrEmptyIndex is returned by Search when no vectors were added.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrNotBuilt is returned by Search before Build has been called.
	ErrNotBuilt = errors.New("index not built")
	// ErrIndexBuilt is returned by Add and Build once Build has been called.
	// Build is one-shot: rebuilding means constructing a fresh index.
	ErrIndexBuilt = errors.New("index already built")
)

const defaultOverfetch = 2

// Result is a single search hit, ordered by ascending cosine distance
// (most similar first). Distance is in [0, 2] for arbitrary vectors,
// [0, 1] for non-negative similarity.
type Result struct {
	ID       string
	Distance float64
}

// FlatIndex stores (id, vector) pairs and serves two-phase nearest-neighbor
// search. It exclusively owns its vector storage; inputs are copied on Add.
// Mutation (Add, Build) is serialized internally; after Build the index is
// immutable and safe for any number of concurrent readers.
type FlatIndex struct {
	dimensions int
	overfetch  int
	ids        []string
	vectors    [][]float32
	byID       map[string][]float32
	sqNorms    []float64 // |v|^2 per stored vector, finalized by Build
	built      bool
	mu         sync.RWMutex
}

// IndexOption configures a FlatIndex.
type IndexOption func(*FlatIndex)

// WithOverfetch sets the coarse-phase overfetch factor: Search retrieves
// factor*topK candidates before reranking. Values below 1 are ignored.
func WithOverfetch(factor int) IndexOption {
	return func(f *FlatIndex) {
		if factor >= 1 {
			f.overfetch = factor
		}
	}
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimensions int, opts ...IndexOption) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	f := &FlatIndex{
		dimensions: dimensions,
		overfetch:  defaultOverfetch,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
		byID:       make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Add appends a vector under id. It fails with ErrDuplicateID if the id is
// already stored and with ErrIndexBuilt after Build. A failed Add leaves the
// index unchanged.
func (f *FlatIndex) Add(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(vec) != f.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built {
		return fmt.Errorf("add %q: %w", id, ErrIndexBuilt)
	}
	if _, exists := f.byID[id]; exists {
		return fmt.Errorf("add %q: %w", id, ErrDuplicateID)
	}
	owned := make([]float32, f.dimensions)
	copy(owned, vec)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, owned)
	f.byID[id] = owned
	return nil
}

// Build finalizes the coarse-search structure (per-vector squared norms for
// exact L2 scoring) and transitions the index to Built. Build may be called
// exactly once; a second call fails with ErrIndexBuilt.
func (f *FlatIndex) Build() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built {
		return ErrIndexBuilt
	}
	f.sqNorms = make([]float64, len(f.vectors))
	for i, vec := range f.vectors {
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		f.sqNorms[i] = sum
	}
	f.built = true
	return nil
}

// Search returns up to topK ids ordered by ascending cosine distance to query.
// Retrieval is two-phase: an exact L2 coarse pass over all stored vectors
// collects overfetch*topK candidates, then the candidates are reranked by
// cosine distance against the raw query and the original stored vectors.
// L2 on unit vectors is monotonic with cosine similarity, but the rerank is
// kept unconditional so the coarse metric is never trusted alone.
func (f *FlatIndex) Search(ctx context.Context, query []float32, topK int) ([]*Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.built {
		return nil, ErrNotBuilt
	}
	if len(f.ids) == 0 {
		return nil, ErrEmptyIndex
	}
	candidates := f.coarseL2(query, topK*f.overfetch)
	results := rerankCosine(query, candidates)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension the index was created with.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Built reports whether Build has been called.
func (f *FlatIndex) Built() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.built
}
