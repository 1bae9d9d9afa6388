package vector

import (
	"context"
	"errors"
	"math"
	"testing"
)

func unit(vals ...float32) []float32 {
	var sum float64
	for _, v := range vals {
		sum += float64(v) * float64(v)
	}
	norm := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = v * norm
	}
	return out
}

func TestFlatIndex_RoundTrip(t *testing.T) {
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	vecs := map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
		"c": {0, 0, 1},
	}
	for id, v := range vecs {
		if err := idx.Add(ctx, id, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("expected self-match [a], got %+v", results)
	}
	if results[0].Distance > 1e-6 {
		t.Errorf("self-match distance = %g, want ~0", results[0].Distance)
	}
}

func TestFlatIndex_CosineRerankOrder(t *testing.T) {
	// Three items: a=[1,0,...], b=[0,1,...], c=normalize([0.7,0.7,...]).
	// Query [1,0,...] with topK=2 must return [a, c]: c is closer than b by cosine.
	idx, err := NewFlatIndex(4)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.Add(ctx, "a", []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, "b", []float32{0, 1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, "c", unit(0.7, 0.7, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "c" {
		t.Errorf("expected [a c], got [%s %s]", results[0].ID, results[1].ID)
	}
	if results[0].Distance >= results[1].Distance {
		t.Errorf("distances not ascending: %g >= %g", results[0].Distance, results[1].Distance)
	}
}

func TestFlatIndex_SearchBounds(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	ids := []string{"x", "y", "z"}
	vecs := [][]float32{{1, 0}, {0, 1}, unit(1, 1)}
	for i, id := range ids {
		if err := idx.Add(ctx, id, vecs[i]); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}

	// More requested than stored: all items, ordered, no duplicates.
	results, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected all 3 items, got %d", len(results))
	}
	seen := make(map[string]bool)
	for i, r := range results {
		if seen[r.ID] {
			t.Errorf("duplicate id %s in results", r.ID)
		}
		seen[r.ID] = true
		if !contains(ids, r.ID) {
			t.Errorf("unknown id %s in results", r.ID)
		}
		if i > 0 && results[i-1].Distance > r.Distance {
			t.Errorf("results not ascending at %d", i)
		}
	}

	// Never more than topK.
	results, err = idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) > 2 {
		t.Errorf("expected at most 2 results, got %d", len(results))
	}
}

func TestFlatIndex_DuplicateID(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, "a", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	err := idx.Add(ctx, "a", []float32{0, 1})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	// Failed add must not mutate the index.
	if idx.Size() != 1 {
		t.Errorf("Size = %d after failed add, want 1", idx.Size())
	}
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Distance > 1e-6 {
		t.Errorf("original vector was overwritten: distance %g", results[0].Distance)
	}
}

func TestFlatIndex_StateMachine(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()

	// Search before build.
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt, got %v", err)
	}

	// Empty index built, then searched.
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("expected ErrEmptyIndex, got %v", err)
	}

	// Build twice.
	if err := idx.Build(); !errors.Is(err, ErrIndexBuilt) {
		t.Errorf("expected ErrIndexBuilt on second build, got %v", err)
	}

	// Add after build.
	if err := idx.Add(ctx, "a", []float32{1, 0}); !errors.Is(err, ErrIndexBuilt) {
		t.Errorf("expected ErrIndexBuilt on add after build, got %v", err)
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	if err := idx.Add(ctx, "a", []float32{1, 0}); err == nil {
		t.Error("expected error adding 2-dim vector to 3-dim index")
	}
	_ = idx.Add(ctx, "a", []float32{1, 0, 0})
	_ = idx.Build()
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected error searching with 2-dim query")
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); d > 1e-9 {
		t.Errorf("identical vectors: distance %g", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors: distance %g, want 1", d)
	}
	// Zero-norm operand never yields NaN.
	if d := CosineDistance([]float32{0, 0}, []float32{1, 0}); d != 1 {
		t.Errorf("zero vector: distance %g, want 1", d)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
