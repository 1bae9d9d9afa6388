package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
)

// ErrZeroNorm is returned when a vector with zero Euclidean norm would have to
// be normalized (e.g. a degenerate model output). Callers get an explicit
// error instead of a NaN-filled vector.
var ErrZeroNorm = errors.New("zero-norm vector cannot be normalized")

// DefaultTextWeight is the default share of the text modality in the fused
// embedding; the image share is the complement.
const DefaultTextWeight = 0.6

// DualEncoder fuses image and text embeddings into one unit vector as
// normalize(imageWeight*img + textWeight*txt). The weights are fixed at
// construction: ingestion and queries must run through the same instance (or
// one configured identically) for similarity scores to be comparable, and
// changing weights requires rebuilding the index.
type DualEncoder struct {
	model       ModelEncoder
	textWeight  float64
	imageWeight float64
}

// NewDualEncoder creates a fusion encoder over model. textWeight must be in
// [0, 1]; the image weight is 1-textWeight.
func NewDualEncoder(model ModelEncoder, textWeight float64) (*DualEncoder, error) {
	if model == nil {
		return nil, fmt.Errorf("model encoder is required")
	}
	if textWeight < 0 || textWeight > 1 {
		return nil, fmt.Errorf("text weight must be in [0, 1], got %g", textWeight)
	}
	return &DualEncoder{
		model:       model,
		textWeight:  textWeight,
		imageWeight: 1 - textWeight,
	}, nil
}

// EncodeImage projects an image into the shared space and unit-normalizes it.
func (e *DualEncoder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	vec, err := e.model.EncodeImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := e.checkDimensions(vec); err != nil {
		return nil, err
	}
	if err := normalize(vec); err != nil {
		return nil, fmt.Errorf("image embedding: %w", err)
	}
	return vec, nil
}

// EncodeText projects text into the shared space and unit-normalizes it.
// Empty or whitespace-only text returns the all-zero vector of the embedding
// dimension: a zero-contribution placeholder that deliberately bypasses the
// unit-norm invariant.
func (e *DualEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return make([]float32, e.model.Dimensions()), nil
	}
	vec, err := e.model.EncodeText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	if err := e.checkDimensions(vec); err != nil {
		return nil, err
	}
	if err := normalize(vec); err != nil {
		return nil, fmt.Errorf("text embedding: %w", err)
	}
	return vec, nil
}

// EncodeDual returns normalize(imageWeight*EncodeImage(img) + textWeight*EncodeText(text)).
// This is the sole embedding function for both ingestion and queries.
func (e *DualEncoder) EncodeDual(ctx context.Context, img image.Image, text string) ([]float32, error) {
	imgVec, err := e.EncodeImage(ctx, img)
	if err != nil {
		return nil, err
	}
	txtVec, err := e.EncodeText(ctx, text)
	if err != nil {
		return nil, err
	}
	fused := make([]float32, len(imgVec))
	for i := range fused {
		fused[i] = float32(e.imageWeight)*imgVec[i] + float32(e.textWeight)*txtVec[i]
	}
	if err := normalize(fused); err != nil {
		return nil, fmt.Errorf("fused embedding: %w", err)
	}
	return fused, nil
}

// Dimensions returns the embedding dimension of the underlying model.
func (e *DualEncoder) Dimensions() int {
	return e.model.Dimensions()
}

// Weights returns the fixed (imageWeight, textWeight) pair.
func (e *DualEncoder) Weights() (imageWeight, textWeight float64) {
	return e.imageWeight, e.textWeight
}

func (e *DualEncoder) checkDimensions(vec []float32) error {
	if len(vec) != e.model.Dimensions() {
		return fmt.Errorf("model returned %d dimensions, expected %d", len(vec), e.model.Dimensions())
	}
	return nil
}

// normalize scales vec in place to unit L2 norm, or fails with ErrZeroNorm.
func normalize(vec []float32) error {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return ErrZeroNorm
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return nil
}
