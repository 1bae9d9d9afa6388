package encoder

import (
	"context"
	"image"
	"math"
)

// MockModelEncoder is a deterministic model encoder for tests and as a fallback
// when no real model backend is configured. The same text or image content
// always maps to the same vector.
type MockModelEncoder struct {
	dimensions int
}

// NewMockModelEncoder returns a deterministic encoder of the given dimensions.
func NewMockModelEncoder(dimensions int) *MockModelEncoder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockModelEncoder{dimensions: dimensions}
}

// EncodeText returns a hash-derived vector for text.
func (e *MockModelEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return e.fromSeed(hashString(text)), nil
}

// EncodeImage returns a vector derived from the image bounds and a coarse
// pixel sample, so distinct images get distinct but stable embeddings.
func (e *MockModelEncoder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	return e.fromSeed(hashImage(img)), nil
}

// Dimensions returns the embedding dimension.
func (e *MockModelEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockModelEncoder.
func (e *MockModelEncoder) Close() error {
	return nil
}

func (e *MockModelEncoder) fromSeed(seed int) []float32 {
	vec := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		vec[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	return vec
}

func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

// hashImage mixes the bounds and an 8x8 pixel sample. Text hashes use a
// different seed space offset so image and text vectors do not collide.
func hashImage(img image.Image) int {
	b := img.Bounds()
	h := 17
	h = 31*h + b.Dx()
	h = 31*h + b.Dy()
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			px := b.Min.X + x*maxInt(b.Dx()/8, 1)
			py := b.Min.Y + y*maxInt(b.Dy()/8, 1)
			if px >= b.Max.X || py >= b.Max.Y {
				continue
			}
			r, g, bl, _ := img.At(px, py).RGBA()
			h = 31*h + int(r>>8) + int(g>>8)*7 + int(bl>>8)*13
		}
	}
	if h < 0 {
		h = -h
	}
	return h + 1_000_003
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
