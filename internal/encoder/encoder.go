// Package encoder provides the embedding fusion engine. Modality-specific
// models are consumed through the ModelEncoder capability interface; the
// DualEncoder blends their outputs into a single unit vector.
package encoder

import (
	"context"
	"image"
)

// ModelEncoder projects images and text into a shared embedding space.
// Implementations must produce vectors of the same fixed dimension for both
// modalities; the fusion engine handles normalization.
type ModelEncoder interface {
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
