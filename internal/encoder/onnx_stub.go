//go:build !cgo
// +build !cgo

package encoder

import (
	"context"
	"errors"
	"image"
)

// ONNXEncoder stub type when built without CGO (see onnx.go for the real implementation).
type ONNXEncoder struct{}

// NewONNXEncoder returns an error when built without CGO (ONNX not available).
func NewONNXEncoder(_, _ string, _ int) (*ONNXEncoder, error) {
	return nil, errors.New("ONNX encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// EncodeImage is not available without CGO.
func (e *ONNXEncoder) EncodeImage(_ context.Context, _ image.Image) ([]float32, error) {
	return nil, errors.New("ONNX encoder not available")
}

// EncodeText is not available without CGO.
func (e *ONNXEncoder) EncodeText(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("ONNX encoder not available")
}

// Dimensions returns 0 without CGO.
func (e *ONNXEncoder) Dimensions() int { return 0 }

// Close is a no-op without CGO.
func (e *ONNXEncoder) Close() error { return nil }
