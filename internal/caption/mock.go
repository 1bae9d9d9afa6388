package caption

import (
	"context"
	"fmt"
	"image"
)

// MockCaptioner is a deterministic captioner for tests and as a fallback when
// no model endpoint is configured.
type MockCaptioner struct{}

// NewMockCaptioner returns a deterministic captioner.
func NewMockCaptioner() *MockCaptioner {
	return &MockCaptioner{}
}

// Caption returns a stable description derived from the image bounds.
func (m *MockCaptioner) Caption(ctx context.Context, img image.Image) (string, error) {
	b := img.Bounds()
	return fmt.Sprintf("a product photo (%dx%d)", b.Dx(), b.Dy()), nil
}

// Rewrite joins the caption and prompt, so the output always differs from the
// raw caption for a non-empty prompt.
func (m *MockCaptioner) Rewrite(ctx context.Context, caption, prompt string) (string, error) {
	return fmt.Sprintf("%s, %s", caption, prompt), nil
}
