// Package caption produces natural-language search descriptions from images:
// a captioning pass, optionally rewritten against the user's intent.
package caption

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Captioner is the capability interface for the external caption/rewrite
// models. Caption returns a short description of the image; Rewrite combines a
// caption and a free-text user intent into a single search description.
type Captioner interface {
	Caption(ctx context.Context, img image.Image) (string, error)
	Rewrite(ctx context.Context, caption, prompt string) (string, error)
}

// Pipeline wraps a Captioner with the branch logic of the query path.
type Pipeline struct {
	model Captioner
}

// NewPipeline creates a pipeline over model.
func NewPipeline(model Captioner) (*Pipeline, error) {
	if model == nil {
		return nil, fmt.Errorf("captioner model is required")
	}
	return &Pipeline{model: model}, nil
}

// Describe captions the image and, when a non-blank prompt is supplied,
// rewrites the caption against it. With no prompt the caption is returned
// unchanged and no rewrite call is made.
func (p *Pipeline) Describe(ctx context.Context, img image.Image, prompt string) (string, error) {
	desc, err := p.model.Caption(ctx, img)
	if err != nil {
		return "", fmt.Errorf("caption: %w", err)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return desc, nil
	}
	rewritten, err := p.model.Rewrite(ctx, desc, prompt)
	if err != nil {
		return "", fmt.Errorf("rewrite: %w", err)
	}
	return rewritten, nil
}
