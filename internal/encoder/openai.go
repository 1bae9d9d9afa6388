package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEncoder produces embeddings through an OpenAI-compatible /embeddings
// endpoint. Text is sent as plain input; images are sent as base64 data URLs,
// the convention used by CLIP-serving gateways (infinity, clip-as-service)
// that expose multi-modal models behind the OpenAI embeddings API.
type OpenAIEncoder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// OpenAIEncoderConfig configures an OpenAIEncoder.
type OpenAIEncoderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
}

// NewOpenAIEncoder creates an encoder for the given endpoint and model.
func NewOpenAIEncoder(cfg OpenAIEncoderConfig) (*OpenAIEncoder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIEncoder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// EncodeText embeds a single text input.
func (e *OpenAIEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

// EncodeImage embeds an image by sending it as a base64 PNG data URL.
func (e *OpenAIEncoder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	dataURL, err := imageDataURL(img)
	if err != nil {
		return nil, fmt.Errorf("encode image payload: %w", err)
	}
	return e.embed(ctx, dataURL)
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEncoder.
func (e *OpenAIEncoder) Close() error {
	return nil
}

func (e *OpenAIEncoder) embed(ctx context.Context, input string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func imageDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
