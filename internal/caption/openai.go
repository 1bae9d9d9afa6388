package caption

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/sashabaranov/go-openai"
)

const (
	captionInstruction = "Describe the product in this image in one short sentence."
	rewriteTemplate    = "The image shows: %s. The user wants: %s. Rephrase it as a clear search description."

	captionMaxTokens = 20
	rewriteMaxTokens = 50
)

// OpenAICaptioner produces captions and rewrites through an OpenAI-compatible
// chat completions endpoint: a vision-capable model for captions, a text model
// for rewrites.
type OpenAICaptioner struct {
	client       *openai.Client
	captionModel string
	rewriteModel string
}

// OpenAICaptionerConfig configures an OpenAICaptioner. RewriteModel defaults
// to CaptionModel when empty.
type OpenAICaptionerConfig struct {
	BaseURL      string
	APIKey       string
	CaptionModel string
	RewriteModel string
}

// NewOpenAICaptioner creates a captioner for the given endpoint and models.
func NewOpenAICaptioner(cfg OpenAICaptionerConfig) (*OpenAICaptioner, error) {
	if cfg.CaptionModel == "" {
		return nil, fmt.Errorf("caption model is required")
	}
	rewriteModel := cfg.RewriteModel
	if rewriteModel == "" {
		rewriteModel = cfg.CaptionModel
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAICaptioner{
		client:       openai.NewClientWithConfig(clientConfig),
		captionModel: cfg.CaptionModel,
		rewriteModel: rewriteModel,
	}, nil
}

// Caption sends the image as a base64 PNG data URL to the vision model.
func (c *OpenAICaptioner) Caption(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image payload: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.captionModel,
		MaxTokens: captionMaxTokens,
		// A zero temperature is omitted by the client wire format; the smallest
		// positive value still forces greedy decoding.
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: captionInstruction},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("caption completion failed: %w", err)
	}
	return firstChoice(resp)
}

// Rewrite combines the caption and the user prompt through the rewrite template.
func (c *OpenAICaptioner) Rewrite(ctx context.Context, caption, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.rewriteModel,
		MaxTokens:   rewriteMaxTokens,
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(rewriteTemplate, caption, prompt),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("rewrite completion failed: %w", err)
	}
	return firstChoice(resp)
}

func firstChoice(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
