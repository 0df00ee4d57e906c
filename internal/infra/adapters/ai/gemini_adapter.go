// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/ports/adapter"
)

var (
	_ adapter.ImageGenerator = (*GeminiAdapter)(nil)
	_ adapter.TextGenerator  = (*GeminiAdapter)(nil)
)

// GeminiAdapter generates vertical images with Imagen and text with Gemini.
type GeminiAdapter struct {
	client     *genai.Client
	imageModel string
	textModel  string
	maxOut     int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, imageModel, textModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if textModel == "" {
		textModel = "gemini-2.0-flash"
	}
	return &GeminiAdapter{client: c, imageModel: imageModel, textModel: textModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) GenerateImage(ctx context.Context, prompt, style string) (*adapter.Media, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "9:16",
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, mapGeminiError("image", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, errors.New("gemini image: no image returned")
	}
	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		// filtered by safety settings
		return nil, fmt.Errorf("gemini image: empty image (%s)", resp.GeneratedImages[0].RAIFilteredReason)
	}
	ct := img.MIMEType
	if ct == "" {
		ct = "image/png"
	}
	return &adapter.Media{Data: img.ImageBytes, ContentType: ct}, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	_, contents := toGenAIContents(messages)
	// Per docs, CountTokens takes []*genai.Content. (NOT []genai.Part)
	resp, err := g.client.Models.CountTokens(ctx, modelOrDefault(model, g.textModel), contents, nil)
	if err != nil {
		return 0, mapGeminiError("count tokens", err)
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, errors.New("gemini: no messages")
	}
	system, contents := toGenAIContents(messages)
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	resp, err := g.client.Models.GenerateContent(ctx, modelOrDefault(model, g.textModel), contents, cfg)
	if err != nil {
		return "", adapter.Usage{}, mapGeminiError("text", err)
	}

	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	text := resp.Text()
	if text == "" {
		return "", u, errors.New("gemini text: empty response")
	}
	return text, u, nil
}

// toGenAIContents splits system messages into a system instruction.
func toGenAIContents(msgs []adapter.Message) (*genai.Content, []*genai.Content) {
	var (
		system   []*genai.Part
		contents = make([]*genai.Content, 0, len(msgs))
	)
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			system = append(system, &genai.Part{Text: m.Content})
		case "assistant", "model":
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: system}, contents
}

func mapGeminiError(op string, err error) error {
	var (
		apiErr  genai.APIError
		apiPErr *genai.APIError
	)
	if (errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests) ||
		(errors.As(err, &apiPErr) && apiPErr.Code == http.StatusTooManyRequests) {
		return &domain.RateLimitError{Err: err}
	}
	return fmt.Errorf("gemini %s: %w", op, err)
}
