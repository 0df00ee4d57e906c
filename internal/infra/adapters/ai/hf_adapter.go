package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ImageGenerator = (*HFImageAdapter)(nil)

// HFImageAdapter calls a Hugging Face text-to-image inference endpoint
// (Stable Diffusion XL by default).
// Authorization: Bearer <HF_TOKEN>
type HFImageAdapter struct {
	token  string
	url    string
	client *http.Client
}

func NewHFImageAdapter(token, url string, timeout time.Duration) (*HFImageAdapter, error) {
	if token == "" {
		return nil, errors.New("hf token empty")
	}
	if url == "" {
		return nil, errors.New("hf url empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HFImageAdapter{
		token:  token,
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
	}, nil
}

type hfParameters struct {
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Width             int     `json:"width,omitempty"`
	Height            int     `json:"height,omitempty"`
}

func (h *HFImageAdapter) GenerateImage(ctx context.Context, prompt, style string) (*adapter.Media, error) {
	reqBody := struct {
		Inputs     string       `json:"inputs"`
		Parameters hfParameters `json:"parameters"`
	}{
		Inputs: prompt,
		Parameters: hfParameters{
			NumInferenceSteps: 50,
			GuidanceScale:     7.5,
			Width:             768,
			Height:            1344,
		},
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hf image: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("hf image: read: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, rateLimitFromResponse(resp.StatusCode, resp.Header, fmt.Errorf("hf http %d", resp.StatusCode))
	case resp.StatusCode == http.StatusServiceUnavailable:
		// model cold start: {"error":"...loading","estimated_time":20.5}
		var loading struct {
			EstimatedTime float64 `json:"estimated_time"`
		}
		if json.Unmarshal(body, &loading) == nil && loading.EstimatedTime > 0 {
			return nil, &domain.RateLimitError{
				RetryAfter: time.Duration(loading.EstimatedTime * float64(time.Second)),
				Err:        errors.New("hf model loading"),
			}
		}
		return nil, fmt.Errorf("hf http %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("hf http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("hf image: unexpected content type %q", ct)
	}
	return &adapter.Media{Data: body, ContentType: ct}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
