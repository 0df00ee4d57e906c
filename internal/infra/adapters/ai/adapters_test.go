package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{"-2", 0},
		{now.Add(10 * time.Second).Format(http.TimeFormat), 10 * time.Second},
		{now.Add(-10 * time.Second).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, c := range cases {
		if got := parseRetryAfter(c.in, now); got != c.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestHFImageAdapter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Inputs     string       `json:"inputs"`
			Parameters hfParameters `json:"parameters"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Inputs == "" || body.Parameters.NumInferenceSteps != 50 || body.Parameters.GuidanceScale != 7.5 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch n {
		case 1:
			w.Header().Set("Retry-After", "4")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":12.5}`))
		default:
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG fake"))
		}
	}))
	defer srv.Close()

	h, err := NewHFImageAdapter("tok", srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	_, err = h.GenerateImage(ctx, "a cat", "cartoon")
	if d, ok := domain.RetryAfterOf(err); !errors.Is(err, domain.ErrRateLimited) || !ok || d != 4*time.Second {
		t.Fatalf("expected rate limit with 4s hint, got %v", err)
	}
	_, err = h.GenerateImage(ctx, "a cat", "cartoon")
	if d, _ := domain.RetryAfterOf(err); !errors.Is(err, domain.ErrRateLimited) || d != 12500*time.Millisecond {
		t.Fatalf("expected loading rate limit, got %v", err)
	}
	m, err := h.GenerateImage(ctx, "a cat", "cartoon")
	if err != nil || m.ContentType != "image/png" || len(m.Data) == 0 {
		t.Fatalf("media=%+v err=%v", m, err)
	}
}

func TestHFImageAdapter_ClientErrorIsNotRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad prompt"}`))
	}))
	defer srv.Close()
	h, _ := NewHFImageAdapter("tok", srv.URL, time.Second)
	_, err := h.GenerateImage(context.Background(), "x", "")
	if err == nil || errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestOpenAIAdapter_GenerateImage(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"` + png + `"}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAIAdapter(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	_, err = o.GenerateImage(ctx, "a dog", "")
	if d, _ := domain.RetryAfterOf(err); !errors.Is(err, domain.ErrRateLimited) || d != 2*time.Second {
		t.Fatalf("expected rate limit with hint, got %v", err)
	}
	m, err := o.GenerateImage(ctx, "a dog", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(m.Data) != "png-bytes" {
		t.Fatalf("data = %q", m.Data)
	}
	if calls != 2 {
		t.Fatalf("sdk must not retry on its own, calls = %d", calls)
	}
}

func TestOpenAIAdapter_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"title\":\"Hi\",\"caption\":\"There\"}"}}],
			"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`))
	}))
	defer srv.Close()

	o, _ := NewOpenAIAdapter(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	msgs := []adapter.Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "hello"}}

	text, usage, err := o.Complete(context.Background(), "", msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.PromptTokens != 12 || usage.TotalTokens != 17 || text == "" {
		t.Fatalf("text=%q usage=%+v", text, usage)
	}

	var out struct {
		Title   string `json:"title"`
		Caption string `json:"caption"`
	}
	if _, err := o.CompleteJSON(context.Background(), "", msgs, "meta", &out); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out.Title != "Hi" || out.Caption != "There" {
		t.Fatalf("out = %+v", out)
	}
}

func TestNoopAIAdapter(t *testing.T) {
	n := NewNoopAIAdapter()
	ctx := context.Background()

	img, err := n.GenerateImage(ctx, "a prompt", "cartoon")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil || cfg.Width != n.Width || cfg.Height != n.Height {
		t.Fatalf("cfg=%+v err=%v", cfg, err)
	}

	voice, err := n.GenerateVoice(ctx, "one two three four five", model.VoiceParams{})
	if err != nil {
		t.Fatalf("voice: %v", err)
	}
	// 2 seconds of 16 kHz mono 16-bit plus a 44 byte header
	if len(voice.Data) != 44+2*16000*2 || string(voice.Data[:4]) != "RIFF" {
		t.Fatalf("wav length = %d", len(voice.Data))
	}
}

func TestLimiter_BoundsConcurrency(t *testing.T) {
	l := NewLimiter(1)
	var inFlight, peak int32
	slow := imageFunc(func(ctx context.Context, prompt, style string) (*adapter.Media, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &adapter.Media{}, nil
	})
	g := NewLimitedImages(slow, l)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			_, _ = g.GenerateImage(context.Background(), "p", "")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	if peak != 1 {
		t.Fatalf("peak concurrency = %d", peak)
	}
	if NewLimiter(0) != nil {
		t.Fatal("non-positive limit must disable limiting")
	}
}

type imageFunc func(ctx context.Context, prompt, style string) (*adapter.Media, error)

func (f imageFunc) GenerateImage(ctx context.Context, prompt, style string) (*adapter.Media, error) {
	return f(ctx, prompt, style)
}
