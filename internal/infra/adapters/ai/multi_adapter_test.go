package ai_test

import (
	"context"
	"testing"

	"shorts-studio/internal/domain/ports/adapter"
	ai "shorts-studio/internal/infra/adapters/ai"
)

type stubText struct {
	name      string
	ctN       int
	cN        int
	lastModel string
	reply     string
}

func (s *stubText) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	s.ctN++
	s.lastModel = model
	return 1, nil
}

func (s *stubText) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	s.cN++
	s.lastModel = model
	reply := s.reply
	if reply == "" {
		reply = "ok"
	}
	return reply, adapter.Usage{PromptTokens: 1, CompletionTokens: 1}, nil
}

func TestRouting_ExplicitMap_Heuristics_And_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubText{name: "openai"}
	gem := &stubText{name: "gemini"}

	m := ai.NewMultiTextAdapter(
		"openai",
		map[string]adapter.TextGenerator{"openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
	)

	// explicit map wins
	_, _ = m.CountTokens(ctx, "custom-x", nil)
	if gem.ctN != 1 || open.ctN != 0 {
		t.Fatalf("explicit map should route to gemini, got open:%d gem:%d", open.ctN, gem.ctN)
	}

	// gpt-* -> openai
	_, _, _ = m.Complete(ctx, "gpt-4o-mini", nil)
	if open.cN != 1 || gem.cN != 0 {
		t.Fatalf("gpt model should route to openai, got open:%d gem:%d", open.cN, gem.cN)
	}

	// gemini-* -> gemini
	_, _, _ = m.Complete(ctx, "gemini-2.0-flash", nil)
	if gem.cN != 1 {
		t.Fatalf("gemini model should route to gemini, got %d", gem.cN)
	}

	// unknown -> default provider
	_, _, _ = m.Complete(ctx, "mystery", nil)
	if open.cN != 2 {
		t.Fatalf("unknown model should use default provider, got open:%d", open.cN)
	}

	// missing provider -> first available
	only := ai.NewMultiTextAdapter("anthropic", map[string]adapter.TextGenerator{"gemini": gem}, nil)
	_, _, _ = only.Complete(ctx, "whatever", nil)
	if gem.cN != 2 {
		t.Fatalf("fallback should reach the only provider, got %d", gem.cN)
	}
}

func TestCompleteJSON_FallsBackToPlainCompletion(t *testing.T) {
	t.Parallel()
	txt := &stubText{reply: "```json\n{\"title\":\"T\",\"caption\":\"C\"}\n```"}
	m := ai.NewMultiTextAdapter("openai", map[string]adapter.TextGenerator{"openai": txt}, nil)

	var out struct {
		Title   string `json:"title"`
		Caption string `json:"caption"`
	}
	if _, err := m.CompleteJSON(context.Background(), "gpt-4o-mini", nil, "meta", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Title != "T" || out.Caption != "C" {
		t.Fatalf("out = %+v", out)
	}
}

func TestNoMultiProvider(t *testing.T) {
	t.Parallel()
	m := ai.NewMultiTextAdapter("openai", nil, nil)
	if _, _, err := m.Complete(context.Background(), "gpt-4o", nil); err == nil {
		t.Fatal("expected error without providers")
	}
}
