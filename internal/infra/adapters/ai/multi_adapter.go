// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"shorts-studio/internal/domain/ports/adapter"
)

var (
	_ adapter.TextGenerator           = (*MultiTextAdapter)(nil)
	_ adapter.StructuredTextGenerator = (*MultiTextAdapter)(nil)
)

// MultiTextAdapter routes text calls to a provider by model name.
type MultiTextAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	byProvider      map[string]adapter.TextGenerator
	modelToProvider map[string]string // model -> provider ("openai" | "gemini")
}

// NewMultiTextAdapter does not inject any default model; it only knows a
// default provider. Each provider adapter is responsible for its own default
// model.
func NewMultiTextAdapter(
	defaultProvider string,
	byProvider map[string]adapter.TextGenerator,
	modelToProvider map[string]string,
) *MultiTextAdapter {
	return &MultiTextAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiTextAdapter) resolveProvider(model string) string {
	if p := m.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiTextAdapter) pick(model string) adapter.TextGenerator {
	prov := m.resolveProvider(model)
	if a := m.byProvider[prov]; a != nil {
		return a
	}
	// last resort: first available
	for _, a := range m.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

var errNoTextProvider = errors.New("no text provider configured")

func (m *MultiTextAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	a := m.pick(model)
	if a == nil {
		return 0, nil
	}
	return a.CountTokens(ctx, model, messages)
}

func (m *MultiTextAdapter) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	a := m.pick(model)
	if a == nil {
		return "", adapter.Usage{}, errNoTextProvider
	}
	return a.Complete(ctx, model, messages)
}

// CompleteJSON uses schema-constrained output when the routed provider
// supports it, and plain completion plus JSON decoding otherwise.
func (m *MultiTextAdapter) CompleteJSON(ctx context.Context, model string, messages []adapter.Message, name string, out any) (adapter.Usage, error) {
	a := m.pick(model)
	if a == nil {
		return adapter.Usage{}, errNoTextProvider
	}
	if s, ok := a.(adapter.StructuredTextGenerator); ok {
		return s.CompleteJSON(ctx, model, messages, name, out)
	}
	text, usage, err := a.Complete(ctx, model, messages)
	if err != nil {
		return usage, err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), out); err != nil {
		return usage, fmt.Errorf("decode %s: %w", name, err)
	}
	return usage, nil
}

var fence = regexp.MustCompile("(?m)^```(?:json)?\\s*|```\\s*$")

func stripFence(s string) string {
	return strings.TrimSpace(fence.ReplaceAllString(strings.TrimSpace(s), ""))
}
