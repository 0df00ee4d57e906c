package ai

import (
	"context"

	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
)

// Compile-time check
var (
	_ adapter.ImageGenerator          = (*limitedImages)(nil)
	_ adapter.VoiceGenerator          = (*limitedVoices)(nil)
	_ adapter.TextGenerator           = (*limitedText)(nil)
	_ adapter.StructuredTextGenerator = (*limitedText)(nil)
)

// Limiter bounds concurrent provider calls across all wrapped adapters that
// share it.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter returns nil when maxConcurrent <= 0, which disables limiting.
func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		return nil
	}
	return &Limiter{sem: make(chan struct{}, maxConcurrent)}
}

func (l *Limiter) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) release() { <-l.sem }

type limitedImages struct {
	inner adapter.ImageGenerator
	l     *Limiter
}

func NewLimitedImages(inner adapter.ImageGenerator, l *Limiter) adapter.ImageGenerator {
	if l == nil || inner == nil {
		return inner
	}
	return &limitedImages{inner: inner, l: l}
}

func (w *limitedImages) GenerateImage(ctx context.Context, prompt, style string) (*adapter.Media, error) {
	if err := w.l.acquire(ctx); err != nil {
		return nil, err
	}
	defer w.l.release()
	return w.inner.GenerateImage(ctx, prompt, style)
}

type limitedVoices struct {
	inner adapter.VoiceGenerator
	l     *Limiter
}

func NewLimitedVoices(inner adapter.VoiceGenerator, l *Limiter) adapter.VoiceGenerator {
	if l == nil || inner == nil {
		return inner
	}
	return &limitedVoices{inner: inner, l: l}
}

func (w *limitedVoices) GenerateVoice(ctx context.Context, text string, p model.VoiceParams) (*adapter.Media, error) {
	if err := w.l.acquire(ctx); err != nil {
		return nil, err
	}
	defer w.l.release()
	return w.inner.GenerateVoice(ctx, text, p)
}

type limitedText struct {
	inner adapter.TextGenerator
	l     *Limiter
}

// NewLimitedText wraps a text generator. The wrapper always exposes
// CompleteJSON; it delegates to the inner generator's when available.
func NewLimitedText(inner adapter.TextGenerator, l *Limiter) adapter.TextGenerator {
	if l == nil || inner == nil {
		return inner
	}
	return &limitedText{inner: inner, l: l}
}

func (w *limitedText) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	// local for most providers; not limited
	return w.inner.CountTokens(ctx, model, messages)
}

func (w *limitedText) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if err := w.l.acquire(ctx); err != nil {
		return "", adapter.Usage{}, err
	}
	defer w.l.release()
	return w.inner.Complete(ctx, model, messages)
}

func (w *limitedText) CompleteJSON(ctx context.Context, model string, messages []adapter.Message, name string, out any) (adapter.Usage, error) {
	if err := w.l.acquire(ctx); err != nil {
		return adapter.Usage{}, err
	}
	defer w.l.release()
	if s, ok := w.inner.(adapter.StructuredTextGenerator); ok {
		return s.CompleteJSON(ctx, model, messages, name, out)
	}
	return NewMultiTextAdapter("", map[string]adapter.TextGenerator{"": w.inner}, nil).CompleteJSON(ctx, model, messages, name, out)
}
