package adapter

import (
	"context"

	"shorts-studio/internal/domain/model"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single text call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Media is a generated binary artifact.
type Media struct {
	Data        []byte
	ContentType string
}

// ImageGenerator is the port for text-to-image providers.
// Throttling must be reported as *domain.RateLimitError; anything else is
// treated as a permanent failure by callers.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, style string) (*Media, error)
}

// VoiceGenerator is the port for text-to-speech providers. Same error
// contract as ImageGenerator.
type VoiceGenerator interface {
	GenerateVoice(ctx context.Context, text string, params model.VoiceParams) (*Media, error)
}

// TextGenerator is the port for LLM completion, used to write scripts and
// titles.
type TextGenerator interface {
	// CountTokens returns prompt tokens for the provided messages
	// (best-effort when the provider has no exact counter).
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)

	// Complete returns the assistant text and usage as reported by the provider.
	Complete(ctx context.Context, model string, messages []Message) (string, Usage, error)
}

// StructuredTextGenerator is implemented by text providers that can constrain
// a completion to the JSON schema of out and decode into it.
type StructuredTextGenerator interface {
	CompleteJSON(ctx context.Context, model string, messages []Message, name string, out any) (Usage, error)
}
