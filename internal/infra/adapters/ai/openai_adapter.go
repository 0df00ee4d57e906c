package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the ports
var (
	_ adapter.ImageGenerator          = (*OpenAIAdapter)(nil)
	_ adapter.VoiceGenerator          = (*OpenAIAdapter)(nil)
	_ adapter.TextGenerator           = (*OpenAIAdapter)(nil)
	_ adapter.StructuredTextGenerator = (*OpenAIAdapter)(nil)
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty uses the public API
	TextModel  string
	ImageModel string
	TTSModel   string
}

// OpenAIAdapter covers text, image and speech generation through the
// official SDK. SDK retries are disabled; callers own the retry policy.
type OpenAIAdapter struct {
	client openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gpt-4o-mini"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "dall-e-3"
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = "tts-1"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (o *OpenAIAdapter) GenerateImage(ctx context.Context, prompt, style string) (*adapter.Media, error) {
	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(o.cfg.ImageModel),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1792,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, mapOpenAIError("image", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("openai image: empty response")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image: decode: %w", err)
	}
	return &adapter.Media{Data: data, ContentType: "image/png"}, nil
}

func (o *OpenAIAdapter) GenerateVoice(ctx context.Context, text string, p model.VoiceParams) (*adapter.Media, error) {
	voice := strings.ToLower(strings.TrimSpace(p.Name))
	if voice == "" {
		voice = "alloy"
	}
	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.cfg.TTSModel),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	if p.SpeakingRate > 0 {
		params.Speed = openai.Float(p.SpeakingRate)
	}
	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError("speech", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai speech: read: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("openai speech: empty response")
	}
	return &adapter.Media{Data: data, ContentType: "audio/mpeg"}, nil
}

func (o *OpenAIAdapter) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelOrDefault(model, o.cfg.TextModel)),
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", adapter.Usage{}, mapOpenAIError("chat", err)
	}
	return o.firstChoice(ctx, model, messages, resp)
}

// CompleteJSON constrains the completion to the JSON schema of out.
func (o *OpenAIAdapter) CompleteJSON(ctx context.Context, model string, messages []adapter.Message, name string, out any) (adapter.Usage, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelOrDefault(model, o.cfg.TextModel)),
		Messages: toOpenAIMessages(messages),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: schemaFor(out),
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return adapter.Usage{}, mapOpenAIError("chat", err)
	}
	text, usage, err := o.firstChoice(ctx, model, messages, resp)
	if err != nil {
		return usage, err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return usage, fmt.Errorf("openai chat: decode %s: %w", name, err)
	}
	return usage, nil
}

func (o *OpenAIAdapter) firstChoice(ctx context.Context, model string, messages []adapter.Message, resp *openai.ChatCompletion) (string, adapter.Usage, error) {
	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if u.PromptTokens == 0 {
		// some compatible gateways omit usage
		u.PromptTokens, _ = o.CountTokens(ctx, model, messages)
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, u, nil
		}
	}
	return "", u, errors.New("openai chat: no choice content")
}

// CountTokens estimates prompt tokens locally with tiktoken. When no
// encoding is available it falls back to four characters per token.
func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return countTokens(modelOrDefault(model, o.cfg.TextModel), messages), nil
}

func countTokens(model string, messages []adapter.Message) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	total := 0
	for _, m := range messages {
		// per-message overhead of the chat format
		total += 4
		if err != nil {
			total += (len(m.Content) + 3) / 4
			continue
		}
		total += len(enc.Encode(m.Content, nil, nil))
	}
	return total + 2
}

func toOpenAIMessages(msgs []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func mapOpenAIError(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		if rl := rateLimitFromResponse(apiErr.StatusCode, apiErr.Response.Header, err); rl != nil {
			return rl
		}
	}
	return fmt.Errorf("openai %s: %w", op, err)
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
