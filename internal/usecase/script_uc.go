package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
)

var _ ScriptUseCase = (*scriptUC)(nil)

const (
	maxKeywordLen     = 100
	defaultStyle      = "informative"
	defaultLanguage   = "en"
	defaultWordCount  = 100
	defaultTrendLimit = 5
	maxTrendLimit     = 25
)

type WriteScriptInput struct {
	Keyword   string `json:"keyword"`
	Style     string `json:"style"`
	Language  string `json:"language"`
	WordCount int    `json:"word_count"`
}

type VideoMetadata struct {
	Title   string `json:"title" jsonschema_description:"Short catchy title for the video"`
	Caption string `json:"caption" jsonschema_description:"Caption to post with the video"`
}

type ScriptUseCase interface {
	// WriteScript asks the text model for a "<visual> <narration>" script.
	WriteScript(ctx context.Context, in WriteScriptInput) (string, error)
	// WriteMetadata proposes a title and caption for a video about videoContext.
	WriteMetadata(ctx context.Context, videoContext, lang string) (*VideoMetadata, error)
	// Trending lists popular topics. source is a subreddit when a trend source
	// is configured, otherwise a region passed to the text model.
	Trending(ctx context.Context, source string, limit int) ([]string, error)
}

type scriptUC struct {
	text       adapter.TextGenerator
	trends     adapter.TrendSource
	model      string
	maxTokens  int
	defaultSrc string
	log        *zerolog.Logger
}

// NewScriptUseCase builds the writer. trends may be nil.
func NewScriptUseCase(text adapter.TextGenerator, trends adapter.TrendSource, model string, maxPromptTokens int, defaultSource string, logger *zerolog.Logger) *scriptUC {
	return &scriptUC{
		text:       text,
		trends:     trends,
		model:      model,
		maxTokens:  maxPromptTokens,
		defaultSrc: defaultSource,
		log:        logging.OrNop(logger),
	}
}

func (s *scriptUC) WriteScript(ctx context.Context, in WriteScriptInput) (string, error) {
	in.Keyword = strings.TrimSpace(in.Keyword)
	if in.Keyword == "" || utf8.RuneCountInString(in.Keyword) > maxKeywordLen {
		return "", fmt.Errorf("keyword must be 1-%d characters: %w", maxKeywordLen, domain.ErrInvalidArgument)
	}
	if in.WordCount < 0 {
		return "", fmt.Errorf("word_count must be positive: %w", domain.ErrInvalidArgument)
	}
	if in.WordCount == 0 {
		in.WordCount = defaultWordCount
	}
	if in.Style == "" {
		in.Style = defaultStyle
	}
	if in.Language == "" {
		in.Language = defaultLanguage
	}

	msgs := []adapter.Message{
		{Role: "system", Content: "You are a creative expert in short-form vertical video content."},
		{Role: "user", Content: fmt.Sprintf(
			"Write a %s script of about %d words for a short social media video about %q, in language %q. "+
				"For every scene output exactly two angle-bracketed parts: <visual description> <narration for that scene>. "+
				"Output nothing outside the brackets.",
			in.Style, in.WordCount, in.Keyword, in.Language)},
	}
	out, err := s.complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

var codeFence = regexp.MustCompile("(?m)^```(?:json)?\\s*|```\\s*$")

func (s *scriptUC) WriteMetadata(ctx context.Context, videoContext, lang string) (*VideoMetadata, error) {
	videoContext = strings.TrimSpace(videoContext)
	if videoContext == "" {
		return nil, fmt.Errorf("empty video context: %w", domain.ErrInvalidArgument)
	}
	if lang == "" {
		lang = defaultLanguage
	}
	msgs := []adapter.Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: fmt.Sprintf(
			"Generate a suitable title and caption for this video to share on social platforms. "+
				"Video context: %q. Respond in JSON with keys \"title\" and \"caption\". Use language: %s.",
			videoContext, lang)},
	}
	var meta VideoMetadata
	if sg, ok := s.text.(adapter.StructuredTextGenerator); ok {
		if err := s.checkBudget(ctx, msgs); err != nil {
			return nil, err
		}
		usage, err := sg.CompleteJSON(ctx, s.model, msgs, "video_metadata", &meta)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		}
		metrics.ObserveTextUsage(s.model, usage.PromptTokens, usage.CompletionTokens)
	} else {
		out, err := s.complete(ctx, msgs)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(StripCodeFence(out)), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w: %w", domain.ErrGenerationFailed, err)
		}
	}
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Caption = strings.TrimSpace(meta.Caption)
	return &meta, nil
}

func (s *scriptUC) Trending(ctx context.Context, source string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultTrendLimit
	}
	limit = min(limit, maxTrendLimit)
	if source == "" {
		source = s.defaultSrc
	}
	if s.trends != nil {
		return s.trends.Trending(ctx, source, limit)
	}

	msgs := []adapter.Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: fmt.Sprintf(
			"List %d specific trending entertainment topics right now in %s as a numbered list from 1 to %d. "+
				"Add nothing outside the list.", limit, source, limit)},
	}
	out, err := s.complete(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return numberedLines(out, limit), nil
}

func (s *scriptUC) complete(ctx context.Context, msgs []adapter.Message) (string, error) {
	if s.text == nil {
		return "", fmt.Errorf("text generation: %w", domain.ErrNotConfigured)
	}
	if err := s.checkBudget(ctx, msgs); err != nil {
		return "", err
	}
	out, usage, err := s.text.Complete(ctx, s.model, msgs)
	if err != nil {
		logging.With(ctx, s.log).Warn().Err(err).Str("model", s.model).Msg("completion failed")
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	metrics.ObserveTextUsage(s.model, usage.PromptTokens, usage.CompletionTokens)
	return out, nil
}

func (s *scriptUC) checkBudget(ctx context.Context, msgs []adapter.Message) error {
	if s.maxTokens <= 0 {
		return nil
	}
	n, err := s.text.CountTokens(ctx, s.model, msgs)
	if err == nil && n > s.maxTokens {
		return fmt.Errorf("prompt uses %d tokens, limit %d: %w", n, s.maxTokens, domain.ErrInvalidArgument)
	}
	return nil
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	return strings.TrimSpace(codeFence.ReplaceAllString(s, ""))
}

var listPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

func numberedLines(s string, limit int) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
