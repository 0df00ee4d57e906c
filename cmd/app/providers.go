package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"shorts-studio/internal/config"
	"shorts-studio/internal/domain/ports/adapter"
	aiAdapters "shorts-studio/internal/infra/adapters/ai"
	"shorts-studio/internal/infra/adapters/publish"
)

// generators bundles the provider adapters chosen by config.
type generators struct {
	images adapter.ImageGenerator
	voices adapter.VoiceGenerator
	text   adapter.TextGenerator
}

func buildGenerators(ctx context.Context, cfg config.AIConfig, log *zerolog.Logger) (*generators, error) {
	var (
		oa   *aiAdapters.OpenAIAdapter
		gem  *aiAdapters.GeminiAdapter
		noop = aiAdapters.NewNoopAIAdapter()
		err  error
	)
	if cfg.OpenAIKey != "" {
		oa, err = aiAdapters.NewOpenAIAdapter(aiAdapters.OpenAIConfig{
			APIKey:     cfg.OpenAIKey,
			TextModel:  cfg.TextModel,
			ImageModel: cfg.ImageModel,
			TTSModel:   cfg.TTSModel,
		})
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
	}
	if cfg.GeminiKey != "" {
		gem, err = aiAdapters.NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.GeminiModel, "", 1024)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
	}

	g := &generators{}
	switch strings.ToLower(cfg.ImageProvider) {
	case "openai":
		if oa == nil {
			return nil, fmt.Errorf("ai.image_provider=openai needs ai.openai_key")
		}
		g.images = oa
	case "gemini":
		if gem == nil {
			return nil, fmt.Errorf("ai.image_provider=gemini needs ai.gemini_key")
		}
		g.images = gem
	case "hf":
		hf, err := aiAdapters.NewHFImageAdapter(cfg.HFToken, cfg.HFURL, cfg.CallTimeout)
		if err != nil {
			return nil, fmt.Errorf("hf adapter: %w", err)
		}
		g.images = hf
	case "noop":
		g.images = noop
	default:
		return nil, fmt.Errorf("unknown ai.image_provider %q", cfg.ImageProvider)
	}

	switch strings.ToLower(cfg.VoiceProvider) {
	case "openai":
		if oa == nil {
			return nil, fmt.Errorf("ai.voice_provider=openai needs ai.openai_key")
		}
		g.voices = oa
	case "noop":
		g.voices = noop
	default:
		return nil, fmt.Errorf("unknown ai.voice_provider %q", cfg.VoiceProvider)
	}

	byProvider := map[string]adapter.TextGenerator{}
	defaultProvider := "noop"
	if gem != nil {
		byProvider["gemini"] = gem
		defaultProvider = "gemini"
	}
	if oa != nil {
		byProvider["openai"] = oa
		defaultProvider = "openai"
	}
	if len(byProvider) == 0 {
		log.Warn().Msg("no text provider configured; script writing returns canned text")
		byProvider["noop"] = noop
	}
	g.text = aiAdapters.NewMultiTextAdapter(defaultProvider, byProvider, nil)

	lim := aiAdapters.NewLimiter(cfg.ConcurrentLimit)
	g.images = aiAdapters.NewLimitedImages(g.images, lim)
	g.voices = aiAdapters.NewLimitedVoices(g.voices, lim)
	g.text = aiAdapters.NewLimitedText(g.text, lim)

	log.Info().
		Str("images", cfg.ImageProvider).
		Str("voices", cfg.VoiceProvider).
		Str("text", defaultProvider).
		Int("concurrency", cfg.ConcurrentLimit).
		Msg("generators configured")
	return g, nil
}

func buildPublishers(cfg config.PublishConfig, log *zerolog.Logger) []adapter.Publisher {
	var out []adapter.Publisher
	yt := cfg.YouTube
	if yt.ClientID != "" && yt.RefreshToken != "" {
		p, err := publish.NewYouTubePublisher(publish.YouTubeConfig{
			ClientID:     yt.ClientID,
			ClientSecret: yt.ClientSecret,
			RefreshToken: yt.RefreshToken,
			CategoryID:   yt.CategoryID,
		}, log)
		if err != nil {
			log.Error().Err(err).Msg("youtube publisher disabled")
		} else {
			out = append(out, p)
		}
	}
	if tg := cfg.Telegram; tg.Token != "" {
		p, err := publish.NewTelegramPublisher(tg.Token, tg.ChatID, "", log)
		if err != nil {
			log.Error().Err(err).Msg("telegram publisher disabled")
		} else {
			out = append(out, p)
		}
	}
	return out
}
