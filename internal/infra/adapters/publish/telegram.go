// File: internal/infra/adapters/publish/telegram.go
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/infra/logging"
)

var _ adapter.Publisher = (*TelegramPublisher)(nil)

// TelegramPublisher posts rendered videos to one channel or chat.
type TelegramPublisher struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

// NewTelegramPublisher connects to the Bot API. apiEndpoint may be empty.
func NewTelegramPublisher(token string, chatID int64, apiEndpoint string, logger *zerolog.Logger) (*TelegramPublisher, error) {
	if token == "" {
		return nil, errors.New("telegram token empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id empty")
	}
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, apiEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	l := logging.OrNop(logger).With().Str("component", "TelegramPublisher").Logger()
	return &TelegramPublisher{bot: bot, chatID: chatID, log: &l}, nil
}

func (t *TelegramPublisher) Name() string { return "telegram" }

func (t *TelegramPublisher) Publish(ctx context.Context, req adapter.PublishRequest) (*adapter.PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := tgbotapi.NewVideo(t.chatID, tgbotapi.FilePath(req.FilePath))
	v.Caption = TelegramCaption(req)
	v.SupportsStreaming = true

	msg, err := t.bot.Send(v)
	if err != nil {
		return nil, fmt.Errorf("telegram send: %w: %w", domain.ErrGenerationFailed, err)
	}

	res := &adapter.PublishResult{Target: t.Name(), ExternalID: fmt.Sprint(msg.MessageID)}
	if msg.Chat != nil && msg.Chat.UserName != "" {
		res.URL = fmt.Sprintf("https://t.me/%s/%d", msg.Chat.UserName, msg.MessageID)
	}
	logging.With(ctx, t.log).Info().Int("message_id", msg.MessageID).Msg("posted")
	return res, nil
}

// TelegramCaption joins title, description and hashtags within the 1024
// character caption limit.
func TelegramCaption(req adapter.PublishRequest) string {
	parts := []string{}
	if s := strings.TrimSpace(req.Title); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(req.Description); s != "" {
		parts = append(parts, s)
	}
	if len(req.Tags) > 0 {
		tags := make([]string, 0, len(req.Tags))
		for _, tg := range req.Tags {
			tg = strings.Join(strings.Fields(strings.TrimPrefix(tg, "#")), "")
			if tg != "" {
				tags = append(tags, "#"+tg)
			}
		}
		if len(tags) > 0 {
			parts = append(parts, strings.Join(tags, " "))
		}
	}
	return truncateRunes(strings.Join(parts, "\n\n"), 1024)
}
