// Package tg delivers mailings through the Telegram bot API.
package tg

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kompassi/kompassi/internal/mailings"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/observability"
)

// API is the part of *tgbotapi.BotAPI the sender uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

func New(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

// 5xx, 429 and timeouts are ours to look at. Validation errors like "chat not found" are not.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "timeout")
}

func isUnreachable(err error) bool {
	s := err.Error()
	return strings.Contains(s, "chat not found") ||
		strings.Contains(s, "bot was blocked by the user") ||
		strings.Contains(s, "user is deactivated")
}

type Sender struct {
	Bot API
}

func (s Sender) Send(ctx context.Context, to models.Person, m models.Message) error {
	if to.TelegramChatID == nil {
		return mailings.ErrUnreachable
	}

	text := m.Body
	if m.Subject != "" {
		text = m.Subject + "\n\n" + m.Body
	}
	msg := tgbotapi.NewMessage(*to.TelegramChatID, text)
	msg.DisableWebPagePreview = true

	_, err := s.Bot.Send(msg)
	switch {
	case err == nil:
		return nil
	case isUnreachable(err):
		return fmt.Errorf("%w: %v", mailings.ErrUnreachable, err)
	case isSystemErr(err):
		observability.CaptureCtxErr(ctx, err)
	}
	return err
}
