// Package notify delivers todo digests to chat services.
package notify

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the subset of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Summarizer produces the digest text.
type Summarizer interface {
	Summary(ctx context.Context) (string, error)
}

// TelegramNotifier posts digests to a single Telegram chat.
type TelegramNotifier struct {
	api     Sender
	chatID  int64
	reports Summarizer
	logger  *log.Logger
}

// NewTelegramNotifier authorizes against the Bot API with token.
func NewTelegramNotifier(token string, chatID int64, reports Summarizer, logger *log.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	n := NewTelegramNotifierWithSender(api, chatID, reports, logger)
	n.logger.Info("bot authorized", "account", api.Self.UserName)
	return n, nil
}

// NewTelegramNotifierWithSender builds a notifier around an existing sender.
func NewTelegramNotifierWithSender(api Sender, chatID int64, reports Summarizer, logger *log.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		api:     api,
		chatID:  chatID,
		reports: reports,
		logger:  logger.WithPrefix("telegram"),
	}
}

// SendReport builds the current digest and posts it.
func (n *TelegramNotifier) SendReport(ctx context.Context) error {
	summary, err := n.reports.Summary(ctx)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.sendHTML(summary); err != nil {
		return fmt.Errorf("send summary to %d: %w", n.chatID, err)
	}
	n.logger.Info("digest sent", "chat", n.chatID)
	return nil
}

func (n *TelegramNotifier) sendHTML(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := n.api.Send(msg)
	return err
}
