package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
)

// Notifier posts a short plain-text notice to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TelegramNotifier sends operator notices to a Telegram chat.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramNotifier creates a send-only bot client. getMe is skipped so
// that startup does not depend on Telegram being reachable.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func operatorNotice(job Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Nueva reserva #%s\n", job.ReservationID)
	fmt.Fprintf(&b, "%s <%s>\n", job.CustomerName, job.CustomerEmail)
	if job.TherapistName != "" {
		fmt.Fprintf(&b, "Terapeuta: %s\n", job.TherapistName)
	}
	fmt.Fprintf(&b, "%s (%d min)", job.WhenText, job.DurationMinutes)
	return b.String()
}
