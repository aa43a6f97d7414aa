// Package notify delivers operator alerts to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/coin_economy/internal/config"
	"github.com/mroshb/coin_economy/pkg/logger"
)

// sender is the subset of *tgbotapi.BotAPI used for alerts.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramAlerter struct {
	api        sender
	chatID     int64
	maxRetries int
	backoff    time.Duration
}

// NewTelegramAlerter authorizes the alert bot configured in cfg.
func NewTelegramAlerter(cfg *config.Config) (*TelegramAlerter, error) {
	api, err := tgbotapi.NewBotAPI(cfg.AlertBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert bot: %w", err)
	}

	if cfg.AppEnv == "development" {
		api.Debug = true
	}

	logger.Info("Alert bot authorized", "username", api.Self.UserName, "chat_id", cfg.AlertChatID)
	return newTelegramAlerter(api, cfg.AlertChatID), nil
}

func newTelegramAlerter(api sender, chatID int64) *TelegramAlerter {
	return &TelegramAlerter{
		api:        api,
		chatID:     chatID,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// Alert sends subject and fields to the operator chat. Delivery failures are
// logged and never returned.
func (a *TelegramAlerter) Alert(ctx context.Context, subject string, fields map[string]interface{}) {
	msg := tgbotapi.NewMessage(a.chatID, FormatAlert(subject, fields))
	msg.DisableWebPagePreview = true

	for i := 0; i < a.maxRetries; i++ {
		_, err := a.api.Send(msg)
		if err == nil {
			return
		}
		logger.Error("Failed to send alert", "error", err, "chat_id", a.chatID, "attempt", i+1)

		if !isNetworkError(err) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(i+1) * a.backoff):
		}
	}
}

func isNetworkError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "network is unreachable")
}

// FormatAlert renders an alert as plain text with fields sorted by key.
func FormatAlert(subject string, fields map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("⚠️ ")
	b.WriteString(subject)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, fields[k])
	}
	return b.String()
}
