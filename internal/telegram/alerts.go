// Package telegram pushes optional operator alerts through a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"bot_license_panel/internal/config"
	"bot_license_panel/internal/logging"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

var createBot = func(token string, options ...bot.Option) (messageSender, error) {
	return bot.New(token, options...)
}

// Alerter sends operator notifications to the configured admin chat. Delivery
// is best-effort: failures are logged and never surfaced to the caller.
type Alerter struct {
	sender messageSender
	chatID int64
	logger *logrus.Entry
}

// NewAlerter initializes the alert channel. It returns nil when alerts are
// not configured, which callers treat as alerts-off.
func NewAlerter(cfg config.Config, logger *logrus.Entry) (*Alerter, error) {
	if !cfg.AlertsEnabled() {
		return nil, nil
	}
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	sender, err := createBot(cfg.TelegramToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("init telegram alert client: %w", err)
	}

	return &Alerter{
		sender: sender,
		chatID: cfg.TelegramAdminChat,
		logger: logger,
	}, nil
}

// BotRegistered announces a new registration awaiting approval.
func (a *Alerter) BotRegistered(ctx context.Context, clientName, token string) {
	a.send(ctx, fmt.Sprintf("New bot registered: %s (token %s). Awaiting approval.", clientName, token))
}

// StopRequested reports the outcome of a remote stop attempt.
func (a *Alerter) StopRequested(ctx context.Context, clientName, outcome string) {
	a.send(ctx, fmt.Sprintf("Stop requested for %s. Notify: %s.", clientName, outcome))
}

func (a *Alerter) send(ctx context.Context, text string) {
	if a == nil || a.sender == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := a.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: a.chatID,
		Text:   text,
	})
	if err != nil {
		a.logger.WithField("event", "alert_send_error").WithError(err).Warn("telegram alert delivery failed")
		return
	}

	a.logger.WithFields(logging.Fields{
		"event":   "alert_sent",
		"chat_id": a.chatID,
	}).Debug("telegram alert delivered")
}
