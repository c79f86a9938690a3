// Package notify delivers best-effort stop/restart signals to a bot's
// self-reported callback endpoint.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"bot_license_panel/internal/logging"
)

const (
	// killPath is the well-known endpoint a remote-controllable bot exposes.
	killPath = "/internal/kill"

	// requestTimeout bounds the single delivery attempt so a dead callback
	// never stalls the operator's request.
	requestTimeout = 5 * time.Second
)

// ErrNoEndpoint reports that the bot registered without a callback URL; the
// triggering operation still succeeds, with an advisory instead of a signal.
var ErrNoEndpoint = errors.New("no reachable endpoint")

type killRequest struct {
	Key string `json:"key"`
}

// Notifier issues at-most-one kill request per invocation. No retries, no
// backoff: the receiving bot has no idempotency tracking, and the polling
// contract already guarantees the bot observes pending state on its next poll.
type Notifier struct {
	client *resty.Client
	secret string
	logger *logrus.Entry
}

// NewNotifier constructs a Notifier authenticating with the shared secret.
func NewNotifier(secret string, logger *logrus.Entry) *Notifier {
	if logger == nil {
		logger = logging.Logger()
	}

	client := resty.New().
		SetTimeout(requestTimeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")

	return &Notifier{
		client: client,
		secret: secret,
		logger: logger,
	}
}

// Notify posts the kill request to the bot's callback address. Returns
// ErrNoEndpoint when callbackURL is empty; any transport or status failure is
// returned for advisory reporting and must never fail the enclosing operation.
func (n *Notifier) Notify(ctx context.Context, callbackURL string) error {
	if n == nil || n.client == nil {
		return errors.New("notifier is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	callbackURL = strings.TrimSpace(callbackURL)
	if callbackURL == "" {
		return ErrNoEndpoint
	}

	target := strings.TrimSuffix(callbackURL, "/") + killPath

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(killRequest{Key: n.secret}).
		Post(target)
	if err != nil {
		n.logger.WithFields(logging.Fields{
			"event": "notify_failed",
			"url":   target,
		}).WithError(err).Warn("kill request failed")
		return fmt.Errorf("notify bot: %w", err)
	}

	if resp.IsError() {
		n.logger.WithFields(logging.Fields{
			"event":  "notify_rejected",
			"url":    target,
			"status": resp.StatusCode(),
		}).Warn("kill request rejected by bot")
		return fmt.Errorf("notify bot: unexpected status %d", resp.StatusCode())
	}

	n.logger.WithFields(logging.Fields{
		"event": "notify_sent",
		"url":   target,
	}).Info("kill request delivered")

	return nil
}
