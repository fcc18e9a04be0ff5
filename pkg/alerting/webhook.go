// Package alerting pkg/alerting/webhook.go
package alerting

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/logger"
)

const (
	webhookTimeout    = 10 * time.Second
	webhookMaxRetries = 3
	webhookRetryDelay = 5 * time.Second

	defaultSignatureHeader = "X-Signature"
)

// WebhookConfig configures an outbound notification webhook.
type WebhookConfig struct {
	Enabled         bool              `json:"enabled"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers,omitempty"`
	Secret          string            `json:"secret,omitempty"`           // HMAC-SHA256 signing key
	SignatureHeader string            `json:"signature_header,omitempty"` // Header carrying the signature
}

// webhookPayload is the JSON body posted for every notification.
type webhookPayload struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  int       `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookNotifier posts notifications to an HTTP endpoint, optionally
// signing the body so the receiver can verify the source. Transient
// failures are retried a few times before giving up.
type WebhookNotifier struct {
	config WebhookConfig
	client *http.Client
	log    zerolog.Logger
}

// NewWebhookNotifier creates a notifier for config.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	if config.SignatureHeader == "" {
		config.SignatureHeader = defaultSignatureHeader
	}

	return &WebhookNotifier{
		config: config,
		client: &http.Client{Timeout: webhookTimeout},
		log:    logger.Component("webhook"),
	}
}

// Notify implements the Notifier interface.
func (h *WebhookNotifier) Notify(ctx context.Context, priority int, title, body string) error {
	if h.config.URL == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(webhookPayload{
		Title:     title,
		Message:   body,
		Priority:  priority,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	var lastErr error

	for attempt := 0; attempt < webhookMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(webhookRetryDelay):
			}
		}

		if lastErr = h.post(ctx, payload); lastErr == nil {
			return nil
		}

		h.log.Debug().Err(lastErr).Int("attempt", attempt+1).Msg("webhook delivery failed")
	}

	return fmt.Errorf("%w: %w", ErrDeliveryFailed, lastErr)
}

func (h *WebhookNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL,
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range h.config.Headers {
		req.Header.Set(key, value)
	}

	if h.config.Secret != "" {
		req.Header.Set(h.config.SignatureHeader, sign(payload, h.config.Secret))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

// sign computes the hex HMAC-SHA256 of the payload.
func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

// MultiNotifier fans one notification out to several transports. A
// failure on one transport does not stop the others; the first error is
// reported.
type MultiNotifier []Notifier

// Notify implements the Notifier interface.
func (m MultiNotifier) Notify(ctx context.Context, priority int, title, body string) error {
	var firstErr error

	for _, n := range m {
		if err := n.Notify(ctx, priority, title, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
