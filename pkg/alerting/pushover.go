// Package alerting pkg/alerting/pushover.go
package alerting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/logger"
)

const (
	pushoverAPIURL  = "https://api.pushover.net/1/messages.json"
	pushoverTimeout = 10 * time.Second

	// Emergency-priority messages must carry retry/expire parameters.
	emergencyRetry  = 60 * time.Second
	emergencyExpire = time.Hour
)

// PushoverNotifier delivers notifications through the Pushover API.
type PushoverNotifier struct {
	token   string
	userKey string
	client  *http.Client
	apiURL  string
	log     zerolog.Logger
}

// NewPushoverNotifier creates a notifier with the given credentials.
func NewPushoverNotifier(token, userKey string) *PushoverNotifier {
	return &PushoverNotifier{
		token:   token,
		userKey: userKey,
		client:  &http.Client{Timeout: pushoverTimeout},
		apiURL:  pushoverAPIURL,
		log:     logger.Component("pushover"),
	}
}

// Notify implements the Notifier interface.
func (p *PushoverNotifier) Notify(ctx context.Context, priority int, title, body string) error {
	if p.token == "" || p.userKey == "" {
		return ErrNotConfigured
	}

	form := url.Values{
		"token":    {p.token},
		"user":     {p.userKey},
		"title":    {title},
		"message":  {body},
		"priority": {strconv.Itoa(priority)},
	}

	if priority == 2 {
		form.Set("retry", strconv.Itoa(int(emergencyRetry.Seconds())))
		form.Set("expire", strconv.Itoa(int(emergencyExpire.Seconds())))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build pushover request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	p.log.Debug().Str("title", title).Int("priority", priority).Msg("notification sent")

	return nil
}

// NoopNotifier drops every notification. Used when no transport is
// configured so the throttler can still run.
type NoopNotifier struct{}

// Notify implements the Notifier interface.
func (NoopNotifier) Notify(context.Context, int, string, string) error {
	return nil
}
