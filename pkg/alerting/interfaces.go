// Package alerting pkg/alerting/interfaces.go
package alerting

import "context"

//go:generate mockgen -destination=mock_alerting.go -package=alerting github.com/beamstate/beamstate/pkg/alerting Notifier

// Notifier delivers a single notification. Transport-level retry and
// backoff are the implementation's concern, not the throttler's.
type Notifier interface {
	Notify(ctx context.Context, priority int, title, body string) error
}
