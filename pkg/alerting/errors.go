package alerting

import "errors"

var (
	ErrNotConfigured  = errors.New("notification credentials not configured")
	ErrDeliveryFailed = errors.New("notification delivery failed")
)
