package compose

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrRetriesExhausted = errors.New("composition service unavailable")

// RetryPolicy bounds attempts against a busy service. The delay doubles
// after every retry.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy waits 2s, 4s, 8s and 16s between five attempts.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, BaseDelay: 2 * time.Second}

var unavailableMarkers = []string{"503", "overloaded", "UNAVAILABLE"}

// IsRetryable reports whether err says the service is temporarily
// unavailable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range unavailableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
