// Package compose asks a language model for a loop and turns the answer into
// a playable score.
package compose

import (
	"context"
	"fmt"
	"time"

	"github.com/cbegin/skyline-go/internal/logger"
	"github.com/cbegin/skyline-go/internal/score"
)

// Request is one attempt's payload.
type Request struct {
	Model  string
	Brief  string
	Schema map[string]any
}

// Backend performs one request/response call and returns the raw JSON text.
type Backend interface {
	Compose(ctx context.Context, req Request) (string, error)
	Name() string
}

type Option func(*Client)

func WithPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

type Client struct {
	backend Backend
	model   string
	policy  RetryPolicy
	sleep   SleepFunc
}

func NewClient(backend Backend, model string, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		model:   model,
		policy:  DefaultRetryPolicy,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.Attempts < 1 {
		c.policy.Attempts = 1
	}
	return c
}

// Generate composes a loop for instruments. With no instruments it does
// nothing and returns (nil, nil). progress, if set, receives user-facing
// status lines.
func (c *Client) Generate(ctx context.Context, instruments []score.Instrument, progress func(string)) (*score.Score, error) {
	if len(instruments) == 0 {
		return nil, nil
	}
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}
	req := Request{Model: c.model, Brief: BuildBrief(instruments), Schema: ScoreSchema()}
	delay := c.policy.BaseDelay
	for attempt := 1; ; attempt++ {
		report(fmt.Sprintf("Generating music (Attempt %d/%d)...", attempt, c.policy.Attempts))
		start := time.Now()
		text, err := c.backend.Compose(ctx, req)
		if err == nil {
			sc, perr := Parse(text)
			if perr != nil {
				logger.Error("composition rejected", perr, logger.Fields{"provider": c.backend.Name()})
				return nil, perr
			}
			logger.Info("composition received", logger.Fields{
				"provider":    c.backend.Name(),
				"attempt":     attempt,
				"duration_ms": time.Since(start).Milliseconds(),
				"tracks":      len(sc.Tracks),
			})
			return sc, nil
		}
		if !IsRetryable(err) {
			logger.Error("composition failed", err, logger.Fields{"provider": c.backend.Name(), "attempt": attempt})
			return nil, fmt.Errorf("compose: %w", err)
		}
		if attempt >= c.policy.Attempts {
			logger.Error("composition retries exhausted", err, logger.Fields{"provider": c.backend.Name()})
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}
		logger.Warn("composition service busy", logger.Fields{"attempt": attempt, "retry_in": delay.String()})
		report(fmt.Sprintf("Model is busy. Retrying in %ds...", int(delay/time.Second)))
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
}
