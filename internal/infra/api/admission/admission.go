// Package admission gates how many requests may be dispatched per unit time.
//
// This package contains:
//   - Admitter interface: blocks until a request may be dispatched
//   - TokenBucket: lazily refilled bucket with timer-based waiting
//   - RateAdmitter: adapter over golang.org/x/time/rate
package admission

import (
	"context"
	"fmt"
	"time"
)

// Admitter grants permission to dispatch one request.
type Admitter interface {
	// Acquire blocks until one permit is available and consumes it.
	// It only fails when ctx is done.
	Acquire(ctx context.Context) error

	// Release hands back a permit that was acquired but never used.
	Release()
}

// Strategy names an Admitter implementation.
type Strategy string

const (
	StrategyBucket Strategy = "bucket"
	StrategyRate   Strategy = "rate"
)

// Config holds admission settings.
type Config struct {
	Strategy     Strategy      `yaml:"strategy"`
	Rate         float64       `yaml:"rate"`          // tokens per second
	Capacity     float64       `yaml:"capacity"`      // burst size
	PollInterval time.Duration `yaml:"poll_interval"` // minimum wait between checks
}

// DefaultConfig admits one request per second with no burst.
var DefaultConfig = Config{
	Strategy:     StrategyBucket,
	Rate:         1,
	Capacity:     1,
	PollInterval: 100 * time.Millisecond,
}

// New builds the Admitter selected by cfg.
func New(cfg Config) (Admitter, error) {
	switch cfg.Strategy {
	case "", StrategyBucket:
		return NewTokenBucket(cfg.Rate, cfg.Capacity, WithPollInterval(cfg.PollInterval)), nil
	case StrategyRate:
		return NewRateAdmitter(cfg.Rate, int(cfg.Capacity)), nil
	default:
		return nil, fmt.Errorf("unknown admission strategy %q", cfg.Strategy)
	}
}
