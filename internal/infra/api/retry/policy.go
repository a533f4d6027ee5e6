// Package retry executes a single logical request with classification and backoff.
//
// This package contains:
//   - Policy: attempt budget and backoff schedule
//   - Classify: maps a transport result onto an Outcome
//   - Executor: the send/classify/sleep loop
//   - FailedRequest, ConfigurationError: errors surfaced to callers
package retry

import (
	"math"
	"net/http"
	"time"
)

// Unbounded retries forever.
const Unbounded = -1

// Policy defines retry behavior for one logical call.
type Policy struct {
	// MaxAttempts is the number of retries after the first try.
	// Unbounded (-1) never gives up, 0 sends exactly once.
	MaxAttempts int

	// BaseInterval is the wait before the first retry.
	BaseInterval time.Duration

	// BackoffMultiplier scales the wait after every retry. Values below 1 are treated as 1.
	BackoffMultiplier float64

	// MaxInterval caps a single wait. Zero means no cap.
	MaxInterval time.Duration

	// RetryableStatuses are the HTTP statuses worth retrying.
	RetryableStatuses map[int]bool

	// StrictErrors reports non-retryable statuses with a decodable error body
	// as failures instead of logging them and returning an empty result.
	StrictErrors bool
}

// DefaultRetryableStatuses are rate limiting and transient server errors.
func DefaultRetryableStatuses() map[int]bool {
	return map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	}
}

// DefaultPolicy retries forever, waiting 60s, 180s, 540s and so on.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       Unbounded,
		BaseInterval:      60 * time.Second,
		BackoffMultiplier: 3,
		RetryableStatuses: DefaultRetryableStatuses(),
	}
}

// Allows reports whether attempt (zero-based) fits the budget.
func (p Policy) Allows(attempt int) bool {
	if p.MaxAttempts < 0 {
		return true
	}
	return attempt <= p.MaxAttempts
}

// Backoff returns the wait before retry n (zero-based): base * multiplier^n.
func (p Policy) Backoff(n int) time.Duration {
	multiplier := p.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(p.BaseInterval) * math.Pow(multiplier, float64(n))
	if p.MaxInterval > 0 && delay > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// IsRetryableStatus reports whether status is in the retryable set.
func (p Policy) IsRetryableStatus(status int) bool {
	if p.RetryableStatuses == nil {
		return DefaultRetryableStatuses()[status]
	}
	return p.RetryableStatuses[status]
}
