package admission

import (
	"context"

	"golang.org/x/time/rate"
)

// RateAdmitter adapts a golang.org/x/time/rate limiter. Waiters are served
// in reservation order.
type RateAdmitter struct {
	limiter *rate.Limiter
}

// NewRateAdmitter creates an admitter allowing r events per second with the given burst.
func NewRateAdmitter(r float64, burst int) *RateAdmitter {
	if r <= 0 {
		r = DefaultConfig.Rate
	}
	if burst < 1 {
		burst = 1
	}
	return &RateAdmitter{limiter: rate.NewLimiter(rate.Limit(r), burst)}
}

// Acquire waits for one event.
func (a *RateAdmitter) Acquire(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Release is a no-op. The limiter cannot return a consumed event, and Wait
// already gives back reservations it abandons on cancellation.
func (a *RateAdmitter) Release() {}
