package admission

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vietddude/fanstats/internal/infra/api/wait"
)

// TokenBucket is a token bucket refilled lazily on each acquisition attempt.
//
// Waiters are not served in FIFO order: whichever waiter re-checks first after
// a refill takes the token.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	rate       float64
	tokens     float64
	lastRefill time.Time

	clock        func() time.Time
	sleep        wait.SleepFunc
	pollInterval time.Duration
}

// Option configures a TokenBucket.
type Option func(*TokenBucket)

// WithClock injects the time source.
func WithClock(clock func() time.Time) Option {
	return func(b *TokenBucket) { b.clock = clock }
}

// WithSleep injects the wait function.
func WithSleep(sleep wait.SleepFunc) Option {
	return func(b *TokenBucket) { b.sleep = sleep }
}

// WithPollInterval sets the minimum wait between two checks.
func WithPollInterval(d time.Duration) Option {
	return func(b *TokenBucket) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// NewTokenBucket creates a full bucket refilling at rate tokens per second.
// Capacity below one is raised to one.
func NewTokenBucket(rate, capacity float64, opts ...Option) *TokenBucket {
	if rate <= 0 {
		rate = DefaultConfig.Rate
	}
	if capacity < 1 {
		capacity = 1
	}
	b := &TokenBucket{
		capacity:     capacity,
		rate:         rate,
		tokens:       capacity,
		clock:        time.Now,
		sleep:        wait.Sleep,
		pollInterval: DefaultConfig.PollInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastRefill = b.clock()
	return b
}

// Acquire blocks until a token is available and consumes it.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, ok := b.tryTake()
		if ok {
			return nil
		}

		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// TryAcquire consumes a token if one is available without waiting.
func (b *TokenBucket) TryAcquire() bool {
	_, ok := b.tryTake()
	return ok
}

// Release returns one token, never exceeding capacity.
func (b *TokenBucket) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = math.Min(b.tokens+1, b.capacity)
}

// Tokens reports the token count after a refill at the current time.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.clock())
	return b.tokens
}

// tryTake refills and takes a token. When none is available it returns how
// long until the deficit is covered, floored at the poll interval.
func (b *TokenBucket) tryTake() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(b.clock())
	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}

	deficit := 1 - b.tokens
	wait := time.Duration(deficit / b.rate * float64(time.Second))
	if wait < b.pollInterval {
		wait = b.pollInterval
	}
	return wait, false
}

// refill commits accumulated tokens only once at least one whole token is
// available, so fractional progress keeps accruing from lastRefill.
func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	added := elapsed * b.rate
	if b.tokens+added >= 1 {
		b.tokens = math.Min(b.tokens+added, b.capacity)
		b.lastRefill = now
	}
}
