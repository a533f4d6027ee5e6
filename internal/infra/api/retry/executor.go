package retry

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/vietddude/fanstats/internal/infra/api/transport"
	"github.com/vietddude/fanstats/internal/infra/api/wait"
	"github.com/vietddude/fanstats/internal/metrics"
)

// Executor sends one logical request through a transport, retrying
// transient failures according to a Policy.
type Executor struct {
	transport transport.Transport
	sleep     wait.SleepFunc
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSleep injects the backoff wait.
func WithSleep(sleep wait.SleepFunc) ExecutorOption {
	return func(e *Executor) { e.sleep = sleep }
}

// NewExecutor creates an executor over t.
func NewExecutor(t transport.Transport, opts ...ExecutorOption) *Executor {
	e := &Executor{transport: t, sleep: wait.Sleep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends req until it succeeds, fails fatally or exhausts the policy.
//
// It returns the JSON payload of a 200 response. A non-retryable status
// carrying a JSON error body yields (nil, nil) unless policy.StrictErrors is
// set. Failures are *FailedRequest; a disallowed method is a
// *ConfigurationError; cancellation returns the context error.
func (e *Executor) Execute(ctx context.Context, req *transport.Request, policy Policy) (json.RawMessage, error) {
	if !AllowedMethod(req.Method) {
		return nil, &ConfigurationError{Method: req.Method, Err: ErrUnsupportedMethod}
	}

	send := *req
	send.Method = strings.ToUpper(req.Method)

	var last *FailedRequest
	for attempt := 0; policy.Allows(attempt); attempt++ {
		if attempt > 0 {
			delay := policy.Backoff(attempt - 1)
			slog.Warn("Retrying request",
				"id", req.ID,
				"target", req.Target,
				"attempt", attempt,
				"cause", last.CauseKind,
				"code", last.Code,
				"delay", delay,
			)
			metrics.APIRetriesTotal.WithLabelValues(string(last.CauseKind)).Inc()
			if err := e.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		slog.Debug("Dispatching request", "id", req.ID, "method", send.Method, "target", req.Target, "attempt", attempt)
		resp, err := e.transport.Send(ctx, &send)
		outcome := Classify(req.Target, resp, err, policy)
		metrics.APIAttemptsTotal.WithLabelValues(outcome.Kind.String()).Inc()

		switch outcome.Kind {
		case OutcomeSuccess:
			return outcome.Payload, nil
		case OutcomeRetryable:
			last = outcome.Failure
		case OutcomeFatal:
			return nil, outcome.Failure
		case OutcomeSwallowed:
			slog.Warn("Request failed, ignoring error response",
				"id", req.ID,
				"target", req.Target,
				"code", outcome.Failure.Code,
				"detail", outcome.Detail,
			)
			return nil, nil
		case OutcomeAborted:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, outcome.Err
		}
	}

	return nil, last
}
