package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fanstats/internal/infra/api/admission"
	"github.com/vietddude/fanstats/internal/infra/api/retry"
	"github.com/vietddude/fanstats/internal/infra/api/transport"
	"github.com/vietddude/fanstats/internal/metrics"
)

// HeaderSource supplies resolved headers (e.g. a bearer token) for authenticated calls.
type HeaderSource interface {
	Headers(ctx context.Context) (http.Header, error)
}

// Client is the high-level interface for API calls.
// It is safe for concurrent use; all callers share one admitter.
type Client struct {
	baseURL  string
	admitter admission.Admitter
	executor *retry.Executor
	policy   retry.Policy
	headers  HeaderSource
	execOpts []retry.ExecutorOption

	clock   func() time.Time
	started time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHeaderSource sets the source of authentication headers.
func WithHeaderSource(hs HeaderSource) Option {
	return func(c *Client) { c.headers = hs }
}

// WithClock injects the time source used for admission logging.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) { c.clock = clock }
}

// WithExecutorOptions passes options to the retry executor.
func WithExecutorOptions(opts ...retry.ExecutorOption) Option {
	return func(c *Client) { c.execOpts = append(c.execOpts, opts...) }
}

// NewClient creates a client.
func NewClient(
	baseURL string,
	t transport.Transport,
	admitter admission.Admitter,
	policy retry.Policy,
	opts ...Option,
) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		admitter: admitter,
		policy:   policy,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.executor = retry.NewExecutor(t, c.execOpts...)
	c.started = c.clock()
	return c
}

// SetHeaderSource replaces the header source. It must be called before the
// client is shared between goroutines.
func (c *Client) SetHeaderSource(hs HeaderSource) {
	c.headers = hs
}

// Do performs a logical call and returns its JSON payload.
//
// A nil payload with a nil error means the API answered with an error body
// that the policy chose not to report.
func (c *Client) Do(ctx context.Context, call Call) (json.RawMessage, error) {
	if !retry.AllowedMethod(call.Method) {
		return nil, &retry.ConfigurationError{Method: call.Method, Err: retry.ErrUnsupportedMethod}
	}

	req, err := c.buildRequest(ctx, call)
	if err != nil {
		return nil, err
	}

	waitStart := time.Now()
	if err := c.admitter.Acquire(ctx); err != nil {
		return nil, err
	}
	metrics.AdmissionWait.Observe(time.Since(waitStart).Seconds())

	// Admitted but never dispatched: give the permit back.
	if err := ctx.Err(); err != nil {
		c.admitter.Release()
		return nil, err
	}

	slog.Debug("Admitted request",
		"id", req.ID,
		"elapsed", c.clock().Sub(c.started).Round(time.Millisecond),
		"target", req.Target,
	)

	start := time.Now()
	payload, err := c.executor.Execute(ctx, req, c.policy)
	metrics.APILatency.WithLabelValues(call.Endpoint).Observe(time.Since(start).Seconds())
	metrics.APIRequestsTotal.WithLabelValues(call.Endpoint, outcomeLabel(payload, err)).Inc()

	return payload, err
}

// DoJSON performs a call and decodes the payload into out.
// It reports false when the call produced no payload.
func (c *Client) DoJSON(ctx context.Context, call Call, out any) (bool, error) {
	payload, err := c.Do(ctx, call)
	if err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", call.Endpoint, err)
	}
	return true, nil
}

func (c *Client) buildRequest(ctx context.Context, call Call) (*transport.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(call.Path, "/")
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	req := &transport.Request{
		ID:      uuid.NewString(),
		Method:  call.Method,
		Target:  target,
		Header:  http.Header{"Accept": []string{"application/json"}},
		Timeout: call.Timeout,
	}

	if call.Body != nil {
		body, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", call.Endpoint, err)
		}
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	}

	if !call.Anonymous && c.headers != nil {
		h, err := c.headers.Headers(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve headers for %s: %w", call.Endpoint, err)
		}
		for k, vs := range h {
			req.Header[k] = append([]string(nil), vs...)
		}
	}

	return req, nil
}

func outcomeLabel(payload json.RawMessage, err error) string {
	var fr *retry.FailedRequest
	var cfgErr *retry.ConfigurationError
	switch {
	case err == nil && payload == nil:
		return "empty"
	case err == nil:
		return "success"
	case errors.As(err, &fr):
		return "failed"
	case errors.As(err, &cfgErr):
		return "invalid"
	default:
		return "aborted"
	}
}
