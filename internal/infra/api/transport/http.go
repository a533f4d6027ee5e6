package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	httpClient *http.Client
	timeout    time.Duration

	Monitor *Monitor
}

// NewHTTPTransport creates a transport with the given default per-attempt timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: timeout,
		Monitor: NewMonitor(),
	}
}

// Send performs one HTTP exchange.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.Target, body)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Target: req.Target, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, t.classify(ctx, req.Target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.classify(ctx, req.Target, fmt.Errorf("read response: %w", err))
	}
	latency := time.Since(start)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		t.Monitor.RecordThrottle(resp.StatusCode, resp.Header.Get("Retry-After"))
	case http.StatusForbidden:
		if t.Monitor.DetectThrottlePattern(string(data)) {
			t.Monitor.RecordThrottle(resp.StatusCode, "")
		}
	}
	t.Monitor.RecordRequest(latency)

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
		Latency:    latency,
	}, nil
}

// classify maps a net/http failure onto the closed error kinds. The parent
// context decides between a caller cancellation and an attempt timeout.
func (t *HTTPTransport) classify(parent context.Context, target string, err error) *Error {
	if parent.Err() != nil {
		return &Error{Kind: KindCanceled, Target: target, Err: parent.Err()}
	}

	t.Monitor.RecordFailure()
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Target: target, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Target: target, Err: err}
	}

	return &Error{Kind: KindConnection, Target: target, Err: err}
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
