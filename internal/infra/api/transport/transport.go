// Package transport implements the HTTP transport used by the API client.
//
// This package contains:
//   - Transport interface: sends one request and returns the delivered response
//   - Error: closed error-kind variant for failures where no response was delivered
//   - HTTPTransport: net/http implementation with a pooled connection transport
//   - Monitor: latency and throttle tracking for health reporting
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Request is a single outbound HTTP request. It is re-sent unchanged on every retry.
type Request struct {
	// ID correlates log lines of one logical call.
	ID string

	// Method is one of GET, POST, PATCH.
	Method string

	// Target is the absolute URL.
	Target string

	Header http.Header
	Body   []byte

	// Timeout bounds a single attempt. Zero uses the transport default.
	Timeout time.Duration
}

// Response is a delivered HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Latency    time.Duration
}

// Transport sends a request.
//
// A non-nil error is always a *Error. Any delivered response, whatever its
// status, is returned with a nil error.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// ErrorKind enumerates the ways a request can fail without a response.
type ErrorKind int

const (
	KindTimeout    ErrorKind = iota // attempt deadline exceeded
	KindConnection                  // dial, TLS, reset or body read failure
	KindCanceled                    // caller context cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by Send when no response was delivered.
type Error struct {
	Kind   ErrorKind
	Target string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of a transport error.
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}
