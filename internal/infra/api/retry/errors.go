package retry

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnsupportedMethod is wrapped by ConfigurationError for a disallowed method.
var ErrUnsupportedMethod = errors.New("unsupported method")

var allowedMethods = map[string]bool{
	http.MethodGet:   true,
	http.MethodPost:  true,
	http.MethodPatch: true,
}

// AllowedMethod reports whether method (any case) may be executed.
func AllowedMethod(method string) bool {
	return allowedMethods[strings.ToUpper(method)]
}

// ConfigurationError is returned before any dispatch when a request cannot be sent as built.
type ConfigurationError struct {
	Method string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v: %q", e.Err, e.Method)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CauseKind names the underlying failure of a FailedRequest.
type CauseKind string

const (
	CauseTimeout    CauseKind = "timeout"     // transport attempt timed out
	CauseConnection CauseKind = "connection"  // transport could not exchange
	CauseHTTPStatus CauseKind = "http_status" // delivered response with a failing status
	CauseDecode     CauseKind = "decode"      // response body is not JSON
)

// FailedRequest is the error returned when a logical call fails.
type FailedRequest struct {
	Code      int // HTTP status, zero when no response was delivered
	Message   string
	Target    string
	CauseKind CauseKind
	Err       error
}

func (e *FailedRequest) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("request %s failed (%s %d): %s", e.Target, e.CauseKind, e.Code, e.Message)
	}
	return fmt.Sprintf("request %s failed (%s): %s", e.Target, e.CauseKind, e.Message)
}

func (e *FailedRequest) Unwrap() error {
	return e.Err
}

// AsFailedRequest extracts a FailedRequest from err.
func AsFailedRequest(err error) (*FailedRequest, bool) {
	var fr *FailedRequest
	if errors.As(err, &fr) {
		return fr, true
	}
	return nil, false
}
