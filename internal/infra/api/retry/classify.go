package retry

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vietddude/fanstats/internal/infra/api/transport"
)

// OutcomeKind determines how the executor proceeds after an attempt.
type OutcomeKind int

const (
	OutcomeSuccess   OutcomeKind = iota // return the payload
	OutcomeRetryable                    // sleep and send again
	OutcomeFatal                        // fail without retrying
	OutcomeSwallowed                    // log and return an empty result
	OutcomeAborted                      // caller cancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	case OutcomeSwallowed:
		return "swallowed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the classification of one attempt.
type Outcome struct {
	Kind    OutcomeKind
	Payload json.RawMessage
	Failure *FailedRequest

	// Detail is the error text found in a swallowed response body.
	Detail string

	// Err is the cancellation cause of an aborted attempt.
	Err error
}

// Classify maps the result of one transport exchange onto an Outcome.
func Classify(target string, resp *transport.Response, err error, policy Policy) Outcome {
	if err != nil {
		return classifyTransportError(target, err)
	}

	if resp.StatusCode == http.StatusOK {
		if !json.Valid(resp.Body) {
			return Outcome{Kind: OutcomeFatal, Failure: &FailedRequest{
				Code:      resp.StatusCode,
				Message:   "response body is not valid JSON",
				Target:    target,
				CauseKind: CauseDecode,
			}}
		}
		return Outcome{Kind: OutcomeSuccess, Payload: json.RawMessage(resp.Body)}
	}

	failure := &FailedRequest{
		Code:      resp.StatusCode,
		Message:   statusText(resp),
		Target:    target,
		CauseKind: CauseHTTPStatus,
	}

	if policy.IsRetryableStatus(resp.StatusCode) {
		return Outcome{Kind: OutcomeRetryable, Failure: failure}
	}

	if !json.Valid(resp.Body) {
		failure.CauseKind = CauseDecode
		return Outcome{Kind: OutcomeFatal, Failure: failure}
	}

	detail := errorDetail(resp.Body)
	if policy.StrictErrors {
		if detail != "" {
			failure.Message = detail
		}
		return Outcome{Kind: OutcomeFatal, Failure: failure}
	}
	return Outcome{Kind: OutcomeSwallowed, Failure: failure, Detail: detail}
}

func classifyTransportError(target string, err error) Outcome {
	kind, ok := transport.KindOf(err)
	if !ok {
		// Transports must return *transport.Error; anything else is not retryable.
		return Outcome{Kind: OutcomeFatal, Failure: &FailedRequest{
			Message:   err.Error(),
			Target:    target,
			CauseKind: CauseConnection,
			Err:       err,
		}}
	}

	switch kind {
	case transport.KindCanceled:
		return Outcome{Kind: OutcomeAborted, Err: err}
	case transport.KindTimeout:
		return Outcome{Kind: OutcomeRetryable, Failure: &FailedRequest{
			Message:   err.Error(),
			Target:    target,
			CauseKind: CauseTimeout,
			Err:       err,
		}}
	case transport.KindConnection:
		return Outcome{Kind: OutcomeRetryable, Failure: &FailedRequest{
			Message:   err.Error(),
			Target:    target,
			CauseKind: CauseConnection,
			Err:       err,
		}}
	}

	return Outcome{Kind: OutcomeFatal, Failure: &FailedRequest{
		Message:   err.Error(),
		Target:    target,
		CauseKind: CauseConnection,
		Err:       err,
	}}
}

func statusText(resp *transport.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "unexpected status"
}

// errorDetail extracts the first error detail from a JSON error body, falling
// back to the compacted body.
func errorDetail(body []byte) string {
	var envelope struct {
		Errors []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, e := range envelope.Errors {
			if e.Detail != "" {
				return e.Detail
			}
			if e.Title != "" {
				return e.Title
			}
		}
		if s, ok := envelope.Error.(string); ok && s != "" {
			return s
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return strings.TrimSpace(string(body))
}
