package retry

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/fanstats/internal/infra/api/transport"
)

// scriptedTransport returns scripted results in order, repeating the last one.
type scriptedTransport struct {
	mu      sync.Mutex
	results []scripted
	calls   int
}

type scripted struct {
	status int
	body   string
	err    error
}

func (s *scriptedTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.results[len(s.results)-1]
	if s.calls < len(s.results) {
		r = s.results[s.calls]
	}
	s.calls++

	if r.err != nil {
		return nil, r.err
	}
	return &transport.Response{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func (s *scriptedTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.delays = append(r.delays, d)
	return nil
}

func testPolicy(maxAttempts int) Policy {
	p := DefaultPolicy()
	p.MaxAttempts = maxAttempts
	return p
}

func getRequest() *transport.Request {
	return &transport.Request{ID: "req-1", Method: "GET", Target: "https://api.example.com/artist/1"}
}

func TestExecute_RetryableExhaustsBudget(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		tr := &scriptedTransport{results: []scripted{{status: http.StatusServiceUnavailable, body: "down"}}}
		rec := &sleepRecorder{}
		exec := NewExecutor(tr, WithSleep(rec.Sleep))

		_, err := exec.Execute(context.Background(), getRequest(), testPolicy(n))

		fr, ok := AsFailedRequest(err)
		if !ok {
			t.Fatalf("N=%d: expected FailedRequest, got %v", n, err)
		}
		if fr.Code != http.StatusServiceUnavailable || fr.CauseKind != CauseHTTPStatus {
			t.Errorf("N=%d: unexpected failure %+v", n, fr)
		}
		if tr.Calls() != n+1 {
			t.Errorf("N=%d: expected %d dispatches, got %d", n, n+1, tr.Calls())
		}
		if len(rec.delays) != n {
			t.Errorf("N=%d: expected %d sleeps, got %d", n, n, len(rec.delays))
		}
	}
}

func TestExecute_ZeroAttemptsDispatchesOnce(t *testing.T) {
	tests := []struct {
		name   string
		result scripted
	}{
		{"retryable status", scripted{status: http.StatusTooManyRequests}},
		{"timeout", scripted{err: &transport.Error{Kind: transport.KindTimeout, Err: context.DeadlineExceeded}}},
		{"success", scripted{status: http.StatusOK, body: `{}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptedTransport{results: []scripted{tt.result}}
			rec := &sleepRecorder{}
			exec := NewExecutor(tr, WithSleep(rec.Sleep))

			_, _ = exec.Execute(context.Background(), getRequest(), testPolicy(0))

			if tr.Calls() != 1 {
				t.Errorf("expected 1 dispatch, got %d", tr.Calls())
			}
			if len(rec.delays) != 0 {
				t.Errorf("expected no sleeps, got %v", rec.delays)
			}
		})
	}
}

func TestExecute_BackoffSequence(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{
		{status: http.StatusBadGateway},
		{status: http.StatusGatewayTimeout},
		{err: &transport.Error{Kind: transport.KindConnection, Err: errors.New("connection reset")}},
		{status: http.StatusOK, body: `{"obj":1}`},
	}}
	rec := &sleepRecorder{}
	exec := NewExecutor(tr, WithSleep(rec.Sleep))

	policy := testPolicy(Unbounded)
	policy.BaseInterval = 60 * time.Second
	policy.BackoffMultiplier = 3

	payload, err := exec.Execute(context.Background(), getRequest(), policy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != `{"obj":1}` {
		t.Errorf("unexpected payload %s", payload)
	}

	want := []time.Duration{60 * time.Second, 180 * time.Second, 540 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], rec.delays[i])
		}
	}
}

func TestExecute_SuccessSingleDispatch(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{{status: http.StatusOK, body: `{"obj":{"name":"Artist"}}`}}}
	exec := NewExecutor(tr, WithSleep((&sleepRecorder{}).Sleep))

	payload, err := exec.Execute(context.Background(), getRequest(), testPolicy(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != `{"obj":{"name":"Artist"}}` {
		t.Errorf("unexpected payload %s", payload)
	}
	if tr.Calls() != 1 {
		t.Errorf("expected 1 dispatch, got %d", tr.Calls())
	}
}

func TestExecute_SwallowsDecodableError(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{{
		status: http.StatusNotFound,
		body:   `{"errors":[{"detail":"Artist not found"}]}`,
	}}}
	exec := NewExecutor(tr, WithSleep((&sleepRecorder{}).Sleep))

	payload, err := exec.Execute(context.Background(), getRequest(), testPolicy(3))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if payload != nil {
		t.Errorf("expected empty result, got %s", payload)
	}
	if tr.Calls() != 1 {
		t.Errorf("expected 1 dispatch, got %d", tr.Calls())
	}
}

func TestExecute_StrictErrorsReportsDecodableError(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{{
		status: http.StatusNotFound,
		body:   `{"errors":[{"detail":"Artist not found"}]}`,
	}}}
	exec := NewExecutor(tr, WithSleep((&sleepRecorder{}).Sleep))

	policy := testPolicy(3)
	policy.StrictErrors = true
	_, err := exec.Execute(context.Background(), getRequest(), policy)

	fr, ok := AsFailedRequest(err)
	if !ok {
		t.Fatalf("expected FailedRequest, got %v", err)
	}
	if fr.Code != http.StatusNotFound || fr.Message != "Artist not found" {
		t.Errorf("unexpected failure %+v", fr)
	}
	if tr.Calls() != 1 {
		t.Errorf("expected 1 dispatch, got %d", tr.Calls())
	}
}

func TestExecute_UndecodableErrorIsFatal(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{{status: http.StatusNotFound, body: "<html>Not Found</html>"}}}
	rec := &sleepRecorder{}
	exec := NewExecutor(tr, WithSleep(rec.Sleep))

	_, err := exec.Execute(context.Background(), getRequest(), testPolicy(Unbounded))

	fr, ok := AsFailedRequest(err)
	if !ok {
		t.Fatalf("expected FailedRequest, got %v", err)
	}
	if fr.CauseKind != CauseDecode || fr.Code != http.StatusNotFound {
		t.Errorf("unexpected failure %+v", fr)
	}
	if fr.Target != getRequest().Target {
		t.Errorf("expected target %s, got %s", getRequest().Target, fr.Target)
	}
	if tr.Calls() != 1 || len(rec.delays) != 0 {
		t.Errorf("expected no retries, got %d dispatches and %d sleeps", tr.Calls(), len(rec.delays))
	}
}

func TestExecute_InvalidJSONOnSuccessIsFatal(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{{status: http.StatusOK, body: "not json"}}}
	exec := NewExecutor(tr, WithSleep((&sleepRecorder{}).Sleep))

	_, err := exec.Execute(context.Background(), getRequest(), testPolicy(3))
	fr, ok := AsFailedRequest(err)
	if !ok || fr.CauseKind != CauseDecode {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestExecute_UnsupportedMethod(t *testing.T) {
	for _, method := range []string{"DELETE", "PUT", "head", ""} {
		tr := &scriptedTransport{results: []scripted{{status: http.StatusOK, body: `{}`}}}
		exec := NewExecutor(tr)

		req := getRequest()
		req.Method = method
		_, err := exec.Execute(context.Background(), req, testPolicy(3))

		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%q: expected ConfigurationError, got %v", method, err)
		}
		if !errors.Is(err, ErrUnsupportedMethod) {
			t.Errorf("%q: expected ErrUnsupportedMethod", method)
		}
		if tr.Calls() != 0 {
			t.Errorf("%q: expected no dispatch, got %d", method, tr.Calls())
		}
	}
}

func TestExecute_MethodCaseInsensitive(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{{status: http.StatusOK, body: `{}`}}}
	exec := NewExecutor(tr)

	req := getRequest()
	req.Method = "patch"
	if _, err := exec.Execute(context.Background(), req, testPolicy(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != "patch" {
		t.Error("request must not be mutated")
	}
}

func TestExecute_CancelDuringBackoff(t *testing.T) {
	tr := &scriptedTransport{results: []scripted{{status: http.StatusInternalServerError}}}
	exec := NewExecutor(tr)

	policy := testPolicy(Unbounded)
	policy.BaseInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := exec.Execute(ctx, getRequest(), policy)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt backoff")
	}
	if tr.Calls() != 1 {
		t.Errorf("expected 1 dispatch, got %d", tr.Calls())
	}
}

func TestExecute_TransportCancellationNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &scriptedTransport{results: []scripted{{err: &transport.Error{Kind: transport.KindCanceled, Err: context.Canceled}}}}
	rec := &sleepRecorder{}
	exec := NewExecutor(tr, WithSleep(rec.Sleep))

	_, err := exec.Execute(ctx, getRequest(), testPolicy(Unbounded))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if tr.Calls() != 1 {
		t.Errorf("expected 1 dispatch, got %d", tr.Calls())
	}
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{BaseInterval: 60 * time.Second, BackoffMultiplier: 3}
	want := []time.Duration{60 * time.Second, 180 * time.Second, 540 * time.Second, 1620 * time.Second}
	for n, w := range want {
		if got := p.Backoff(n); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", n, got, w)
		}
	}

	p.MaxInterval = 200 * time.Second
	if got := p.Backoff(2); got != 200*time.Second {
		t.Errorf("expected cap at 200s, got %v", got)
	}

	p = Policy{BaseInterval: time.Second, BackoffMultiplier: 0.5}
	if got := p.Backoff(3); got != time.Second {
		t.Errorf("multiplier below 1 must not shrink the delay, got %v", got)
	}

	p = Policy{BaseInterval: time.Minute, BackoffMultiplier: 3}
	prev := time.Duration(0)
	for n := 0; n < 100; n++ {
		d := p.Backoff(n)
		if d < prev {
			t.Fatalf("backoff decreased at %d: %v < %v", n, d, prev)
		}
		prev = d
	}
}

func TestClassify(t *testing.T) {
	policy := DefaultPolicy()
	tests := []struct {
		name     string
		status   int
		body     string
		err      error
		expected OutcomeKind
	}{
		{"ok", 200, `{"obj":[]}`, nil, OutcomeSuccess},
		{"too many requests", 429, ``, nil, OutcomeRetryable},
		{"internal error", 500, `{"error":"boom"}`, nil, OutcomeRetryable},
		{"bad gateway", 502, `<html>`, nil, OutcomeRetryable},
		{"unavailable", 503, ``, nil, OutcomeRetryable},
		{"gateway timeout", 504, ``, nil, OutcomeRetryable},
		{"not found json", 404, `{"errors":[{"detail":"missing"}]}`, nil, OutcomeSwallowed},
		{"unauthorized json", 401, `{"error":"bad token"}`, nil, OutcomeSwallowed},
		{"not found html", 404, `<html></html>`, nil, OutcomeFatal},
		{"bad request empty", 400, ``, nil, OutcomeFatal},
		{"timeout", 0, ``, &transport.Error{Kind: transport.KindTimeout}, OutcomeRetryable},
		{"connection", 0, ``, &transport.Error{Kind: transport.KindConnection}, OutcomeRetryable},
		{"canceled", 0, ``, &transport.Error{Kind: transport.KindCanceled}, OutcomeAborted},
		{"foreign error", 0, ``, errors.New("unknown"), OutcomeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *transport.Response
			if tt.err == nil {
				resp = &transport.Response{StatusCode: tt.status, Body: []byte(tt.body)}
			}
			got := Classify("t", resp, tt.err, policy)
			if got.Kind != tt.expected {
				t.Errorf("Classify() = %s, want %s", got.Kind, tt.expected)
			}
		})
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"errors":[{"detail":"Artist not found"}]}`, "Artist not found"},
		{`{"errors":[{"title":"Bad"}]}`, "Bad"},
		{`{"error":"token expired"}`, "token expired"},
		{`{"message":"nope"}`, "nope"},
		{`[1,2]`, "[1,2]"},
	}
	for _, tt := range tests {
		if got := errorDetail([]byte(tt.body)); got != tt.want {
			t.Errorf("errorDetail(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
