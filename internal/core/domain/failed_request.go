package domain

// FailedRequest represents an API call that failed after all retries
type FailedRequest struct {
	ID          string              `json:"id"`
	RunID       string              `json:"run_id"`
	Endpoint    string              `json:"endpoint"`
	Target      string              `json:"target"`
	ArtistID    int64               `json:"artist_id"`
	Code        int                 `json:"code"`
	CauseKind   string              `json:"cause_kind"`
	Error       string              `json:"error_msg"`
	RetryCount  int                 `json:"retry_count"`
	Status      FailedRequestStatus `json:"status"`
	LastAttempt int64               `json:"last_attempt"`
	CreatedAt   int64               `json:"created_at"`
}

type FailedRequestStatus string

const (
	FailedRequestStatusPending  FailedRequestStatus = "pending"
	FailedRequestStatusResolved FailedRequestStatus = "resolved"
	FailedRequestStatusIgnored  FailedRequestStatus = "ignored"
)
