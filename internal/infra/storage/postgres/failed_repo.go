package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/fanstats/internal/core/domain"
	"github.com/vietddude/fanstats/internal/infra/storage"
)

// FailedRequestRepo implements storage.FailedRequestRepository using PostgreSQL.
type FailedRequestRepo struct {
	db *DB
}

// NewFailedRequestRepo creates a new PostgreSQL failed request repository.
func NewFailedRequestRepo(db *DB) *FailedRequestRepo {
	return &FailedRequestRepo{db: db}
}

type failedRequestRow struct {
	ID          string    `db:"id"`
	RunID       string    `db:"run_id"`
	Endpoint    string    `db:"endpoint"`
	Target      string    `db:"target"`
	ArtistID    int64     `db:"artist_id"`
	Code        int       `db:"code"`
	CauseKind   string    `db:"cause_kind"`
	ErrorMsg    string    `db:"error_msg"`
	RetryCount  int       `db:"retry_count"`
	Status      string    `db:"status"`
	LastAttempt time.Time `db:"last_attempt"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row failedRequestRow) toDomain() *domain.FailedRequest {
	return &domain.FailedRequest{
		ID:          row.ID,
		RunID:       row.RunID,
		Endpoint:    row.Endpoint,
		Target:      row.Target,
		ArtistID:    row.ArtistID,
		Code:        row.Code,
		CauseKind:   row.CauseKind,
		Error:       row.ErrorMsg,
		RetryCount:  row.RetryCount,
		Status:      domain.FailedRequestStatus(row.Status),
		LastAttempt: row.LastAttempt.Unix(),
		CreatedAt:   row.CreatedAt.Unix(),
	}
}

// Add adds a failed request.
func (r *FailedRequestRepo) Add(ctx context.Context, fr *domain.FailedRequest) error {
	query := `
		INSERT INTO failed_requests (
			id, run_id, endpoint, target, artist_id, code, cause_kind,
			error_msg, retry_count, status, last_attempt, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	status := string(fr.Status)
	if status == "" {
		status = string(domain.FailedRequestStatusPending)
	}
	createdAt := time.Now()
	if fr.CreatedAt > 0 {
		createdAt = time.Unix(fr.CreatedAt, 0)
	}
	lastAttempt := createdAt
	if fr.LastAttempt > 0 {
		lastAttempt = time.Unix(fr.LastAttempt, 0)
	}

	_, err := r.db.ExecContext(ctx, query,
		fr.ID,
		fr.RunID,
		fr.Endpoint,
		fr.Target,
		fr.ArtistID,
		fr.Code,
		fr.CauseKind,
		fr.Error,
		fr.RetryCount,
		status,
		lastAttempt,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add failed request: %w", err)
	}
	return nil
}

// MarkResolved marks a failed request as resolved.
func (r *FailedRequestRepo) MarkResolved(ctx context.Context, id string) error {
	query := `
		UPDATE failed_requests
		SET status = 'resolved', last_attempt = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to resolve failed request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrFailedRequestNotFound
	}
	return nil
}

// GetAll returns all pending failed requests, oldest first.
func (r *FailedRequestRepo) GetAll(ctx context.Context) ([]*domain.FailedRequest, error) {
	query := `
		SELECT id, run_id, endpoint, target, artist_id, code, cause_kind,
			error_msg, retry_count, status, last_attempt, created_at
		FROM failed_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
	`

	var rows []failedRequestRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get all failed requests: %w", err)
	}

	out := make([]*domain.FailedRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Count returns the number of pending failed requests.
func (r *FailedRequestRepo) Count(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM failed_requests
		WHERE status = 'pending'
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count failed requests: %w", err)
	}
	return count, nil
}
