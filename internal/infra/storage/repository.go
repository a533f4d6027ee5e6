package storage

import (
	"context"
	"errors"

	"github.com/vietddude/fanstats/internal/core/domain"
)

var (
	// ErrFailedRequestNotFound is returned when a failed request doesn't exist
	ErrFailedRequestNotFound = errors.New("failed request not found")
)

// ResultSink persists collected rows
type ResultSink interface {
	// WriteArtists appends artist rows
	WriteArtists(ctx context.Context, artists []domain.Artist) error

	// WriteTracks appends track rows
	WriteTracks(ctx context.Context, tracks []domain.Track) error

	// Close flushes and releases the sink
	Close() error
}

// FailedRequestRepository handles the dead-letter queue of failed API calls
type FailedRequestRepository interface {
	// Add adds a failed request
	Add(ctx context.Context, fr *domain.FailedRequest) error

	// MarkResolved removes a failed request from the queue
	MarkResolved(ctx context.Context, id string) error

	// GetAll retrieves all pending failed requests, oldest first
	GetAll(ctx context.Context) ([]*domain.FailedRequest, error)

	// Count returns the count of pending failed requests
	Count(ctx context.Context) (int, error)
}
