package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/fanstats/internal/core/domain"
	"github.com/vietddude/fanstats/internal/infra/storage"
)

type MemoryStorage struct {
	artists []domain.Artist
	tracks  []domain.Track
	failed  map[string]*domain.FailedRequest
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		failed: make(map[string]*domain.FailedRequest),
	}
}

// -----------------------------------------------------------------------------
// Result Sink
// -----------------------------------------------------------------------------

type ResultSink struct {
	store *MemoryStorage
}

func NewResultSink(store *MemoryStorage) *ResultSink {
	return &ResultSink{store: store}
}

func (s *ResultSink) WriteArtists(ctx context.Context, artists []domain.Artist) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.artists = append(s.store.artists, artists...)
	return nil
}

func (s *ResultSink) WriteTracks(ctx context.Context, tracks []domain.Track) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.tracks = append(s.store.tracks, tracks...)
	return nil
}

func (s *ResultSink) Close() error { return nil }

// Artists returns a copy of the written artist rows.
func (s *ResultSink) Artists() []domain.Artist {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return append([]domain.Artist(nil), s.store.artists...)
}

// Tracks returns a copy of the written track rows.
func (s *ResultSink) Tracks() []domain.Track {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return append([]domain.Track(nil), s.store.tracks...)
}

// -----------------------------------------------------------------------------
// Failed Request Repository
// -----------------------------------------------------------------------------

type FailedRepo struct{ store *MemoryStorage }

func NewFailedRepo(s *MemoryStorage) *FailedRepo { return &FailedRepo{store: s} }

func (r *FailedRepo) Add(ctx context.Context, fr *domain.FailedRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *fr
	if cp.Status == "" {
		cp.Status = domain.FailedRequestStatusPending
	}
	r.store.failed[fr.ID] = &cp
	return nil
}

func (r *FailedRepo) MarkResolved(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.failed[id]; !ok {
		return storage.ErrFailedRequestNotFound
	}
	delete(r.store.failed, id)
	return nil
}

func (r *FailedRepo) GetAll(ctx context.Context) ([]*domain.FailedRequest, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.FailedRequest, 0, len(r.store.failed))
	for _, fr := range r.store.failed {
		cp := *fr
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *FailedRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.failed), nil
}
