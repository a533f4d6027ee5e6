package collector

import (
	"sync"
	"time"
)

// ProgressSnapshot is a point-in-time view of a collection run.
type ProgressSnapshot struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	PagesTotal int       `json:"pages_total"`
	Pages      int       `json:"pages"`
	Artists    int       `json:"artists"`
	Tracks     int       `json:"tracks"`
	Failed     int       `json:"failed"`
	LastOffset int       `json:"last_offset"`
	Done       bool      `json:"done"`
	Err        string    `json:"error,omitempty"`
}

// Progress tracks a collection run. It is safe for concurrent use.
type Progress struct {
	mu   sync.RWMutex
	snap ProgressSnapshot
}

func newProgress(runID string, pagesTotal int, startedAt time.Time) *Progress {
	return &Progress{snap: ProgressSnapshot{
		RunID:      runID,
		StartedAt:  startedAt,
		PagesTotal: pagesTotal,
	}}
}

func (p *Progress) pageDone(offset, artists, tracks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Pages++
	p.snap.Artists += artists
	p.snap.Tracks += tracks
	p.snap.LastOffset = offset
}

func (p *Progress) failed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Failed++
}

func (p *Progress) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Done = true
	if err != nil {
		p.snap.Err = err.Error()
	}
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}
