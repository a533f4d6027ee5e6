package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/fanstats/internal/collector"
	"github.com/vietddude/fanstats/internal/infra/api/transport"
)

// ProgressSource reports the progress of a collection run.
type ProgressSource interface {
	Snapshot() collector.ProgressSnapshot
}

// APIStatsSource reports the observed state of the upstream API.
type APIStatsSource interface {
	GetStats() transport.MonitorStats
}

// FailedCounter counts pending failed requests.
type FailedCounter interface {
	Count(ctx context.Context) (int, error)
}

// Monitor aggregates health status from the collection components.
// Any source may be nil.
type Monitor struct {
	progress ProgressSource
	api      APIStatsSource
	failed   FailedCounter

	cacheFor   time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(progress ProgressSource, api APIStatsSource, failed FailedCounter) *Monitor {
	return &Monitor{
		progress: progress,
		api:      api,
		failed:   failed,
		cacheFor: 5 * time.Second,
	}
}

// CheckHealth builds a report, reusing the previous one for a few seconds.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.cacheFor {
		return m.lastReport
	}

	report := HealthReport{SystemStatus: StatusHealthy}
	escalate := func(s SystemStatus, problem string) {
		report.Problems = append(report.Problems, problem)
		if s == StatusCritical || report.SystemStatus == StatusHealthy {
			report.SystemStatus = s
		}
	}

	// 1. Collection
	if m.progress != nil {
		snap := m.progress.Snapshot()
		report.Collection = &snap
		if snap.Err != "" {
			escalate(StatusCritical, "collection failed: "+snap.Err)
		}
	}

	// 2. Upstream API
	if m.api != nil {
		stats := m.api.GetStats()
		report.API = &stats
		switch stats.Status {
		case transport.StatusBlocked.String():
			escalate(StatusCritical, "api blocked")
		case transport.StatusThrottled.String(), transport.StatusDegraded.String():
			escalate(StatusDegraded, "api "+stats.Status)
		}
	}

	// 3. Failed requests
	if m.failed != nil {
		count, err := m.failed.Count(ctx)
		if err != nil {
			escalate(StatusDegraded, fmt.Sprintf("failed request count unavailable: %v", err))
		} else {
			report.FailedRequests = count
			if count > 50 {
				escalate(StatusCritical, fmt.Sprintf("%d failed requests", count))
			} else if count > 0 {
				escalate(StatusDegraded, fmt.Sprintf("%d failed requests", count))
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
