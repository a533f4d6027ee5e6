// Package health provides collection health monitoring and status reporting.
package health

import (
	"github.com/vietddude/fanstats/internal/collector"
	"github.com/vietddude/fanstats/internal/infra/api/transport"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus   SystemStatus                `json:"system_status"`
	Collection     *collector.ProgressSnapshot `json:"collection,omitempty"`
	API            *transport.MonitorStats     `json:"api,omitempty"`
	FailedRequests int                         `json:"failed_requests"`
	Problems       []string                    `json:"problems,omitempty"`
}
