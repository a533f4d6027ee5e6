package transport

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Status represents the observed state of the upstream API.
type Status int

const (
	StatusHealthy   Status = iota // API is answering normally
	StatusDegraded                // API is slow or failing often
	StatusThrottled               // API is rate limiting
	StatusBlocked                 // API refused this client
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MonitorStats holds monitoring statistics.
type MonitorStats struct {
	Status            string        `json:"status"`
	AverageLatency    time.Duration `json:"average_latency"`
	Requests          int           `json:"requests"`
	Failures          int           `json:"failures"`
	ThrottleCount429  int           `json:"throttle_count_429"`
	ThrottleCount403  int           `json:"throttle_count_403"`
	RequestsLast1Hour int           `json:"requests_last_1h"`
	RetryAfter        time.Duration `json:"retry_after"`
}

// Monitor tracks upstream latency and rate limiting.
type Monitor struct {
	mu  sync.RWMutex
	now func() time.Time

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	// Error tracking
	requestCount       int
	failureCount       int
	status429Count     int
	status403Count     int
	throttlePatterns   []string
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	// Sliding window
	requestTimestamps []time.Time
	windowDuration    time.Duration

	// Thresholds
	slowResponseThreshold time.Duration
	degradedThreshold     float64
}

// NewMonitor creates a monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		now:              time.Now,
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"quota exceeded",
			"api limit",
		},
		windowDuration:        time.Hour,
		slowResponseThreshold: 5 * time.Second,
		degradedThreshold:     0.3, // 30% failure rate
	}
}

// RecordRequest records a delivered response with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.requestCount++

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)
	cutoff := now.Add(-m.windowDuration)
	i := 0
	for i < len(m.requestTimestamps) && !m.requestTimestamps[i].After(cutoff) {
		i++
	}
	m.requestTimestamps = m.requestTimestamps[i:]
}

// RecordFailure records an attempt that produced no response.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount++
	m.failureCount++
}

// RecordThrottle records a rate limiting or blocking response.
func (m *Monitor) RecordThrottle(statusCode int, retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastThrottleTime = m.now()

	switch statusCode {
	case 429:
		m.status429Count++
		m.retryAfterDuration = parseRetryAfter(retryAfter, m.lastThrottleTime)
	case 403:
		m.status403Count++
		m.retryAfterDuration = 10 * time.Minute
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date; defaults to one minute.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Minute
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := time.Parse(time.RFC1123, value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return time.Minute
}

// DetectThrottlePattern checks if a message contains throttle patterns.
func (m *Monitor) DetectThrottlePattern(message string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowerMsg := strings.ToLower(message)
	for _, pattern := range m.throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// Status returns the current upstream status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Monitor) statusLocked() Status {
	sinceThrottle := m.now().Sub(m.lastThrottleTime)

	if m.status403Count > 0 && sinceThrottle < m.retryAfterDuration {
		return StatusBlocked
	}
	if m.status429Count > 0 && sinceThrottle < m.retryAfterDuration {
		return StatusThrottled
	}

	if m.requestCount >= 10 &&
		float64(m.failureCount)/float64(m.requestCount) > m.degradedThreshold {
		return StatusDegraded
	}
	if len(m.recentLatencies) > 10 && m.averageLatencyLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

func (m *Monitor) averageLatencyLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// GetStats returns current monitoring statistics.
func (m *Monitor) GetStats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := MonitorStats{
		Status:            m.statusLocked().String(),
		AverageLatency:    m.averageLatencyLocked(),
		Requests:          m.requestCount,
		Failures:          m.failureCount,
		ThrottleCount429:  m.status429Count,
		ThrottleCount403:  m.status403Count,
		RequestsLast1Hour: len(m.requestTimestamps),
	}
	if remaining := m.retryAfterDuration - now.Sub(m.lastThrottleTime); remaining > 0 {
		stats.RetryAfter = remaining
	}
	return stats
}
