package provider

import (
	"sync"
	"time"
)

// Status represents the health state of a transport.
type Status int

const (
	StatusHealthy   Status = iota // Transport is working normally
	StatusDegraded                // Transport is slow but working
	StatusThrottled               // Server asked us to back off
)

func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	default:
		return "healthy"
	}
}

// MonitorStats holds monitoring statistics for a transport.
type MonitorStats struct {
	Status            string        `json:"status"`
	AverageLatency    time.Duration `json:"average_latency"`
	RateLimitCount    int           `json:"rate_limit_count"`
	LastRetryAfter    time.Duration `json:"last_retry_after"`
	HasRetryAfter     bool          `json:"has_retry_after"`
	RequestsLast1Hour int           `json:"requests_last_1h"`
	RequestsInWindow  int           `json:"requests_in_window"`
}

// Monitor tracks latency and 429 responses. It only observes: nothing in
// the retry path consults it to decide whether to send.
type Monitor struct {
	mu sync.RWMutex

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	// Rate limit tracking
	rateLimitCount   int
	lastThrottleTime time.Time
	lastRetryAfter   *time.Duration

	// Sliding window
	requestTimestamps []time.Time
	windowDuration    time.Duration

	slowResponseThreshold time.Duration
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		requestTimestamps:     make([]time.Time, 0),
		windowDuration:        24 * time.Hour,
		slowResponseThreshold: 3 * time.Second,
	}
}

// RecordRequest records a completed round trip with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)

	// Drop timestamps outside the window
	cutoff := now.Add(-m.windowDuration)
	i := 0
	for i < len(m.requestTimestamps) && !m.requestTimestamps[i].After(cutoff) {
		i++
	}
	m.requestTimestamps = m.requestTimestamps[i:]
}

// RecordThrottle records a 429. retryAfter is nil when the server sent no
// usable hint.
func (m *Monitor) RecordThrottle(retryAfter *time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rateLimitCount++
	m.lastThrottleTime = time.Now()
	if retryAfter != nil {
		d := *retryAfter
		m.lastRetryAfter = &d
	} else {
		m.lastRetryAfter = nil
	}
}

// CheckStatus returns the current status of the transport.
func (m *Monitor) CheckStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Monitor) statusLocked() Status {
	if m.lastRetryAfter != nil && time.Since(m.lastThrottleTime) < *m.lastRetryAfter {
		return StatusThrottled
	}

	if len(m.recentLatencies) > 10 && m.averageLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

// GetRetryAfter returns the time left on the last server hint.
func (m *Monitor) GetRetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRetryAfter == nil {
		return 0
	}
	if remaining := *m.lastRetryAfter - time.Since(m.lastThrottleTime); remaining > 0 {
		return remaining
	}
	return 0
}

// GetAverageLatency returns the average latency of recent requests.
func (m *Monitor) GetAverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageLocked()
}

func (m *Monitor) averageLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}

	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// GetRequestCount returns number of requests in the given duration.
func (m *Monitor) GetRequestCount(duration time.Duration) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countLocked(duration)
}

func (m *Monitor) countLocked(duration time.Duration) int {
	cutoff := time.Now().Add(-duration)
	count := 0
	for _, t := range m.requestTimestamps {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

// GetStats returns current monitoring statistics.
func (m *Monitor) GetStats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MonitorStats{
		Status:            m.statusLocked().String(),
		AverageLatency:    m.averageLocked(),
		RateLimitCount:    m.rateLimitCount,
		RequestsLast1Hour: m.countLocked(time.Hour),
		RequestsInWindow:  len(m.requestTimestamps),
	}
	if m.lastRetryAfter != nil {
		stats.LastRetryAfter = *m.lastRetryAfter
		stats.HasRetryAfter = true
	}
	return stats
}
