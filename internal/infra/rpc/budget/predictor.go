package budget

import (
	"sync"
	"time"
)

// RatePredictor estimates request rate per scope and when a daily quota
// will run out at that rate.
type RatePredictor struct {
	mu sync.RWMutex

	scopes     map[string][]time.Time
	windowSize time.Duration
	maxSamples int
}

// NewRatePredictor creates a new predictor with default settings.
func NewRatePredictor() *RatePredictor {
	return &RatePredictor{
		scopes:     make(map[string][]time.Time),
		windowSize: 5 * time.Minute,
		maxSamples: 1000,
	}
}

// RecordRequest records a request for rate tracking.
func (p *RatePredictor) RecordRequest(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	timestamps := append(p.scopes[scope], now)

	// Prune old timestamps
	cutoff := now.Add(-p.windowSize)
	i := 0
	for i < len(timestamps) && !timestamps[i].After(cutoff) {
		i++
	}
	timestamps = timestamps[i:]

	if len(timestamps) > p.maxSamples {
		timestamps = timestamps[len(timestamps)-p.maxSamples:]
	}
	p.scopes[scope] = timestamps
}

// GetRequestRate returns the current request rate (requests per minute).
func (p *RatePredictor) GetRequestRate(scope string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	timestamps := p.scopes[scope]
	if len(timestamps) < 2 {
		return 0
	}

	cutoff := time.Now().Add(-p.windowSize)
	var count int
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			count++
		}
	}

	return float64(count) / p.windowSize.Minutes()
}

// PredictTimeToExhaustion predicts how long until quota is exhausted.
// Zero means no prediction.
func (p *RatePredictor) PredictTimeToExhaustion(scope string, remaining int) time.Duration {
	rate := p.GetRequestRate(scope)
	if rate <= 0 || remaining <= 0 {
		return 0
	}

	minutes := float64(remaining) / rate
	return time.Duration(minutes * float64(time.Minute))
}

// Reset clears all tracking data.
func (p *RatePredictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scopes = make(map[string][]time.Time)
}
