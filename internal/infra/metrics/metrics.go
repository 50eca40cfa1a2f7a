package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPAttemptsTotal counts every attempt by outcome ("success" or an error category)
	HTTPAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odos_http_attempts_total",
			Help: "Total number of HTTP attempts against the aggregator",
		},
		[]string{"endpoint", "outcome"},
	)

	// HTTPRetriesTotal counts retries scheduled by the engine
	HTTPRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odos_http_retries_total",
			Help: "Total number of retries scheduled after a retryable failure",
		},
		[]string{"endpoint", "category"},
	)

	// RateLimitedTotal counts 429 responses
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odos_rate_limited_total",
			Help: "Total number of rate limited responses",
		},
		[]string{"endpoint"},
	)

	// AttemptLatency tracks single attempt latency
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odos_http_attempt_latency_seconds",
			Help:    "HTTP attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// CallsTotal counts logical calls by result ("success" or the final error category)
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odos_calls_total",
			Help: "Total number of logical calls",
		},
		[]string{"endpoint", "result"},
	)

	// CooldownSeconds is the cooldown last imposed by the server per scope
	CooldownSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odos_rate_limit_cooldown_seconds",
			Help: "Most recent Retry-After cooldown per scope",
		},
		[]string{"scope"},
	)

	// CircuitBreakerState is the client breaker state (0 closed, 1 open, 2 half-open)
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "odos_circuit_breaker_state",
			Help: "Aggregator client circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)

	// CircuitRejectedTotal counts calls rejected by an open breaker
	CircuitRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "odos_circuit_rejected_total",
			Help: "Total number of calls rejected while the circuit breaker was open",
		},
	)

	// JournalPruned counts failure records deleted by the pruner
	JournalPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "odos_journal_pruned_total",
			Help: "Total number of failure journal records pruned",
		},
	)
)

// DBConnectionPoolUsage tracks journal database pool usage percentage
var DBConnectionPoolUsage = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "odos_db_connection_pool_usage_percent",
		Help: "Journal database connection pool usage percentage",
	},
)
