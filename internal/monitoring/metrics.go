package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal tracks finished jobs by outcome and service
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hasod_jobs_total",
			Help: "Total number of finished download jobs",
		},
		[]string{"status", "service"},
	)

	// JobDuration tracks end-to-end job duration by service
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hasod_job_duration_seconds",
			Help:    "Download job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
		},
		[]string{"service"},
	)

	// QueueSize tracks the number of jobs waiting in the queue
	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hasod_queue_size",
			Help: "Number of queued jobs",
		},
	)

	// ProcessingActive reports whether the sequential processor is running
	ProcessingActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hasod_processing_active",
			Help: "1 while the queue processor loop is running",
		},
	)

	// ResolverFallbacks counts fallback transitions within resolution chains
	ResolverFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hasod_resolver_fallbacks_total",
			Help: "Resolution branches abandoned for the next fallback",
		},
		[]string{"service", "branch"},
	)

	// SearchTiers counts ranking search outcomes by winning tier
	SearchTiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hasod_search_tier_total",
			Help: "Catalog ranking search results by selected tier",
		},
		[]string{"tier"},
	)

	// DecryptionDuration tracks decryption duration
	DecryptionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hasod_decryption_duration_seconds",
			Help:    "Decryption duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APIRequestsTotal tracks API requests by endpoint and status
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hasod_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "status"},
	)

	// APIRequestDuration tracks API request duration
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hasod_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// ErrorsTotal tracks errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hasod_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

// RecordJobComplete records a successfully finished job
func RecordJobComplete(service string, duration time.Duration) {
	JobsTotal.WithLabelValues("complete", service).Inc()
	JobDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordJobFailed records a failed job
func RecordJobFailed(service string, errorType string) {
	JobsTotal.WithLabelValues("error", service).Inc()
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateQueueSize updates the queue size gauge
func UpdateQueueSize(size int) {
	QueueSize.Set(float64(size))
}

// SetProcessing flips the processor activity gauge
func SetProcessing(active bool) {
	if active {
		ProcessingActive.Set(1)
	} else {
		ProcessingActive.Set(0)
	}
}

// RecordResolverFallback records a resolution branch giving way to the next
func RecordResolverFallback(service, branch string) {
	ResolverFallbacks.WithLabelValues(service, branch).Inc()
}

// RecordSearchTier records the winning tier of a ranking search
func RecordSearchTier(tier string) {
	SearchTiers.WithLabelValues(tier).Inc()
}

// RecordDecryption records a decryption operation
func RecordDecryption(duration time.Duration) {
	DecryptionDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records an API request
func RecordAPIRequest(endpoint string, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordError records an error
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}
