package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrolly_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Timeline Metrics
	RegionMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_region_mutations_total",
			Help: "Total number of region store mutations",
		},
		[]string{"operation", "status"},
	)

	RegionsPerRecord = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrolly_regions_per_record",
			Help:    "Number of regions in a saved record",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	ActiveRegionChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_active_region_changes_total",
			Help: "Total number of active region changes",
		},
		[]string{"kind"},
	)

	// Playback Metrics
	SeeksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_seeks_total",
			Help: "Seek decisions taken by the playback synchronizer",
		},
		[]string{"result", "reason"},
	)

	DebouncedRecomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_debounced_recomputes_total",
			Help: "Recomputations run after a debounce window",
		},
		[]string{"trigger"},
	)

	AutoplayUnlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_autoplay_unlocks_total",
			Help: "Autoplay unlock attempts by outcome",
		},
		[]string{"outcome"},
	)

	MuteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_mute_toggles_total",
			Help: "Writes to the shared mute flag",
		},
		[]string{"muted"},
	)

	// Queue Metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scrolly_queue_depth",
			Help: "Messages waiting in a queue",
		},
		[]string{"queue"},
	)

	// Embed Metrics
	EmbedsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_embeds_published_total",
			Help: "Embed payloads written to object storage",
		},
		[]string{"kind", "status"},
	)

	EmbedPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrolly_embed_publish_duration_seconds",
			Help:    "Time to build and upload embed artefacts",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"kind"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrolly_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrolly_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrolly_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRegionMutation records an insert, update or remove on a region store
func RecordRegionMutation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RegionMutationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRegionsPerRecord records the region count of a saved record
func RecordRegionsPerRecord(count int) {
	RegionsPerRecord.Observe(float64(count))
}

// RecordActiveRegionChange records a change of the resolved region
func RecordActiveRegionChange(kind string) {
	ActiveRegionChangesTotal.WithLabelValues(kind).Inc()
}

// RecordSeek records whether a seek was applied or skipped
func RecordSeek(applied bool, reason string) {
	result := "skipped"
	if applied {
		result = "applied"
	}
	SeeksTotal.WithLabelValues(result, reason).Inc()
}

// RecordDebouncedRecompute records a recomputation after a quiescence window
func RecordDebouncedRecompute(trigger string) {
	DebouncedRecomputesTotal.WithLabelValues(trigger).Inc()
}

// RecordAutoplayUnlock records the outcome of one autoplay unlock attempt
func RecordAutoplayUnlock(outcome string) {
	AutoplayUnlocksTotal.WithLabelValues(outcome).Inc()
}

// RecordMuteToggle records a write to the shared mute flag
func RecordMuteToggle(muted bool) {
	label := "false"
	if muted {
		label = "true"
	}
	MuteTogglesTotal.WithLabelValues(label).Inc()
}

// SetQueueDepth records the depth of a queue
func SetQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordEmbedPublished records an embed publish
func RecordEmbedPublished(kind, status string, duration float64) {
	EmbedsPublishedTotal.WithLabelValues(kind, status).Inc()
	EmbedPublishDuration.WithLabelValues(kind).Observe(duration)
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	if bytesTransferred > 0 {
		StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
	}
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records a cache access
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
