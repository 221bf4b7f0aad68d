package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Thumbnail pipeline metrics
var (
	ThumbnailRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_thumbnail_requests_total",
			Help: "Thumbnail set requests by outcome",
		},
		[]string{"result"}, // "cached", "generated", "error"
	)

	ThumbnailRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_thumbnail_request_duration_seconds",
			Help:    "Time to resolve a thumbnail set, including generation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"result"},
	)

	ThumbnailVariantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_thumbnail_variants_total",
			Help: "Thumbnail variants by terminal state",
		},
		[]string{"state"}, // "cache_hit", "not_needed", "generated"
	)

	ThumbnailCacheChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_thumbnail_cache_checks_total",
			Help: "Cache validity checks by status",
		},
		[]string{"status"}, // "valid", "missing", "stale", "unknown_origin"
	)

	ThumbnailErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_thumbnail_errors_total",
			Help: "Failed thumbnail requests by error kind",
		},
		[]string{"kind"},
	)

	ThumbnailCacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_thumbnail_cache_size_bytes",
			Help: "Total size of the thumbnail directory in bytes",
		},
	)

	ThumbnailCacheFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_thumbnail_cache_files",
			Help: "Number of files in the thumbnail directory",
		},
	)
)

// Raster engine metrics
var (
	RasterOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_raster_operation_duration_seconds",
			Help:    "Duration of raster engine phases",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"engine", "phase"}, // phase: "decode", "crop", "resize", "encode", "write"
	)

	RasterOutputsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_raster_outputs_total",
			Help: "Images written by the raster engine by format",
		},
		[]string{"engine", "format"},
	)

	RasterOutputBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_raster_output_bytes_total",
			Help: "Bytes written by the raster engine",
		},
		[]string{"engine"},
	)
)

// Remote origin metrics
var (
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_remote_requests_total",
			Help: "HTTP requests made to remote origins",
		},
		[]string{"operation", "status"}, // operation: "probe", "fetch"; status: "success", "error"
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_remote_request_duration_seconds",
			Help:    "Duration of requests to remote origins",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RemoteFetchedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbcache_remote_fetched_bytes_total",
			Help: "Bytes copied from remote origins",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit at the last admission check",
		},
	)

	MemoryAdmissionRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbcache_memory_admission_rejections_total",
			Help: "Raster batches rejected by the memory admission check",
		},
	)

	MemoryAdmissionEstimateBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbcache_memory_admission_estimate_bytes",
			Help:    "Estimated peak memory of admitted and rejected raster batches",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12), // 1 MiB .. 2 GiB
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_operation_errors_total",
			Help: "Failed filesystem operations by volume",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_retry_attempts_total",
			Help: "Retries after NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_retry_success_total",
			Help: "Operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors seen",
		},
		[]string{"operation", "volume"},
	)
)

// Batch metrics (thumbgen)
var (
	BatchSourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_batch_sources_total",
			Help: "Sources processed by batch generation",
		},
		[]string{"result"},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbcache_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
