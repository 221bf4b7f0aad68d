// Package metrics provides Prometheus instrumentation for the thumbnail
// service.
//
// All metrics are prefixed with "thumbcache_" and registered with the default
// registry through promauto, so importing the package is enough to export
// them from promhttp.Handler.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Thumbnail Metrics
//   - ThumbnailRequestsTotal: sets served from cache, generated, or failed
//   - ThumbnailVariantsTotal: variants by terminal state
//   - ThumbnailCacheChecks: validity checks by outcome
//   - ThumbnailErrorsTotal: failures by error kind (see errdefs.Kind)
//   - ThumbnailCacheSizeBytes, ThumbnailCacheFiles: updated by Collector
//
// ## Raster Metrics
//   - RasterOperationDuration: decode/crop/resize/encode/write phases per engine
//   - RasterOutputsTotal, RasterOutputBytes
//
// ## Remote Metrics
//   - RemoteRequestsTotal, RemoteRequestDuration, RemoteFetchedBytes
//
// ## Memory Metrics
//   - MemoryUsageRatio, MemoryAdmissionRejections, MemoryAdmissionEstimateBytes
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by NewFilesystemObserver:
//   - FilesystemOperationDuration, FilesystemOperationErrors
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures,
//     FilesystemStaleErrors
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics
