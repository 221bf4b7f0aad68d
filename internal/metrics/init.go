package metrics

import "thumbcache/internal/errdefs"

// Volumes are the filesystem volume labels used by the service.
var Volumes = []string{"web", "thumbs", "remote", "unknown"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(engine string) {
	for _, vol := range Volumes {
		for _, op := range []string{"read", "write", "stat", "open", "mkdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, result := range []string{"cached", "generated", "error"} {
		ThumbnailRequestsTotal.WithLabelValues(result)
		ThumbnailRequestDuration.WithLabelValues(result)
		BatchSourcesTotal.WithLabelValues(result)
	}
	for _, state := range []string{"cache_hit", "not_needed", "generated"} {
		ThumbnailVariantsTotal.WithLabelValues(state)
	}
	for _, status := range []string{"valid", "missing", "stale", "unknown_origin"} {
		ThumbnailCacheChecks.WithLabelValues(status)
	}
	for _, kind := range errdefs.Labels() {
		ThumbnailErrorsTotal.WithLabelValues(kind)
	}

	for _, phase := range []string{"decode", "crop", "resize", "encode", "write"} {
		RasterOperationDuration.WithLabelValues(engine, phase)
	}
	for _, format := range []string{"jpeg", "png", "gif", "webp"} {
		RasterOutputsTotal.WithLabelValues(engine, format)
	}
	RasterOutputBytes.WithLabelValues(engine)

	for _, op := range []string{"probe", "fetch"} {
		RemoteRequestDuration.WithLabelValues(op)
		RemoteRequestsTotal.WithLabelValues(op, "success")
		RemoteRequestsTotal.WithLabelValues(op, "error")
	}
}
