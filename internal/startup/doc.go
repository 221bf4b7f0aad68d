// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [ReadConfig] parses the environment and validates every value; any invalid
// value fails with errdefs.ErrConfiguration naming all offending variables.
// [LoadConfig] additionally prints the banner, logs the result and prepares
// the web root. The following environment variables are supported:
//
//   - WEB_ROOT: Directory served as the site root (default: /var/www)
//   - BASE_URL: Public URL of the web root (default: http://localhost:PORT)
//   - THUMB_DIR: Thumbnail directory, relative to WEB_ROOT (default: images/thumbnails)
//   - SUBDIRS: Mirror source directories under THUMB_DIR (default: true)
//   - PATH_DELIMITER: Segment separator for flat layout names (default: -)
//   - COPY_REMOTE: Copy remote originals under REMOTE_DIR (default: false)
//   - REMOTE_DIR: Directory for remote copies (default: images/remote)
//   - RESIZE_TYPE: area, fill, fit or stretch (default: fill)
//   - RATIOS: Comma separated display densities (default: 1)
//   - DEFAULT_SIZE: "", all or not_resized
//   - DEFAULT_WIDTH, DEFAULT_HEIGHT: Default box for DEFAULT_SIZE
//   - RASTER_ENGINE: imaging or vips (default: imaging)
//   - JPEG_QUALITY: 1-100 (default: 90)
//   - PROBE_BYTES: First header read bound (default: 32768)
//   - MAX_REMOTE_BYTES: Cap for remote downloads (default: 52428800)
//   - REMOTE_TIMEOUT: HTTP timeout for remote originals (default: 30s)
//   - DIR_MODE, FILE_MODE: Octal permissions (default: 0755, 0644)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - STATS_INTERVAL: Thumbnail directory statistics interval (default: 5m)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Logging and memory variables (LOG_LEVEL, LOG_FILE, MEMORY_LIMIT,
// MEMORY_RATIO, GOMEMLIMIT) are read by the logging and memory packages.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X thumbcache/internal/startup.Version=1.2.0"
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Memory limit configuration
//   - [LogEngineInit]: Raster engine selection
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
