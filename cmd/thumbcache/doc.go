// Command thumbcache serves cached thumbnails of the images under a web root.
//
// Thumbnails are derived on demand: a request names a source image, a box
// and a set of display densities, and the server answers with the URLs of
// the matching thumbnail files, generating missing or stale ones first.
// The files themselves live under the web root and are served statically,
// so a front proxy can cache them like any other asset.
//
// # Application Lifecycle
//
//  1. Logging and memory configuration (LOG_LEVEL, LOG_FILE, GOMEMLIMIT,
//     MEMORY_LIMIT)
//  2. Configuration loading and validation (see package startup)
//  3. Pipeline assembly: file system, remote prober, raster engine, memory
//     budget and thumbnail generator (see package app)
//  4. Metrics collector for thumbnail directory statistics
//  5. HTTP server and optional metrics server
//  6. Graceful shutdown on SIGINT or SIGTERM
//
// # HTTP Server
//
// The main server (default port 8080) exposes:
//
//   - GET /api/thumbnails?src=&w=&h=&ratios=  thumbnail set as JSON
//   - GET /api/thumbnail?src=&w=&h=&ratio=    a single thumbnail image
//   - GET /api/stats                          thumbnail directory statistics
//   - GET /health, /healthz, /livez, /readyz  probes
//   - GET /version, /api/version              build information
//   - everything else                         static files from WEB_ROOT
//
// The metrics server (default port 9090) serves /metrics.
//
// # Build
//
// The imaging engine is pure Go. The vips engine and WebP output need cgo
// and libvips:
//
//	CGO_ENABLED=1 go build -o thumbcache ./cmd/thumbcache
//
// For batch generation without a server, see cmd/thumbgen.
package main
