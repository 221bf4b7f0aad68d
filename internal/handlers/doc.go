// Package handlers provides the HTTP handlers of the thumbnail service.
//
// It includes handlers for:
//   - Thumbnail sets as JSON, with a ready-made srcset (GET /api/thumbnails)
//   - Single thumbnail images (GET /api/thumbnail)
//   - Thumbnail directory statistics (GET /api/stats)
//   - Health, liveness and readiness probes
//   - Version information and Prometheus metrics
//
// Generator errors map to status codes by kind: unresolvable sources are
// 400, unsupported images 415, remote probe failures 502, memory or engine
// exhaustion 503 with Retry-After, and file system or configuration faults
// 500.
package handlers
