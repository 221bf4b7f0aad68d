// Package middleware provides HTTP middleware for the thumbnail service.
//
// It includes:
//   - Request IDs propagated through X-Request-ID and the request context
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
package middleware
