package handlers

import (
	"context"
	"time"

	"thumbcache/internal/metrics"
	"thumbcache/internal/thumbnail"
)

// Thumbnailer produces thumbnail sets. *thumbnail.Generator implements it.
type Thumbnailer interface {
	GetThumbnails(ctx context.Context, src string, width, height int, densities []float64) (*thumbnail.Set, error)
	metrics.StatsProvider
}

// Handlers serves the thumbnail API and the operational endpoints.
type Handlers struct {
	thumbs  Thumbnailer
	engine  string
	started time.Time
}

// New creates the handlers. engine is reported by the health endpoint.
func New(thumbs Thumbnailer, engine string) *Handlers {
	return &Handlers{
		thumbs:  thumbs,
		engine:  engine,
		started: time.Now(),
	}
}
