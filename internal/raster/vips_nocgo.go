//go:build !cgo

package raster

import (
	"fmt"

	"thumbcache/internal/errdefs"
)

// InitVips reports that libvips is not linked into this build.
func InitVips() error {
	return fmt.Errorf("%w: libvips requires a cgo build", errdefs.ErrEngineUnavailable)
}

// ShutdownVips is a no-op without libvips.
func ShutdownVips() {}

// IsVipsAvailable always reports false without cgo.
func IsVipsAvailable() bool { return false }

func newVipsEngine(Options) (Engine, error) {
	return nil, InitVips()
}
