//go:build !cgo

package raster

import (
	"fmt"
	"image"
	"io"

	"thumbcache/internal/errdefs"
)

// encodeWebP is unavailable without cgo.
func encodeWebP(io.Writer, image.Image, int) error {
	return fmt.Errorf("%w: webp encoding requires a cgo build", errdefs.ErrUnsupportedImageType)
}
