//go:build cgo

package raster

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

// encodeWebP writes lossy WebP at the given 0-100 quality.
func encodeWebP(w io.Writer, img image.Image, quality int) error {
	q := float32(quality)
	if q < 0 {
		q = 0
	}
	if q > 100 {
		q = 100
	}
	return webp.Encode(w, img, &webp.Options{Quality: q})
}
