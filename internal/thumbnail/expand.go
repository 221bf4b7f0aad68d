package thumbnail

import (
	"fmt"
	"math"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
)

// DefaultDensities is used when a request names no densities.
var DefaultDensities = []float64{1}

// Scaled is the pixel size of one density of a thumbnail.
type Scaled struct {
	Density float64
	Real    geometry.Size
	// NotNeeded is set when the scaled size covers the whole original, so
	// the original can be served instead.
	NotNeeded bool
}

// Expand scales out by each density. A density that would upscale the
// original on either axis is clamped to the largest factor the original
// supports, with the same factor applied to both axes.
func Expand(original, out geometry.Size, densities []float64) []Scaled {
	scaled := make([]Scaled, 0, len(densities))
	for _, d := range densities {
		r := d
		if float64(out.Width)*r > float64(original.Width) || float64(out.Height)*r > float64(original.Height) {
			r = min(r,
				float64(original.Width)/float64(out.Width),
				float64(original.Height)/float64(out.Height))
		}
		size := geometry.Size{
			Width:  scaleFloor(out.Width, r, original.Width),
			Height: scaleFloor(out.Height, r, original.Height),
		}
		scaled = append(scaled, Scaled{
			Density:   d,
			Real:      size,
			NotNeeded: size.Width >= original.Width && size.Height >= original.Height,
		})
	}
	return scaled
}

// scaleFloor floors v*r, absorbing float error just below an integer, and
// never returns more than limit or less than 1.
func scaleFloor(v int, r float64, limit int) int {
	n := int(math.Floor(float64(v)*r + 1e-9))
	return max(min(n, limit), 1)
}

// normalizeDensities validates densities, drops duplicates and falls back to
// fallback (then DefaultDensities) when empty.
func normalizeDensities(densities, fallback []float64) ([]float64, error) {
	if len(densities) == 0 {
		densities = fallback
	}
	if len(densities) == 0 {
		densities = DefaultDensities
	}

	seen := make(map[float64]bool, len(densities))
	out := make([]float64, 0, len(densities))
	for _, d := range densities {
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: invalid density %v", errdefs.ErrConfiguration, d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out, nil
}
