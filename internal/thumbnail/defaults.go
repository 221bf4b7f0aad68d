package thumbnail

import (
	"fmt"
	"strings"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
)

// DefaultSizePolicy decides when the configured default size replaces a
// requested one.
type DefaultSizePolicy string

const (
	// DefaultSizeNone never applies the default size.
	DefaultSizeNone DefaultSizePolicy = ""
	// DefaultSizeAll applies the default size to every request.
	DefaultSizeAll DefaultSizePolicy = "all"
	// DefaultSizeNotResized applies it only to requests that do not resize
	// the original.
	DefaultSizeNotResized DefaultSizePolicy = "not_resized"
)

// ParseDefaultSizePolicy parses DEFAULT_SIZE values.
func ParseDefaultSizePolicy(s string) (DefaultSizePolicy, error) {
	switch p := DefaultSizePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DefaultSizeNone, DefaultSizeAll, DefaultSizeNotResized:
		return p, nil
	default:
		return DefaultSizeNone, fmt.Errorf("%w: unknown default size policy %q (use \"\", %q or %q)",
			errdefs.ErrConfiguration, s, DefaultSizeAll, DefaultSizeNotResized)
	}
}

// Defaults is the default thumbnail size and the policy selecting it. A zero
// Width or Height leaves that dimension alone.
type Defaults struct {
	Policy DefaultSizePolicy
	Width  int
	Height int
}

// Apply returns the box to use for a request of req against an original of
// size orig. When the policy applies, each dimension of the original larger
// than its default is limited to the default.
func (d Defaults) Apply(orig, req geometry.Size) geometry.Size {
	if !d.applies(orig, req) {
		return req
	}
	if d.Width > 0 && orig.Width > d.Width {
		req.Width = d.Width
	}
	if d.Height > 0 && orig.Height > d.Height {
		req.Height = d.Height
	}
	return req
}

func (d Defaults) applies(orig, req geometry.Size) bool {
	switch d.Policy {
	case DefaultSizeAll:
		return true
	case DefaultSizeNotResized:
		return !isResized(orig, req)
	default:
		return false
	}
}

// isResized reports whether req asks for a size different from orig. Zero
// dimensions are unconstrained.
func isResized(orig, req geometry.Size) bool {
	return (req.Width != 0 && req.Width != orig.Width) ||
		(req.Height != 0 && req.Height != orig.Height)
}
