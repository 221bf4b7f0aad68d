package thumbnail

import (
	"fmt"
	"time"

	"thumbcache/internal/geometry"
	"thumbcache/internal/imageinfo"
)

// ImageDescriptor describes an image on disk or on a remote origin. Width,
// Height and Format are zero until the image has been probed.
type ImageDescriptor struct {
	Locator  string           `json:"locator"`
	IsLocal  bool             `json:"isLocal"`
	URL      string           `json:"url"`
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Format   imageinfo.Format `json:"format"`
	ByteSize int64            `json:"byteSize"`
	ModTime  time.Time        `json:"modTime,omitzero"`
}

// Size returns the pixel dimensions of the image.
func (d ImageDescriptor) Size() geometry.Size {
	return geometry.Size{Width: d.Width, Height: d.Height}
}

// State tracks a variant through a single request.
type State int

const (
	Requested State = iota
	CacheHit
	NotNeeded
	CacheMiss
	Generating
	Generated
)

var stateNames = map[State]string{
	Requested:  "requested",
	CacheHit:   "cache_hit",
	NotNeeded:  "not_needed",
	CacheMiss:  "cache_miss",
	Generating: "generating",
	Generated:  "generated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == CacheHit || s == NotNeeded || s == Generated
}

var transitions = map[State][]State{
	Requested:  {CacheHit, NotNeeded, CacheMiss},
	CacheMiss:  {Generating},
	Generating: {Generated},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Variant is one density-specific thumbnail of an original. The embedded
// descriptor holds the thumbnail file, or the original itself when no
// thumbnail is needed. Width and Height are the logical size; RealWidth and
// RealHeight are the pixel size and never exceed the original.
type Variant struct {
	ImageDescriptor
	RequestedBox geometry.Size `json:"requestedBox"`
	Density      float64       `json:"density"`
	RealWidth    int           `json:"realWidth"`
	RealHeight   int           `json:"realHeight"`
	Exists       bool          `json:"exists"`
	State        State         `json:"state"`
}

func (v *Variant) transition(to State) error {
	if !CanTransition(v.State, to) {
		return fmt.Errorf("invalid thumbnail state transition %s -> %s for %s", v.State, to, v.Locator)
	}
	v.State = to
	return nil
}

// RealSize returns the pixel dimensions of the variant.
func (v Variant) RealSize() geometry.Size {
	return geometry.Size{Width: v.RealWidth, Height: v.RealHeight}
}

// Set is the result of a thumbnail request: the original and one variant per
// requested density, in request order.
type Set struct {
	Original ImageDescriptor   `json:"original"`
	Variants []Variant         `json:"variants"`
	Crop     geometry.Rect     `json:"crop"`
	Strategy geometry.Strategy `json:"strategy"`
}

// AllExist reports whether every variant is available without generation.
func (s *Set) AllExist() bool {
	for _, v := range s.Variants {
		if !v.Exists {
			return false
		}
	}
	return true
}

// Variant returns the variant for density, if requested.
func (s *Set) Variant(density float64) (Variant, bool) {
	for _, v := range s.Variants {
		if v.Density == density {
			return v, true
		}
	}
	return Variant{}, false
}
