// Package geometry computes thumbnail output sizes and crop rectangles.
//
// A Strategy is a closed enum. Names are resolved through a fixed registry
// once at startup; there is no runtime registration.
package geometry

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"thumbcache/internal/errdefs"
)

// Size is a width/height pair in pixels. A zero dimension in a requested box
// means "derive from the other one".
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect is a crop rectangle in original-image pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the outcome of a geometry computation.
type Result struct {
	Size Size
	Crop Rect
}

// Strategy selects how a requested box maps onto an original image.
type Strategy int

const (
	// Stretch scales to exactly the requested box, ignoring aspect ratio.
	Stretch Strategy = iota
	// Fit scales to fit inside the box, preserving aspect ratio.
	Fit
	// Fill crops the centre of the original to the box aspect ratio.
	Fill
	// Area matches the requested pixel count rather than the box.
	Area
)

type computeFunc func(orig, req Size) Result

type entry struct {
	name    string
	compute computeFunc
}

// registry is read-only after package initialisation.
var registry = map[Strategy]entry{
	Stretch: {"stretch", stretch},
	Fit:     {"fit", fit},
	Fill:    {"fill", fill},
	Area:    {"area", area},
}

var byName = func() map[string]Strategy {
	m := make(map[string]Strategy, len(registry))
	for s, e := range registry {
		m[e.name] = s
	}
	return m
}()

// Lookup resolves a strategy name (case-insensitive).
func Lookup(name string) (Strategy, error) {
	s, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown resize strategy %q (known: %s)",
			errdefs.ErrConfiguration, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// String returns the registry name of the strategy.
func (s Strategy) String() string {
	if e, ok := registry[s]; ok {
		return e.name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// MarshalText encodes the strategy by name.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Compute returns the output size and crop rectangle for an original of size
// orig and a requested box req. The original must have positive dimensions.
// A request of 0x0 yields the original size with a full crop.
func (s Strategy) Compute(orig, req Size) Result {
	if req.Width <= 0 && req.Height <= 0 {
		return Result{Size: orig, Crop: full(orig)}
	}
	e, ok := registry[s]
	if !ok {
		e = registry[Fit]
	}
	r := e.compute(orig, req)
	r.Size.Width = max(r.Size.Width, 1)
	r.Size.Height = max(r.Size.Height, 1)
	return r
}

func full(orig Size) Rect {
	return Rect{Width: orig.Width, Height: orig.Height}
}

// round rounds half away from zero.
func round(v float64) int {
	return int(math.Round(v))
}

// completeBox fills a missing requested dimension from the original aspect
// ratio, truncating toward zero.
func completeBox(orig, req Size) Size {
	if req.Width <= 0 {
		req.Width = req.Height * orig.Width / orig.Height
	}
	if req.Height <= 0 {
		req.Height = req.Width * orig.Height / orig.Width
	}
	return req
}

func stretch(orig, req Size) Result {
	return Result{Size: completeBox(orig, req), Crop: full(orig)}
}

func fit(orig, req Size) Result {
	widthDominant := req.Height <= 0 ||
		(req.Width > 0 && float64(orig.Width)/float64(req.Width) > float64(orig.Height)/float64(req.Height))

	if widthDominant {
		return Result{
			Size: Size{
				Width:  req.Width,
				Height: round(float64(orig.Height) * float64(req.Width) / float64(orig.Width)),
			},
			Crop: full(orig),
		}
	}
	return Result{
		Size: Size{
			Width:  round(float64(orig.Width) * float64(req.Height) / float64(orig.Height)),
			Height: req.Height,
		},
		Crop: full(orig),
	}
}

func fill(orig, req Size) Result {
	req = completeBox(orig, req)
	if req.Width <= 0 || req.Height <= 0 {
		return Result{Size: req, Crop: full(orig)}
	}

	var crop Rect
	if float64(orig.Width)/float64(orig.Height) < float64(req.Width)/float64(req.Height) {
		h := min(round(float64(orig.Width)*float64(req.Height)/float64(req.Width)), orig.Height)
		crop = Rect{X: 0, Y: (orig.Height - h) / 2, Width: orig.Width, Height: h}
	} else {
		w := min(round(float64(orig.Height)*float64(req.Width)/float64(req.Height)), orig.Width)
		crop = Rect{X: (orig.Width - w) / 2, Y: 0, Width: w, Height: orig.Height}
	}
	return Result{Size: req, Crop: crop}
}

func area(orig, req Size) Result {
	if req.Width <= 0 || req.Height <= 0 {
		return fit(orig, req)
	}
	ratio := math.Sqrt(float64(orig.Width) * float64(orig.Height) / (float64(req.Width) * float64(req.Height)))
	return Result{
		Size: Size{
			Width:  round(float64(orig.Width) / ratio),
			Height: round(float64(orig.Height) / ratio),
		},
		Crop: full(orig),
	}
}
