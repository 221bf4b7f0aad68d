// Package raster performs the pixel work of thumbnail generation: one decode
// and crop of the original, then one resize and encode per target.
package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/imageinfo"
)

// Target is one output of a CropAndResize call.
type Target struct {
	Width  int
	Height int
	Path   string
}

// Store reads originals and writes results. filesystem.Local satisfies it.
type Store interface {
	Read(path string, maxBytes int64) ([]byte, error)
	Write(path string, data []byte, mode os.FileMode) error
}

// Engine crops an original once and writes a resized copy per target. The
// output format of each target follows its file extension.
type Engine interface {
	Name() string
	CropAndResize(ctx context.Context, source string, crop geometry.Rect, targets []Target) error
}

// Options configures an engine.
type Options struct {
	Store       Store
	JPEGQuality int
	FileMode    os.FileMode
}

// DefaultJPEGQuality is used when Options.JPEGQuality is out of range.
const DefaultJPEGQuality = 85

// DefaultEngine is the engine selected by an empty name.
const DefaultEngine = "imaging"

type factory func(Options) (Engine, error)

var engines = map[string]factory{
	"imaging": newImagingEngine,
	"vips":    newVipsEngine,
}

// Names lists the registered engine names.
func Names() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the engine registered under name. Unknown names fail with
// ErrConfiguration; engines whose library is missing fail with
// ErrEngineUnavailable.
func New(name string, opts Options) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultEngine
	}
	build, ok := engines[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown raster engine %q (available: %s)",
			errdefs.ErrConfiguration, name, strings.Join(Names(), ", "))
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: raster engine needs a store", errdefs.ErrConfiguration)
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	return build(opts)
}

// outputFormat picks the encoder for a target path.
func outputFormat(path string) (imageinfo.Format, error) {
	ext := filepath.Ext(path)
	format := imageinfo.ParseFormat(ext)
	if format == imageinfo.Unknown {
		return format, fmt.Errorf("%w: no encoder for %q", errdefs.ErrUnsupportedImageType, ext)
	}
	return format, nil
}

// validate rejects crops outside the source and empty targets.
func validate(crop geometry.Rect, width, height int, targets []Target) error {
	if crop.Width <= 0 || crop.Height <= 0 || crop.X < 0 || crop.Y < 0 ||
		crop.X+crop.Width > width || crop.Y+crop.Height > height {
		return fmt.Errorf("%w: crop %dx%d+%d+%d outside %dx%d source",
			errdefs.ErrUnsupportedImageType, crop.Width, crop.Height, crop.X, crop.Y, width, height)
	}
	for _, t := range targets {
		if t.Width <= 0 || t.Height <= 0 {
			return fmt.Errorf("%w: invalid target size %dx%d for %s", errdefs.ErrConfiguration, t.Width, t.Height, t.Path)
		}
		if _, err := outputFormat(t.Path); err != nil {
			return err
		}
	}
	return nil
}
