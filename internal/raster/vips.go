//go:build cgo

package raster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davidbyttow/govips/v2/vips"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/imageinfo"
	"thumbcache/internal/logging"
	"thumbcache/internal/metrics"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogSettings returns a handler forwarding libvips messages into the
// application log and the libvips threshold matching the application level.
func vipsLogSettings(level logging.LogLevel) (func(string, vips.LogLevel, string), vips.LogLevel) {
	forward := func(domain string, l vips.LogLevel, msg string) {
		switch l {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}

	switch level {
	case logging.LevelDebug:
		return forward, vips.LogLevelInfo
	case logging.LevelWarn:
		return forward, vips.LogLevelError
	case logging.LevelError:
		return forward, vips.LogLevelCritical
	default:
		return forward, vips.LogLevelWarning
	}
}

// InitVips initializes the libvips library.
// This should be called once at startup; later calls are no-ops.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup.
	vips.LoggingSettings(vipsLogSettings(logging.GetLevel()))

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources. libvips cannot be started again
// in the same process afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// vipsEngine crops and resizes with libvips.
type vipsEngine struct {
	opts Options
}

func newVipsEngine(opts Options) (Engine, error) {
	if err := InitVips(); err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrEngineUnavailable, err)
	}
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("%w: libvips has been shut down", errdefs.ErrEngineUnavailable)
	}
	return &vipsEngine{opts: opts}, nil
}

func (e *vipsEngine) Name() string { return "vips" }

func (e *vipsEngine) CropAndResize(ctx context.Context, source string, crop geometry.Rect, targets []Target) error {
	if len(targets) == 0 {
		return nil
	}

	start := time.Now()
	data, err := e.opts.Store.Read(source, 0)
	if err != nil {
		return err
	}
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return fmt.Errorf("%w: vips failed to load %s: %v", errdefs.ErrUnsupportedImageType, source, err)
	}
	defer ref.Close()
	observe(e.Name(), "decode", start)

	if err := validate(crop, ref.Width(), ref.Height(), targets); err != nil {
		return err
	}

	start = time.Now()
	if crop.X != 0 || crop.Y != 0 || crop.Width != ref.Width() || crop.Height != ref.Height() {
		if err := ref.ExtractArea(crop.X, crop.Y, crop.Width, crop.Height); err != nil {
			return fmt.Errorf("vips crop of %s failed: %w", source, err)
		}
	}
	observe(e.Name(), "crop", start)

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.writeTarget(ref, t); err != nil {
			return err
		}
	}
	return nil
}

func (e *vipsEngine) writeTarget(ref *vips.ImageRef, t Target) error {
	start := time.Now()
	scaled, err := ref.Copy()
	if err != nil {
		return fmt.Errorf("vips copy failed: %w", err)
	}
	defer scaled.Close()

	hscale := float64(t.Width) / float64(ref.Width())
	vscale := float64(t.Height) / float64(ref.Height())
	if err := scaled.ResizeWithVScale(hscale, vscale, vips.KernelLanczos3); err != nil {
		return fmt.Errorf("vips resize to %dx%d failed: %w", t.Width, t.Height, err)
	}
	observe(e.Name(), "resize", start)

	format, _ := outputFormat(t.Path)
	start = time.Now()
	var out []byte
	switch format {
	case imageinfo.JPEG:
		out, _, err = scaled.ExportJpeg(&vips.JpegExportParams{
			Quality:        e.opts.JPEGQuality,
			StripMetadata:  true,
			OptimizeCoding: true,
		})
	case imageinfo.PNG:
		out, _, err = scaled.ExportPng(vips.NewPngExportParams())
	case imageinfo.GIF:
		out, _, err = scaled.ExportGIF(vips.NewGifExportParams())
	case imageinfo.WEBP:
		params := vips.NewWebpExportParams()
		params.Quality = e.opts.JPEGQuality
		out, _, err = scaled.ExportWebp(params)
	default:
		err = fmt.Errorf("%w: %s", errdefs.ErrUnsupportedImageType, format)
	}
	if err != nil {
		return fmt.Errorf("vips export of %s failed: %w", t.Path, err)
	}
	observe(e.Name(), "encode", start)

	start = time.Now()
	if err := e.opts.Store.Write(t.Path, out, e.opts.FileMode); err != nil {
		return err
	}
	observe(e.Name(), "write", start)

	metrics.RasterOutputsTotal.WithLabelValues(e.Name(), format.String()).Inc()
	metrics.RasterOutputBytes.WithLabelValues(e.Name()).Add(float64(len(out)))
	logging.Debug("Wrote %dx%d %s thumbnail %s with vips (%d bytes)", scaled.Width(), scaled.Height(), format, t.Path, len(out))
	return nil
}
