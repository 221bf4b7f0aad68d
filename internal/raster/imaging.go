package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	// Decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/imageinfo"
	"thumbcache/internal/logging"
	"thumbcache/internal/metrics"
)

// imagingEngine is the pure Go engine built on disintegration/imaging.
type imagingEngine struct {
	opts Options
}

func newImagingEngine(opts Options) (Engine, error) {
	return &imagingEngine{opts: opts}, nil
}

func (e *imagingEngine) Name() string { return "imaging" }

func (e *imagingEngine) CropAndResize(ctx context.Context, source string, crop geometry.Rect, targets []Target) error {
	if len(targets) == 0 {
		return nil
	}

	start := time.Now()
	data, err := e.opts.Store.Read(source, 0)
	if err != nil {
		return err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return fmt.Errorf("%w: %s", errdefs.ErrUnsupportedImageType, source)
		}
		return fmt.Errorf("%w: failed to decode %s: %v", errdefs.ErrUnsupportedImageType, source, err)
	}
	observe(e.Name(), "decode", start)

	bounds := img.Bounds()
	if err := validate(crop, bounds.Dx(), bounds.Dy(), targets); err != nil {
		return err
	}

	start = time.Now()
	var cropped image.Image = img
	if crop.X != 0 || crop.Y != 0 || crop.Width != bounds.Dx() || crop.Height != bounds.Dy() {
		r := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height).Add(bounds.Min)
		cropped = imaging.Crop(img, r)
	}
	observe(e.Name(), "crop", start)

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		start = time.Now()
		resized := imaging.Resize(cropped, t.Width, t.Height, imaging.Lanczos)
		observe(e.Name(), "resize", start)

		format, _ := outputFormat(t.Path)
		start = time.Now()
		out, err := e.encode(resized, format)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", t.Path, err)
		}
		observe(e.Name(), "encode", start)

		start = time.Now()
		if err := e.opts.Store.Write(t.Path, out, e.opts.FileMode); err != nil {
			return err
		}
		observe(e.Name(), "write", start)

		metrics.RasterOutputsTotal.WithLabelValues(e.Name(), format.String()).Inc()
		metrics.RasterOutputBytes.WithLabelValues(e.Name()).Add(float64(len(out)))
		logging.Debug("Wrote %dx%d %s thumbnail %s (%d bytes)", t.Width, t.Height, format, t.Path, len(out))
	}
	return nil
}

func (e *imagingEngine) encode(img image.Image, format imageinfo.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case imageinfo.JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.opts.JPEGQuality))
	case imageinfo.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case imageinfo.GIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	case imageinfo.WEBP:
		err = encodeWebP(&buf, img, e.opts.JPEGQuality)
	default:
		err = fmt.Errorf("%w: %s", errdefs.ErrUnsupportedImageType, format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func observe(engine, phase string, start time.Time) {
	metrics.RasterOperationDuration.WithLabelValues(engine, phase).Observe(time.Since(start).Seconds())
}
