// Package imageinfo identifies image formats and reads image dimensions from
// the leading bytes of a file, without decoding pixel data.
package imageinfo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	// Header decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"thumbcache/internal/errdefs"
)

// Format is the container format of an image.
type Format int

const (
	Unknown Format = iota
	JPEG
	PNG
	GIF
	WEBP
)

var formatNames = map[Format]string{
	Unknown: "unknown",
	JPEG:    "jpeg",
	PNG:     "png",
	GIF:     "gif",
	WEBP:    "webp",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return formatNames[Unknown]
}

// MarshalText encodes the format by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpeg", "jpg", "jpe":
		return JPEG
	case "png":
		return PNG
	case "gif":
		return GIF
	case "webp":
		return WEBP
	default:
		return Unknown
	}
}

// Info describes an image header.
type Info struct {
	Width  int
	Height int
	Format Format
	// Codec is the name of the decoder that read the header, which may name
	// formats outside Format (bmp, tiff).
	Codec string
}

// HeaderSize is the number of leading bytes Detect looks at.
const HeaderSize = 32

// Detect identifies the format from magic bytes.
func Detect(header []byte) Format {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return JPEG

	case len(header) >= 8 && header[0] == 0x89 && header[1] == 0x50 && header[2] == 0x4E && header[3] == 0x47:
		return PNG

	case len(header) >= 4 && header[0] == 0x47 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x38:
		return GIF

	case len(header) >= 12 && header[0] == 0x52 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x46 &&
		header[8] == 0x57 && header[9] == 0x45 && header[10] == 0x42 && header[11] == 0x50:
		return WEBP
	}
	return Unknown
}

// Decode reads the dimensions from a (possibly partial) image. Data in a
// format no decoder recognizes fails with ErrUnsupportedImageType; a header
// cut short by a bounded read fails with a plain error so the caller can
// retry with more bytes.
func Decode(data []byte) (Info, error) {
	cfg, codec, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, fmt.Errorf("%w: unrecognized image data", errdefs.ErrUnsupportedImageType)
		}
		return Info{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: invalid dimensions %dx%d", errdefs.ErrUnsupportedImageType, cfg.Width, cfg.Height)
	}

	format := Detect(data)
	if format == Unknown {
		format = ParseFormat(codec)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format, Codec: codec}, nil
}

// DecodeFile reads the header of the image at path.
func DecodeFile(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: failed to open %s: %v", errdefs.ErrFileSystem, path, err)
	}
	defer file.Close()

	cfg, codec, err := image.DecodeConfig(file)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, fmt.Errorf("%w: %s", errdefs.ErrUnsupportedImageType, path)
		}
		return Info{}, fmt.Errorf("failed to decode image config for %s: %w", path, err)
	}

	header := make([]byte, HeaderSize)
	n, _ := file.ReadAt(header, 0)
	format := Detect(header[:n])
	if format == Unknown {
		format = ParseFormat(codec)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format, Codec: codec}, nil
}
