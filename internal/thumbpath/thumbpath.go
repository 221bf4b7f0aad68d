// Package thumbpath derives deterministic cache paths for thumbnails and
// remote-copy originals.
package thumbpath

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
)

// Layout selects how derived files are arranged under a root directory.
type Layout int

const (
	// Nested mirrors the source directory structure under the root.
	Nested Layout = iota
	// Flat places every file directly under the root, encoding the source
	// directories into the file name.
	Flat
)

// DefaultDelimiter joins directory segments in the Flat layout.
const DefaultDelimiter = '-'

// RemoteSegment is the first directory of every thumbnail of a remote
// original. Local keys whose first segment starts with '@' or '_' get an
// extra '_' so they never reach into it or into a density directory.
const RemoteSegment = "_remote"

// Source identifies an original image.
type Source struct {
	Locator string // absolute or web-root-relative path, or URL
	IsLocal bool
}

// Deriver maps sources to cache paths. The zero value is not usable; build
// one with New. A Deriver holds no mutable state.
type Deriver struct {
	webRoot   string
	layout    Layout
	delimiter string
	guard     string
}

// New returns a Deriver rooted at webRoot. A zero delimiter selects
// DefaultDelimiter.
func New(webRoot string, layout Layout, delimiter rune) *Deriver {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	guard := "~"
	if delimiter == '~' {
		guard = "+"
	}
	webRoot = strings.TrimRight(filepath.ToSlash(webRoot), "/")
	return &Deriver{
		webRoot:   webRoot,
		layout:    layout,
		delimiter: string(delimiter),
		guard:     guard,
	}
}

// Suffix is the file name suffix identifying a requested box and strategy.
func Suffix(strategy geometry.Strategy, box geometry.Size) string {
	return fmt.Sprintf("-%s-%dx%d", strategy, box.Width, box.Height)
}

// Derive returns the path of the derived file for src under root (relative to
// the web root unless absolute). Densities other than 1 get their own
// "@<density>" directory.
func (d *Deriver) Derive(root string, src Source, suffix string, density float64) (string, error) {
	key, err := d.sourceKey(src)
	if err != nil {
		return "", err
	}

	segments, err := normalize(key)
	if err != nil {
		return "", err
	}
	if src.IsLocal {
		if first := segments[0]; strings.HasPrefix(first, "@") || strings.HasPrefix(first, "_") {
			segments[0] = "_" + first
		}
	} else {
		segments = append([]string{RemoteSegment}, segments...)
	}

	base := d.base(root)
	if density != 1 {
		base = path.Join(base, "@"+FormatDensity(density))
	}
	return d.join(base, segments, suffix), nil
}

// CopyPath returns where a copy of the remote original rawURL is stored
// under root. Copies live in their own directory, so the key is the URL's
// host and path without the thumbnail namespace.
func (d *Deriver) CopyPath(root, rawURL string) (string, error) {
	key, err := d.sourceKey(Source{Locator: rawURL})
	if err != nil {
		return "", err
	}
	segments, err := normalize(key)
	if err != nil {
		return "", err
	}
	return d.join(d.base(root), segments, ""), nil
}

func (d *Deriver) base(root string) string {
	base := filepath.ToSlash(root)
	if !path.IsAbs(base) {
		base = path.Join(d.webRoot, base)
	}
	return base
}

// join lays segments out under base, appending suffix to the file stem.
func (d *Deriver) join(base string, segments []string, suffix string) string {
	last := segments[len(segments)-1]
	ext := path.Ext(last)
	stem := strings.TrimSuffix(last, ext)

	if d.layout == Flat {
		escaped := make([]string, 0, len(segments))
		for _, s := range segments[:len(segments)-1] {
			escaped = append(escaped, d.escape(s))
		}
		escaped = append(escaped, d.escape(stem))
		return path.Join(base, strings.Join(escaped, d.delimiter)+suffix+ext)
	}

	dirs := append([]string{base}, segments[:len(segments)-1]...)
	return path.Join(path.Join(dirs...), stem+suffix+ext)
}

// FormatDensity renders a density ratio the way it appears in paths.
func FormatDensity(density float64) string {
	return strconv.FormatFloat(density, 'f', -1, 64)
}

// escape makes a segment safe to join with a single delimiter. Delimiters and
// guards are doubled, and a guard is put next to a delimiter at either end of
// the segment. A lone delimiter in the joined name is then always a
// separator.
func (d *Deriver) escape(segment string) string {
	s := strings.ReplaceAll(segment, d.guard, d.guard+d.guard)
	s = strings.ReplaceAll(s, d.delimiter, d.delimiter+d.delimiter)
	if strings.HasPrefix(s, d.delimiter) {
		s = d.guard + s
	}
	if strings.HasSuffix(s, d.delimiter) {
		s += d.guard
	}
	return s
}

// sourceKey turns a locator into a slash-separated relative key.
func (d *Deriver) sourceKey(src Source) (string, error) {
	if src.IsLocal {
		p := strings.ReplaceAll(filepath.ToSlash(src.Locator), `\`, "/")
		if d.webRoot != "" && strings.HasPrefix(p, d.webRoot+"/") {
			p = p[len(d.webRoot)+1:]
		}
		return strings.TrimLeft(p, "/"), nil
	}

	u, err := url.Parse(src.Locator)
	if err != nil {
		return "", fmt.Errorf("%w: cannot parse URL %q: %v", errdefs.ErrPathResolution, src.Locator, err)
	}
	p := u.Path
	if u.RawQuery != "" {
		sum := sha1.Sum([]byte(u.RawQuery))
		ext := path.Ext(p)
		p = strings.TrimSuffix(p, ext) + "_" + hex.EncodeToString(sum[:]) + ext
	}
	return u.Host + "/" + strings.TrimLeft(p, "/"), nil
}

// normalize resolves "." and ".." by walking a path stack. A ".." that would
// pop past the root is an error, as is a key with no file name.
func normalize(key string) ([]string, error) {
	stack := make([]string, 0, strings.Count(key, "/")+1)
	for _, s := range strings.Split(key, "/") {
		switch s {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: %q escapes the thumbnail root", errdefs.ErrPathResolution, key)
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, s)
		}
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("%w: %q has no file name", errdefs.ErrPathResolution, key)
	}
	return stack, nil
}
