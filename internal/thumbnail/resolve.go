package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/filesystem"
	"thumbcache/internal/imageinfo"
	"thumbcache/internal/logging"
)

// resolve turns a request source into a probed descriptor. Sources are file
// paths (absolute, or relative to the web root), URLs on the site's own host
// or remote URLs.
func (g *Generator) resolve(ctx context.Context, src string) (ImageDescriptor, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return ImageDescriptor{}, fmt.Errorf("%w: empty image source", errdefs.ErrPathResolution)
	}

	if strings.HasPrefix(src, "//") {
		src = g.baseURL.Scheme + ":" + src
	}

	escaped := strings.ReplaceAll(src, " ", "%20")
	u, err := url.Parse(escaped)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Not a URL, or a Windows drive letter.
		return g.resolveLocalPath(src)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ImageDescriptor{}, fmt.Errorf("%w: unsupported URL scheme %q", errdefs.ErrPathResolution, u.Scheme)
	}

	if u.RawQuery == "" && g.baseURL.Host != "" && filesystem.SameHost(u.Host, g.baseURL.Host) {
		p, err := g.fs.URLToPath(escaped)
		if err != nil {
			return ImageDescriptor{}, err
		}
		return g.describeLocal(p)
	}

	remote := strings.ReplaceAll(src, " ", "+")
	if g.cfg.CopyRemote {
		return g.copyRemote(ctx, remote)
	}
	return g.describeRemote(ctx, remote)
}

func (g *Generator) resolveLocalPath(src string) (ImageDescriptor, error) {
	p := filepath.FromSlash(src)
	if filepath.IsAbs(p) && g.fs.IsFile(p) {
		return g.describeLocal(p)
	}
	return g.describeLocal(filepath.Join(g.cfg.WebRoot, p))
}

// describeLocal probes a file that must live under the web root.
func (g *Generator) describeLocal(p string) (ImageDescriptor, error) {
	u, err := g.fs.PathToURL(p)
	if err != nil {
		return ImageDescriptor{}, err
	}
	if !g.fs.IsFile(p) {
		return ImageDescriptor{}, fmt.Errorf("%w: original %s not found", errdefs.ErrFileSystem, p)
	}

	info, err := g.readHeader(p, func(limit int64) ([]byte, error) {
		return g.fs.Read(p, limit)
	})
	if err != nil {
		return ImageDescriptor{}, err
	}

	d := ImageDescriptor{
		Locator: p,
		IsLocal: true,
		URL:     u,
		Width:   info.Width,
		Height:  info.Height,
		Format:  info.Format,
	}
	if size, err := g.fs.FileSize(p); err == nil {
		d.ByteSize = size
	}
	// A zero ModTime makes every cached thumbnail count as stale.
	if mtime, err := g.fs.ModTime(p); err == nil {
		d.ModTime = mtime
	}
	return d, nil
}

// describeRemote probes a remote original. Its Last-Modified header is the
// origin time for cache validation.
func (g *Generator) describeRemote(ctx context.Context, rawURL string) (ImageDescriptor, error) {
	d := ImageDescriptor{Locator: rawURL, URL: rawURL}

	info, err := g.readHeader(rawURL, func(limit int64) ([]byte, error) {
		res, err := probeRemote(ctx, g.prober, rawURL, limit)
		if err != nil {
			return nil, err
		}
		d.ByteSize = res.ByteSize
		d.ModTime = res.LastModified
		return res.Body, nil
	})
	if err != nil {
		return ImageDescriptor{}, err
	}

	d.Width, d.Height, d.Format = info.Width, info.Height, info.Format
	return d, nil
}

// copyRemote downloads a remote original into the remote directory unless a
// copy is already there, and describes the copy.
func (g *Generator) copyRemote(ctx context.Context, rawURL string) (ImageDescriptor, error) {
	local, err := g.deriver.CopyPath(g.cfg.RemoteDir, rawURL)
	if err != nil {
		return ImageDescriptor{}, err
	}

	if !g.fs.IsFile(local) {
		data, err := fetchRemote(ctx, g.prober, rawURL, g.cfg.MaxRemoteBytes)
		if err != nil {
			return ImageDescriptor{}, err
		}
		if err := g.fs.Write(local, data, g.cfg.FileMode); err != nil {
			return ImageDescriptor{}, err
		}
		logging.Info("Copied remote image %s to %s (%d bytes)", rawURL, local, len(data))
	}
	return g.describeLocal(local)
}

// readHeader decodes the dimensions of name from a bounded read. When the
// read filled its bound and the header was still incomplete, it retries once
// with a bound probeGrowth times larger.
func (g *Generator) readHeader(name string, read func(limit int64) ([]byte, error)) (imageinfo.Info, error) {
	limit := g.cfg.ProbeBytes
	for attempt := 0; ; attempt++ {
		data, err := read(limit)
		if err != nil {
			return imageinfo.Info{}, err
		}

		info, err := imageinfo.Decode(data)
		if err == nil {
			return info, nil
		}
		if errors.Is(err, errdefs.ErrUnsupportedImageType) {
			return imageinfo.Info{}, fmt.Errorf("%s: %w", name, err)
		}

		grown := g.grow(limit)
		if attempt > 0 || int64(len(data)) < limit || grown <= limit {
			return imageinfo.Info{}, fmt.Errorf("%w: cannot read image header of %s: %v",
				errdefs.ErrUnsupportedImageType, name, err)
		}
		logging.Debug("Image header of %s exceeds %d bytes, retrying with %d", name, limit, grown)
		limit = grown
	}
}

func (g *Generator) grow(limit int64) int64 {
	grown := limit * probeGrowth
	if g.cfg.MaxRemoteBytes > 0 && grown > g.cfg.MaxRemoteBytes {
		grown = g.cfg.MaxRemoteBytes
	}
	return grown
}
