package filesystem

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"thumbcache/internal/errdefs"
)

// FileSystem is the set of file primitives the thumbnail pipeline needs.
type FileSystem interface {
	Exists(path string) bool
	IsDirectory(path string) bool
	IsFile(path string) bool
	MakeDirectory(path string, mode os.FileMode) error
	// Write replaces path atomically; readers never see a partial file.
	Write(path string, data []byte, mode os.FileMode) error
	// Read returns at most maxBytes leading bytes (all of them when <= 0).
	Read(path string, maxBytes int64) ([]byte, error)
	FileSize(path string) (int64, error)
	ModTime(path string) (time.Time, error)
	// RealPath resolves symlinks; ok is false when path does not exist.
	RealPath(path string) (resolved string, ok bool)
	PathToURL(path string) (string, error)
	URLToPath(rawURL string) (string, error)
}

// Local is a FileSystem on the host disk, serving webRoot at baseURL.
type Local struct {
	webRoot string
	baseURL *url.URL
	dirMode os.FileMode
	retry   RetryConfig
}

// LocalOption customizes a Local file system.
type LocalOption func(*Local)

// WithDirMode sets the mode of directories created implicitly by Write.
func WithDirMode(mode os.FileMode) LocalOption {
	return func(l *Local) { l.dirMode = mode }
}

// WithRetryConfig overrides the NFS retry configuration.
func WithRetryConfig(cfg RetryConfig) LocalOption {
	return func(l *Local) { l.retry = cfg }
}

// NewLocal returns a Local rooted at webRoot. baseURL is the public URL of
// webRoot; only its scheme, host and path are used.
func NewLocal(webRoot, baseURL string, opts ...LocalOption) (*Local, error) {
	if webRoot == "" {
		return nil, fmt.Errorf("%w: web root is required", errdefs.ErrConfiguration)
	}
	abs, err := filepath.Abs(webRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: web root %q: %v", errdefs.ErrConfiguration, webRoot, err)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base URL %q: %v", errdefs.ErrConfiguration, baseURL, err)
	}

	l := &Local{
		webRoot: abs,
		baseURL: u,
		dirMode: 0o755,
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Exists reports whether p can be stat-ed, retrying stale NFS handles.
func (l *Local) Exists(p string) bool {
	_, err := StatWithRetry(p, l.retry)
	return err == nil
}

// IsDirectory reports whether p is an existing directory.
func (l *Local) IsDirectory(p string) bool {
	info, err := StatWithRetry(p, l.retry)
	return err == nil && info.IsDir()
}

// IsFile reports whether p is an existing regular file.
func (l *Local) IsFile(p string) bool {
	info, err := StatWithRetry(p, l.retry)
	return err == nil && info.Mode().IsRegular()
}

// MakeDirectory creates p and any missing parents with mode.
func (l *Local) MakeDirectory(p string, mode os.FileMode) error {
	start := time.Now()
	err := os.MkdirAll(p, mode)
	l.observe("mkdir", p, start, err)
	if err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", errdefs.ErrFileSystem, p, err)
	}
	return nil
}

// Write stores data in a temporary file next to p and renames it into place.
// Concurrent writers of the same path each rename a complete file, so the
// last one wins.
func (l *Local) Write(p string, data []byte, mode os.FileMode) (err error) {
	start := time.Now()
	defer func() { l.observe("write", p, start, err) }()

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, l.dirMode); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", errdefs.ErrFileSystem, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".thumb-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file in %s: %v", errdefs.ErrFileSystem, dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %v", errdefs.ErrFileSystem, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", errdefs.ErrFileSystem, tmpName, err)
	}
	if mode != 0 {
		if err := os.Chmod(tmpName, mode); err != nil {
			return fmt.Errorf("%w: failed to chmod %s: %v", errdefs.ErrFileSystem, tmpName, err)
		}
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("%w: failed to move %s into place: %v", errdefs.ErrFileSystem, p, err)
	}
	return nil
}

// Read returns the first maxBytes bytes of p, or the whole file when
// maxBytes <= 0.
func (l *Local) Read(p string, maxBytes int64) (data []byte, err error) {
	start := time.Now()
	defer func() { l.observe("read", p, start, err) }()

	f, err := OpenWithRetry(p, l.retry)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", errdefs.ErrFileSystem, p, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes)
	}
	data, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", errdefs.ErrFileSystem, p, err)
	}
	return data, nil
}

// FileSize returns the size of p in bytes.
func (l *Local) FileSize(p string) (int64, error) {
	info, err := StatWithRetry(p, l.retry)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errdefs.ErrFileSystem, err)
	}
	return info.Size(), nil
}

// ModTime returns the modification time of p.
func (l *Local) ModTime(p string) (time.Time, error) {
	info, err := StatWithRetry(p, l.retry)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errdefs.ErrFileSystem, err)
	}
	return info.ModTime(), nil
}

// RealPath returns the absolute path of p with symlinks resolved. ok is
// false when p does not exist.
func (l *Local) RealPath(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}

// PathToURL maps a file under the web root to its public URL.
func (l *Local) PathToURL(p string) (string, error) {
	rel, err := l.relative(p)
	if err != nil {
		return "", err
	}

	u := *l.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + rel
	u.RawPath = ""
	return u.String(), nil
}

// URLToPath maps a URL (absolute on the base host, or host-relative) to a
// file under the web root.
func (l *Local) URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: cannot parse URL %q: %v", errdefs.ErrPathResolution, rawURL, err)
	}
	if u.Host != "" && !SameHost(u.Host, l.baseURL.Host) {
		return "", fmt.Errorf("%w: %s is not served from %s", errdefs.ErrPathResolution, rawURL, l.baseURL.Host)
	}

	p := path.Clean("/" + u.Path)
	prefix := strings.TrimRight(l.baseURL.Path, "/")
	if prefix != "" {
		if p != prefix && !strings.HasPrefix(p, prefix+"/") {
			return "", fmt.Errorf("%w: %s is outside %s", errdefs.ErrPathResolution, rawURL, l.baseURL)
		}
		p = strings.TrimPrefix(p, prefix)
	}
	return filepath.Join(l.webRoot, filepath.FromSlash(p)), nil
}

func (l *Local) relative(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errdefs.ErrPathResolution, err)
	}
	rel, err := filepath.Rel(l.webRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the web root", errdefs.ErrPathResolution, p)
	}
	return filepath.ToSlash(rel), nil
}

func (l *Local) observe(op, p string, start time.Time, err error) {
	l.retry.observer().ObserveOperation(l.retry.VolumeResolver.Resolve(p), op, time.Since(start).Seconds(), err)
}

// SameHost compares two host names ignoring case, a leading "www." and
// default ports.
func SameHost(a, b string) bool {
	return normalizeHost(a) == normalizeHost(b)
}

func normalizeHost(h string) string {
	h = strings.ToLower(h)
	h = strings.TrimSuffix(strings.TrimSuffix(h, ":80"), ":443")
	return strings.TrimPrefix(h, "www.")
}
