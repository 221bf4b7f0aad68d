// Package probe reads metadata of remote images with bounded HTTP range
// requests, and downloads them for copy-on-fetch.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/logging"
)

// DefaultMaxBytes is the default bound for a metadata probe.
const DefaultMaxBytes = 32 * 1024

// Result holds what a probe learned about a remote resource.
type Result struct {
	StatusCode int
	Header     http.Header
	// Body holds at most the requested number of leading bytes.
	Body []byte
	// LastModified is zero when the header is absent or unparsable.
	LastModified time.Time
	// ByteSize is the full size of the resource, 0 when unknown.
	ByteSize int64
}

// Prober fetches remote image metadata.
type Prober interface {
	Probe(ctx context.Context, url string, maxBytes int64) (*Result, error)
	Fetch(ctx context.Context, url string, limit int64) ([]byte, error)
}

var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   16,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// HTTPProber implements Prober over net/http.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber returns a prober whose requests time out after timeout
// (30s when zero).
func NewHTTPProber(timeout time.Duration, userAgent string) *HTTPProber {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
	return NewHTTPProberWithClient(client, userAgent)
}

// NewHTTPProberWithClient wraps an existing client.
func NewHTTPProberWithClient(client *http.Client, userAgent string) *HTTPProber {
	return &HTTPProber{client: client, userAgent: userAgent}
}

// Probe requests the first maxBytes of url with a Range header. Both 206 and
// 200 responses are accepted; any other status is an ErrRemoteProbe.
func (p *HTTPProber) Probe(ctx context.Context, url string, maxBytes int64) (*Result, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	resp, err := p.do(ctx, url, fmt.Sprintf("bytes=0-%d", maxBytes-1))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errdefs.ErrRemoteProbe, url, err)
	}

	size, err := ByteSize(resp.StatusCode, resp.Header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	logging.Debug("Probed %s: status=%d bytes=%d size=%d", url, resp.StatusCode, len(body), size)

	return &Result{
		StatusCode:   resp.StatusCode,
		Header:       resp.Header,
		Body:         body,
		LastModified: LastModified(resp.Header),
		ByteSize:     size,
	}, nil
}

// Fetch downloads url completely. Bodies larger than limit (when positive)
// fail with ErrRemoteProbe.
func (p *HTTPProber) Fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	resp, err := p.do(ctx, url, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errdefs.ErrRemoteProbe, url, err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", errdefs.ErrRemoteProbe, url, limit)
	}
	return body, nil
}

func (p *HTTPProber) do(ctx context.Context, url, byteRange string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request for %s: %v", errdefs.ErrRemoteProbe, url, err)
	}
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrRemoteProbe, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned status %d", errdefs.ErrRemoteProbe, url, resp.StatusCode)
	}
	return resp, nil
}

// LastModified parses the Last-Modified header, returning the zero time when
// it is missing or malformed.
func LastModified(h http.Header) time.Time {
	v := h.Get("Last-Modified")
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		logging.Debug("Ignoring unparsable Last-Modified %q: %v", v, err)
		return time.Time{}
	}
	return t
}

// ByteSize extracts the full resource size. A 206 response takes the total
// from Content-Range ("bytes a-b/total"); a 200 response uses Content-Length.
// A missing header (or an unknown "*" total) yields 0; a malformed one is an
// ErrRemoteProbe.
func ByteSize(status int, h http.Header) (int64, error) {
	switch status {
	case http.StatusPartialContent:
		cr := h.Get("Content-Range")
		if cr == "" {
			return 0, nil
		}
		unit, spec, ok := strings.Cut(strings.TrimSpace(cr), " ")
		if !ok || unit != "bytes" {
			return 0, fmt.Errorf("%w: malformed Content-Range %q", errdefs.ErrRemoteProbe, cr)
		}
		_, total, ok := strings.Cut(spec, "/")
		if !ok {
			return 0, fmt.Errorf("%w: malformed Content-Range %q", errdefs.ErrRemoteProbe, cr)
		}
		if total == "*" {
			return 0, nil
		}
		n, err := strconv.ParseInt(total, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: malformed Content-Range %q", errdefs.ErrRemoteProbe, cr)
		}
		return n, nil
	default:
		cl := h.Get("Content-Length")
		if cl == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: malformed Content-Length %q", errdefs.ErrRemoteProbe, cl)
		}
		return n, nil
	}
}
