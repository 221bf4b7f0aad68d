package thumbnail

import (
	"context"
	"os"
	"strings"
	"time"

	"thumbcache/internal/filesystem"
	"thumbcache/internal/metrics"
	"thumbcache/internal/probe"
)

func isRemote(locator string) bool {
	l := strings.ToLower(locator)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func probeRemote(ctx context.Context, p probe.Prober, url string, maxBytes int64) (*probe.Result, error) {
	start := time.Now()
	res, err := p.Probe(ctx, url, maxBytes)
	observeRemote("probe", start, err)
	return res, err
}

func fetchRemote(ctx context.Context, p probe.Prober, url string, limit int64) ([]byte, error) {
	start := time.Now()
	data, err := p.Fetch(ctx, url, limit)
	observeRemote("fetch", start, err)
	if err == nil {
		metrics.RemoteFetchedBytes.Add(float64(len(data)))
	}
	return data, err
}

func observeRemote(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RemoteRequestsTotal.WithLabelValues(operation, status).Inc()
	metrics.RemoteRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SourceStore is the raster.Store behind the generator. Remote originals that
// were not copied are downloaded on read; everything else goes to the file
// system.
type SourceStore struct {
	fs     filesystem.FileSystem
	prober probe.Prober
	limit  int64
}

// NewSourceStore returns a store reading remote originals through prober,
// refusing bodies over limit bytes when limit is positive.
func NewSourceStore(fs filesystem.FileSystem, prober probe.Prober, limit int64) *SourceStore {
	return &SourceStore{fs: fs, prober: prober, limit: limit}
}

func (s *SourceStore) Read(locator string, maxBytes int64) ([]byte, error) {
	if !isRemote(locator) {
		return s.fs.Read(locator, maxBytes)
	}

	limit := s.limit
	if maxBytes > 0 && (limit <= 0 || maxBytes < limit) {
		return probeBody(s.prober, locator, maxBytes)
	}
	return fetchRemote(context.Background(), s.prober, locator, limit)
}

func (s *SourceStore) Write(path string, data []byte, mode os.FileMode) error {
	return s.fs.Write(path, data, mode)
}

func probeBody(p probe.Prober, url string, maxBytes int64) ([]byte, error) {
	res, err := probeRemote(context.Background(), p, url, maxBytes)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}
