package metrics

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"thumbcache/internal/filesystem"
)

var _ filesystem.Observer = (*filesystemObserver)(nil)

// seriesCount returns how many series a collector currently exports.
func seriesCount(c prometheus.Collector) int {
	ch := make(chan prometheus.Metric, 4096)
	c.Collect(ch)
	close(ch)
	return len(ch)
}

// value reads the current value of a counter or gauge.
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestInitializeMetricsExportsLabels(t *testing.T) {
	InitializeMetrics("imaging")

	tests := []struct {
		name string
		n    int
		min  int
	}{
		{"FilesystemOperationDuration", seriesCount(FilesystemOperationDuration), len(Volumes) * 5},
		{"ThumbnailVariantsTotal", seriesCount(ThumbnailVariantsTotal), 3},
		{"ThumbnailCacheChecks", seriesCount(ThumbnailCacheChecks), 4},
		{"ThumbnailErrorsTotal", seriesCount(ThumbnailErrorsTotal), 8},
		{"RasterOperationDuration", seriesCount(RasterOperationDuration), 5},
		{"RemoteRequestsTotal", seriesCount(RemoteRequestsTotal), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.n < tt.min {
				t.Errorf("%s exports %d series, want at least %d", tt.name, tt.n, tt.min)
			}
		})
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	before := value(t, FilesystemOperationErrors.WithLabelValues("thumbs", "write"))
	obs.ObserveOperation("thumbs", "write", 0.01, nil)
	obs.ObserveOperation("thumbs", "write", 0.02, errors.New("disk full"))
	after := value(t, FilesystemOperationErrors.WithLabelValues("thumbs", "write"))
	if after-before != 1 {
		t.Errorf("errors increased by %v, want 1", after-before)
	}

	stale := value(t, FilesystemStaleErrors.WithLabelValues("stat", "web"))
	obs.ObserveStaleError("stat", "web")
	obs.ObserveRetryAttempt("stat", "web")
	obs.ObserveRetrySuccess("stat", "web")
	obs.ObserveRetryFailure("stat", "web")
	if got := value(t, FilesystemStaleErrors.WithLabelValues("stat", "web")); got-stale != 1 {
		t.Errorf("stale errors increased by %v, want 1", got-stale)
	}
}

type fakeStats struct {
	stats Stats
	err   error
}

func (f fakeStats) GetStats() (Stats, error) { return f.stats, f.err }

func TestCollectorCollect(t *testing.T) {
	c := NewCollector(fakeStats{stats: Stats{Files: 12, Bytes: 3456}}, 0)
	c.collect()

	if got := value(t, ThumbnailCacheFiles); got != 12 {
		t.Errorf("ThumbnailCacheFiles = %v, want 12", got)
	}
	if got := value(t, ThumbnailCacheSizeBytes); got != 3456 {
		t.Errorf("ThumbnailCacheSizeBytes = %v, want 3456", got)
	}

	NewCollector(fakeStats{err: errors.New("walk failed")}, 0).collect()
	if got := value(t, ThumbnailCacheFiles); got != 12 {
		t.Errorf("failed collection should keep previous value, got %v", got)
	}

	NewCollector(nil, 0).collect()
}

type countingStats struct {
	calls atomic.Int32
}

func (c *countingStats) GetStats() (Stats, error) {
	c.calls.Add(1)
	return Stats{Files: 1}, nil
}

func TestCollectorStartStop(t *testing.T) {
	provider := &countingStats{}
	c := NewCollector(provider, time.Hour)
	c.Start()
	c.Start()
	c.Stop()
	c.Stop()

	if got := provider.calls.Load(); got != 1 {
		t.Errorf("GetStats called %d times, want 1", got)
	}

	NewCollector(provider, time.Hour).Stop()
}
