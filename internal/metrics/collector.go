package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"thumbcache/internal/logging"
)

// StatsProvider reports the size of the thumbnail cache.
type StatsProvider interface {
	GetStats() (Stats, error)
}

// Stats counts the thumbnail files on disk.
type Stats struct {
	Files int64 `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Collector refreshes the cache gauges on an interval. Walking the
// thumbnail tree is too slow to do on every scrape.
type Collector struct {
	provider StatsProvider
	interval time.Duration

	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewCollector returns a collector for provider. It does nothing until
// Start is called.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start collects once and then every interval until Stop. Later calls do
// nothing.
func (c *Collector) Start() {
	if c.started.CompareAndSwap(false, true) {
		go c.run()
	}
}

// Stop ends the loop and waits for a running collection to finish. It may
// be called more than once, and also when Start never was.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) run() {
	defer close(c.done)
	c.collect()
	if c.interval <= 0 {
		<-c.stop
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		}
	}
}

// collect updates the gauges. A failed walk keeps the previous values.
func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	start := time.Now()
	stats, err := c.provider.GetStats()
	if err != nil {
		logging.Warn("Failed to collect thumbnail cache stats: %v", err)
		return
	}

	ThumbnailCacheFiles.Set(float64(stats.Files))
	ThumbnailCacheSizeBytes.Set(float64(stats.Bytes))
	logging.Debug("Thumbnail cache: %d files, %d bytes (walked in %v)", stats.Files, stats.Bytes, time.Since(start))
}
