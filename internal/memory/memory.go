package memory

import (
	"fmt"
	"math"
	"runtime"
	"runtime/debug"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/logging"
	"thumbcache/internal/metrics"
)

const (
	// BytesPerPixel is the decoded size of one RGBA pixel.
	BytesPerPixel = 4

	// SafetyMargin scales estimates to cover decoder and encoder overhead.
	SafetyMargin = 1.25

	// unlimited mirrors the runtime's "no limit" sentinel for GOMEMLIMIT.
	unlimited = 1 << 62
)

// Estimate returns the peak memory needed to decode original and hold every
// target raster at once.
func Estimate(original geometry.Size, targets []geometry.Size) int64 {
	pixels := float64(original.Width) * float64(original.Height)
	for _, t := range targets {
		pixels += float64(t.Width) * float64(t.Height)
	}
	bytes := pixels * BytesPerPixel * SafetyMargin
	if bytes >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Ceil(bytes))
}

// Budget admits raster work against the process memory limit.
type Budget struct {
	limit int64
	usage func() uint64
}

// NewBudget returns a Budget bounded by limitBytes. A zero limit falls back to
// GOMEMLIMIT; when neither is set every request is admitted.
func NewBudget(limitBytes int64) *Budget {
	limit := limitBytes
	if limit <= 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < unlimited {
			limit = goMemLimit
		} else {
			limit = 0
		}
	}

	if limit > 0 {
		logging.Debug("Memory budget limit: %s", FormatBytes(limit))
	} else {
		logging.Debug("Memory budget: no limit configured, admission checks disabled")
	}

	return &Budget{limit: limit, usage: heapAlloc}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Limit returns the configured limit in bytes, 0 if unlimited.
func (b *Budget) Limit() int64 {
	return b.limit
}

// Remaining returns the bytes left under the limit. ok is false when the
// budget is unlimited.
func (b *Budget) Remaining() (remaining int64, ok bool) {
	if b.limit <= 0 {
		return 0, false
	}

	used := b.usage()
	metrics.MemoryUsageRatio.Set(float64(used) / float64(b.limit))
	if used >= uint64(b.limit) {
		return 0, true
	}
	return b.limit - int64(used), true
}

// Admit fails with ErrInsufficientMemory when estimate exceeds the remaining
// budget.
func (b *Budget) Admit(estimate int64) error {
	remaining, limited := b.Remaining()
	if !limited {
		return nil
	}
	if estimate > remaining {
		metrics.MemoryAdmissionRejections.Inc()
		return fmt.Errorf("%w: need %s, %s available of %s",
			errdefs.ErrInsufficientMemory, FormatBytes(estimate), FormatBytes(remaining), FormatBytes(b.limit))
	}
	return nil
}
