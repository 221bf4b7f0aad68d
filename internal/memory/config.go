package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"thumbcache/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of MEMORY_LIMIT given to GOMEMLIMIT.
	// The remainder covers libvips allocations, which live outside the Go
	// heap, and goroutine stacks.
	DefaultMemoryRatio = 0.85

	sourceGOMEMLIMIT  = "GOMEMLIMIT"
	sourceMEMORYLIMIT = "MEMORY_LIMIT"
	sourceNone        = "none"
)

// ConfigResult describes the heap limit ConfigureFromEnv settled on.
type ConfigResult struct {
	// Configured is true when the process now runs with a heap limit, and
	// thus with thumbnail admission control.
	Configured bool

	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source string

	// ContainerLimit is MEMORY_LIMIT in bytes, 0 when it was not used.
	ContainerLimit int64

	// GoMemLimit is the resulting heap limit in bytes.
	GoMemLimit int64

	// Ratio is the share of ContainerLimit applied, 0 when not used.
	Ratio float64
}

// ConfigureFromEnv picks the process heap limit. A Budget created with no
// explicit limit admits thumbnail generation against it, so call this before
// the generator is built.
//
//   - GOMEMLIMIT, when set, is read back from the runtime and left alone.
//   - Otherwise MEMORY_LIMIT (bytes available to the process, for example
//     from a container limit) times MEMORY_RATIO becomes the limit.
//   - With neither set there is no limit and every request is admitted.
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := ConfigResult{Source: sourceGOMEMLIMIT}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("Heap limit from GOMEMLIMIT=%s", env)
		return result
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("Neither GOMEMLIMIT nor MEMORY_LIMIT set, thumbnail admission is unbounded")
		return ConfigResult{Source: sourceNone}
	}
	available, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || available <= 0 {
		logging.Warn("Ignoring MEMORY_LIMIT %q: not a positive byte count", raw)
		return ConfigResult{Source: sourceNone}
	}

	ratio := ratioFromEnv()
	limit := int64(float64(available) * ratio)
	debug.SetMemoryLimit(limit)

	logging.Info("Heap limit %s (%.0f%% of MEMORY_LIMIT %s)",
		FormatBytes(limit), ratio*100, FormatBytes(available))
	return ConfigResult{
		Configured:     true,
		Source:         sourceMEMORYLIMIT,
		ContainerLimit: available,
		GoMemLimit:     limit,
		Ratio:          ratio,
	}
}

// ratioFromEnv reads MEMORY_RATIO, a fraction in (0, 1].
func ratioFromEnv() float64 {
	raw := os.Getenv("MEMORY_RATIO")
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("Ignoring MEMORY_RATIO %q: want a fraction in (0, 1], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// FormatBytes renders b with a binary unit, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
