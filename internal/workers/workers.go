package workers

import (
	"os"
	"runtime"
	"strconv"

	"thumbcache/internal/logging"
)

// EnvWorkers overrides the computed worker count.
const EnvWorkers = "THUMBNAIL_WORKERS"

// Multipliers per task profile. Local thumbnail generation is CPU-bound;
// batches with remote originals also wait on the network.
const (
	CPUBound = 1.0
	Mixed    = 1.5
)

// Resolve returns the worker count for a batch. A positive requested count
// (from a command-line flag) wins, then THUMBNAIL_WORKERS, then GOMAXPROCS
// scaled by multiplier. The result is at least 1 and at most limit when
// limit is positive.
func Resolve(requested int, multiplier float64, limit int) int {
	n := requested
	if n <= 0 {
		n = fromEnv()
	}
	if n <= 0 {
		// GOMAXPROCS follows the container CPU limit.
		n = int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	}

	n = max(n, 1)
	if limit > 0 {
		n = min(n, limit)
	}
	return n
}

func fromEnv() int {
	v := os.Getenv(EnvWorkers)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logging.Warn("Ignoring invalid %s=%q", EnvWorkers, v)
		return 0
	}
	return n
}
