// Package memory configures the Go runtime memory limit and gates thumbnail
// generation on an estimate of the pixel memory it needs.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before any significant allocations:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of application
//	}
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes precedence
//     over all other configuration. Accepts values like "400MiB" or "1GiB".
//
//   - MEMORY_LIMIT: Container memory limit in bytes, typically injected via
//     the Kubernetes Downward API. Values that are not positive integers are
//     ignored.
//
//   - MEMORY_RATIO: Fraction of MEMORY_LIMIT given to the Go heap, between
//     0.0 and 1.0. Default is 0.85. Lower it when libvips does most of the
//     work, since its allocations live outside the Go heap.
//
// Kubernetes example:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.80"
//
// # Admission
//
// Decoding an image costs roughly four bytes per pixel, and every resized
// target needs its own buffer. [Estimate] sums the original and all target
// pixel counts and applies [SafetyMargin]:
//
//	estimate := memory.Estimate(original, targets)
//	if err := budget.Admit(estimate); err != nil {
//	    return err // errdefs.ErrInsufficientMemory
//	}
//
// A [Budget] compares the estimate with the configured limit minus the bytes
// currently allocated on the heap. Without a limit every estimate is
// admitted. Rejections are counted in thumbcache_memory_admission_rejections_total.
//
// GOMEMLIMIT is a soft limit and only covers the Go heap, so admission is a
// best-effort guard rather than a guarantee.
package memory
