package filesystem

// Observer records filesystem operation metrics. Implementations are provided
// by the metrics package to break the import cycle between filesystem and metrics.
type Observer interface {
	// ObserveOperation records duration and error status for a filesystem operation.
	// volume is the resolved root label (e.g., "web", "thumbs", "remote").
	// operation is the fs operation type: "stat", "read", "write", "mkdir".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// ObserveRetry records retry-specific metrics for NFS resilience.
	// retryOp is the retry operation: "stat", "open".
	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveStaleError(retryOp, volume string)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, float64, error) {}
func (nopObserver) ObserveRetryAttempt(string, string)              {}
func (nopObserver) ObserveRetrySuccess(string, string)              {}
func (nopObserver) ObserveRetryFailure(string, string)              {}
func (nopObserver) ObserveStaleError(string, string)                {}

var defaultObserver Observer = nopObserver{}

// SetObserver installs the package-level observer. Passing nil disables
// observation. Call this once at startup.
func SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	defaultObserver = o
}
