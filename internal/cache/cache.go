// Package cache decides whether a derived file is still fresh with respect to
// its origin.
package cache

import (
	"time"

	"thumbcache/internal/logging"
)

// ModTimer reports file modification times.
type ModTimer interface {
	ModTime(path string) (time.Time, error)
}

// Status is the outcome of a validity check.
type Status int

const (
	// Valid means the cached file is at least as new as its origin.
	Valid Status = iota
	// Missing means no cached file could be read.
	Missing
	// Stale means the origin changed after the file was written.
	Stale
	// UnknownOrigin means the origin time is unknown, so staleness cannot
	// be ruled out.
	UnknownOrigin
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Missing:
		return "missing"
	case Stale:
		return "stale"
	case UnknownOrigin:
		return "unknown_origin"
	default:
		return "invalid"
	}
}

// Validator classifies cached files as hits or misses. It holds no state
// besides the file system.
type Validator struct {
	fs ModTimer
}

// NewValidator returns a Validator reading modification times from fs.
func NewValidator(fs ModTimer) *Validator {
	return &Validator{fs: fs}
}

// Check classifies the file at path against originModTime. Errors reading the
// cached file count as Missing and are never returned.
func (v *Validator) Check(path string, originModTime time.Time) Status {
	cached, err := v.fs.ModTime(path)
	if err != nil {
		return Missing
	}
	if originModTime.IsZero() {
		return UnknownOrigin
	}
	if cached.Before(originModTime) {
		logging.Debug("Cached %s (%s) is older than its origin (%s)", path,
			cached.Format(time.RFC3339), originModTime.Format(time.RFC3339))
		return Stale
	}
	return Valid
}

// IsValid reports whether the file at path exists and is not older than
// originModTime.
func (v *Validator) IsValid(path string, originModTime time.Time) bool {
	return v.Check(path, originModTime) == Valid
}
