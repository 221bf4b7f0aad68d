// Package errdefs declares the error kinds shared by the thumbnail pipeline.
//
// Every failure surfaced by the pipeline wraps exactly one of the sentinels
// below, so callers classify errors with errors.Is rather than by message.
package errdefs

import "errors"

var (
	// ErrConfiguration is an unknown strategy or engine name, or a missing
	// required parameter. Fatal at construction.
	ErrConfiguration = errors.New("configuration error")

	// ErrEngineUnavailable means the selected raster library is not usable.
	ErrEngineUnavailable = errors.New("raster engine unavailable")

	// ErrFileSystem is a directory or file create/write failure.
	ErrFileSystem = errors.New("filesystem error")

	// ErrUnsupportedImageType is returned for formats the pipeline cannot
	// decode or encode.
	ErrUnsupportedImageType = errors.New("unsupported image type")

	// ErrPathResolution is returned when a ".." segment would escape the
	// thumbnail root.
	ErrPathResolution = errors.New("path resolution error")

	// ErrInsufficientMemory aborts a batch before the raster engine runs.
	ErrInsufficientMemory = errors.New("insufficient memory")

	// ErrRemoteProbe covers network failures, unexpected status codes and
	// unparsable sizes while probing a remote original.
	ErrRemoteProbe = errors.New("remote probe error")
)

var kinds = []struct {
	err   error
	label string
}{
	{ErrConfiguration, "configuration"},
	{ErrEngineUnavailable, "engine_unavailable"},
	{ErrFileSystem, "filesystem"},
	{ErrUnsupportedImageType, "unsupported_type"},
	{ErrPathResolution, "path_resolution"},
	{ErrInsufficientMemory, "insufficient_memory"},
	{ErrRemoteProbe, "remote_probe"},
}

// Kind returns a short label for the error kind wrapped by err, "none" for a
// nil error and "unknown" when no sentinel matches. Used as a metric label.
func Kind(err error) string {
	if err == nil {
		return "none"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "unknown"
}

// Labels lists every label Kind can return for a non-nil error.
func Labels() []string {
	labels := make([]string, 0, len(kinds)+1)
	for _, k := range kinds {
		labels = append(labels, k.label)
	}
	return append(labels, "unknown")
}
