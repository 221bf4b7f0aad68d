package handlers

import (
	"context"
	"errors"
	"net/http"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/logging"
	"thumbcache/internal/middleware"
	"thumbcache/internal/thumbnail"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{errdefs.ErrPathResolution, http.StatusBadRequest},
	{errdefs.ErrUnsupportedImageType, http.StatusUnsupportedMediaType},
	{errdefs.ErrRemoteProbe, http.StatusBadGateway},
	{errdefs.ErrInsufficientMemory, http.StatusServiceUnavailable},
	{errdefs.ErrEngineUnavailable, http.StatusServiceUnavailable},
	{errdefs.ErrFileSystem, http.StatusInternalServerError},
	{errdefs.ErrConfiguration, http.StatusInternalServerError},
}

// statusForError maps a generator error to an HTTP status code.
func statusForError(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"requestId,omitempty"`
}

// writeGeneratorError logs err and writes it as JSON. Retryable capacity
// errors carry a Retry-After header.
func writeGeneratorError(w http.ResponseWriter, r *http.Request, src string, err error) {
	status := statusForError(err)
	requestID := middleware.RequestIDFromContext(r.Context())

	if thumbnail.IsClientError(err) {
		logging.Warn("Thumbnail request %s for %q rejected: %v", requestID, src, err)
	} else {
		logging.Error("Thumbnail request %s for %q failed: %v", requestID, src, err)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, ErrorResponse{
		Error:     err.Error(),
		Kind:      errdefs.Kind(err),
		RequestID: requestID,
	})
}
