package handlers

import (
	"net/http"
	"runtime"
	"time"

	"thumbcache/internal/logging"
	"thumbcache/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Engine  string `json:"engine"`

	// Thumbnail directory
	ThumbnailFiles int64  `json:"thumbnailFiles"`
	ThumbnailBytes int64  `json:"thumbnailBytes"`
	StatsError     string `json:"statsError,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. The service is
// degraded when the thumbnail directory cannot be read.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Engine:       h.engine,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	stats, err := h.thumbs.GetStats()
	if err != nil {
		logging.Warn("Health check: thumbnail directory unavailable: %v", err)
		response.Status = statusDegraded
		response.Ready = false
		response.StatsError = err.Error()
	} else {
		response.ThumbnailFiles = stats.Files
		response.ThumbnailBytes = stats.Bytes
	}

	w.Header().Set("Content-Type", "application/json")
	if !response.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only while the thumbnail directory is readable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.thumbs.GetStats(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_ready"})
		return
	}
	writeJSONStatus(w, "ready")
}
