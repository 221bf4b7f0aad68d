package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/imageinfo"
	"thumbcache/internal/metrics"
	"thumbcache/internal/middleware"
	"thumbcache/internal/thumbnail"
)

type thumbnailCall struct {
	src       string
	width     int
	height    int
	densities []float64
}

type mockThumbnailer struct {
	set      *thumbnail.Set
	err      error
	stats    metrics.Stats
	statsErr error
	calls    []thumbnailCall
}

func (m *mockThumbnailer) GetThumbnails(_ context.Context, src string, width, height int, densities []float64) (*thumbnail.Set, error) {
	m.calls = append(m.calls, thumbnailCall{src, width, height, densities})
	return m.set, m.err
}

func (m *mockThumbnailer) GetStats() (metrics.Stats, error) {
	return m.stats, m.statsErr
}

func sampleSet(locator string) *thumbnail.Set {
	return &thumbnail.Set{
		Original: thumbnail.ImageDescriptor{
			Locator: "/var/www/images/photo.jpg",
			IsLocal: true,
			URL:     "http://example.com/images/photo.jpg",
			Width:   1200,
			Height:  800,
			Format:  imageinfo.JPEG,
		},
		Variants: []thumbnail.Variant{
			{
				ImageDescriptor: thumbnail.ImageDescriptor{
					Locator: locator,
					IsLocal: true,
					URL:     "http://example.com/images/thumbnails/images/photo-fill-300x200.jpg",
					Width:   300,
					Height:  200,
					Format:  imageinfo.JPEG,
				},
				RequestedBox: geometry.Size{Width: 300, Height: 200},
				Density:      1,
				RealWidth:    300,
				RealHeight:   200,
				Exists:       true,
				State:        thumbnail.Generated,
			},
			{
				ImageDescriptor: thumbnail.ImageDescriptor{
					Locator: locator,
					IsLocal: true,
					URL:     "http://example.com/images/thumbnails/images/photo-fill-300x200@2x.jpg",
					Width:   300,
					Height:  200,
					Format:  imageinfo.JPEG,
				},
				RequestedBox: geometry.Size{Width: 300, Height: 200},
				Density:      2,
				RealWidth:    600,
				RealHeight:   400,
				Exists:       true,
				State:        thumbnail.CacheHit,
			},
		},
		Crop:     geometry.Rect{Width: 1200, Height: 800},
		Strategy: geometry.Fill,
	}
}

func TestNewHandlers(t *testing.T) {
	m := &mockThumbnailer{}
	h := New(m, "imaging")

	if h.thumbs != m || h.engine != "imaging" {
		t.Errorf("New() = %+v", h)
	}
	if h.started.IsZero() {
		t.Error("start time should be recorded")
	}
}

func TestGetThumbnails(t *testing.T) {
	m := &mockThumbnailer{set: sampleSet("/unused")}
	h := New(m, "imaging")

	req := httptest.NewRequest(http.MethodGet, "/api/thumbnails?src=images/photo.jpg&w=300&h=200&ratios=1,2", http.NoBody)
	w := httptest.NewRecorder()
	h.GetThumbnails(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	want := thumbnailCall{"images/photo.jpg", 300, 200, []float64{1, 2}}
	if len(m.calls) != 1 || !reflect.DeepEqual(m.calls[0], want) {
		t.Fatalf("calls = %+v, want %+v", m.calls, want)
	}

	var resp ThumbnailsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Strategy != "fill" || resp.Original.Format != "jpeg" || resp.Original.Width != 1200 {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Variants) != 2 || resp.Variants[0].State != "generated" || resp.Variants[1].State != "cache_hit" {
		t.Fatalf("variants = %+v", resp.Variants)
	}
	if resp.Variants[1].RealWidth != 600 {
		t.Errorf("RealWidth = %d, want 600", resp.Variants[1].RealWidth)
	}
	wantSrcset := "http://example.com/images/thumbnails/images/photo-fill-300x200.jpg 1x, " +
		"http://example.com/images/thumbnails/images/photo-fill-300x200@2x.jpg 2x"
	if resp.Srcset != wantSrcset {
		t.Errorf("Srcset = %q, want %q", resp.Srcset, wantSrcset)
	}
	if body := w.Body.String(); strings.Contains(body, "/var/www") {
		t.Errorf("response leaks server paths: %s", body)
	}
}

func TestGetThumbnailsDefaults(t *testing.T) {
	m := &mockThumbnailer{set: sampleSet("/unused")}
	h := New(m, "imaging")

	w := httptest.NewRecorder()
	h.GetThumbnails(w, httptest.NewRequest(http.MethodGet, "/api/thumbnails?src=a.png", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := m.calls[0]; got.width != 0 || got.height != 0 || got.densities != nil {
		t.Errorf("call = %+v, want zero box and configured densities", got)
	}
}

func TestGetThumbnailsBadRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing src", "w=100"},
		{"negative width", "src=a.png&w=-1"},
		{"non-numeric height", "src=a.png&h=tall"},
		{"bad ratios", "src=a.png&ratios=1,x"},
		{"zero ratio", "src=a.png&ratios=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockThumbnailer{}
			h := New(m, "imaging")

			w := httptest.NewRecorder()
			h.GetThumbnails(w, httptest.NewRequest(http.MethodGet, "/api/thumbnails?"+tt.query, http.NoBody))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if len(m.calls) != 0 {
				t.Error("generator should not be called")
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
				t.Errorf("error body = %+v, %v", resp, err)
			}
		})
	}
}

func TestGetThumbnailsGeneratorErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{fmt.Errorf("%w: no such file", errdefs.ErrPathResolution), http.StatusBadRequest, "path_resolution"},
		{fmt.Errorf("x: %w", errdefs.ErrUnsupportedImageType), http.StatusUnsupportedMediaType, "unsupported_type"},
		{fmt.Errorf("%w: 404", errdefs.ErrRemoteProbe), http.StatusBadGateway, "remote_probe"},
		{errdefs.ErrInsufficientMemory, http.StatusServiceUnavailable, "insufficient_memory"},
		{errdefs.ErrEngineUnavailable, http.StatusServiceUnavailable, "engine_unavailable"},
		{errdefs.ErrFileSystem, http.StatusInternalServerError, "filesystem"},
		{errdefs.ErrConfiguration, http.StatusInternalServerError, "configuration"},
		{context.Canceled, http.StatusGatewayTimeout, "unknown"},
		{errors.New("boom"), http.StatusInternalServerError, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.wantKind+"/"+tt.err.Error(), func(t *testing.T) {
			h := New(&mockThumbnailer{err: tt.err}, "imaging")

			req := httptest.NewRequest(http.MethodGet, "/api/thumbnails?src=a.png", http.NoBody)
			req = req.WithContext(middleware.WithRequestID(req.Context(), "req-1"))
			w := httptest.NewRecorder()
			h.GetThumbnails(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Kind != tt.wantKind || resp.RequestID != "req-1" {
				t.Errorf("response = %+v", resp)
			}
			retry := w.Header().Get("Retry-After")
			if (retry != "") != (tt.wantStatus == http.StatusServiceUnavailable) {
				t.Errorf("Retry-After = %q for status %d", retry, w.Code)
			}
		})
	}
}

func TestGetThumbnailServesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo-fill-300x200.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	set := sampleSet(path)
	set.Variants = set.Variants[:1]
	m := &mockThumbnailer{set: set}
	h := New(m, "imaging")

	w := httptest.NewRecorder()
	h.GetThumbnail(w, httptest.NewRequest(http.MethodGet, "/api/thumbnail?src=images/photo.jpg&w=300&ratio=1", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if w.Body.String() != "jpeg bytes" {
		t.Errorf("body = %q", w.Body)
	}
	if w.Header().Get("Cache-Control") == "" {
		t.Error("Cache-Control should be set")
	}
	if !reflect.DeepEqual(m.calls[0].densities, []float64{1}) {
		t.Errorf("densities = %v", m.calls[0].densities)
	}
}

func TestGetThumbnailRedirectsRemoteOriginal(t *testing.T) {
	set := sampleSet("")
	set.Variants = []thumbnail.Variant{{
		ImageDescriptor: thumbnail.ImageDescriptor{
			Locator: "https://cdn.example.org/small.png",
			URL:     "https://cdn.example.org/small.png",
		},
		Density: 1,
		State:   thumbnail.NotNeeded,
	}}
	h := New(&mockThumbnailer{set: set}, "imaging")

	w := httptest.NewRecorder()
	h.GetThumbnail(w, httptest.NewRequest(http.MethodGet, "/api/thumbnail?src=https://cdn.example.org/small.png&w=500", http.NoBody))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "https://cdn.example.org/small.png" {
		t.Errorf("Location = %q", got)
	}
}

func TestGetThumbnailRejectsMultipleRatios(t *testing.T) {
	m := &mockThumbnailer{}
	h := New(m, "imaging")

	w := httptest.NewRecorder()
	h.GetThumbnail(w, httptest.NewRequest(http.MethodGet, "/api/thumbnail?src=a.png&ratio=1,2", http.NoBody))

	if w.Code != http.StatusBadRequest || len(m.calls) != 0 {
		t.Errorf("status = %d calls = %d", w.Code, len(m.calls))
	}
}

func TestGetThumbnailEmptySet(t *testing.T) {
	h := New(&mockThumbnailer{set: &thumbnail.Set{}}, "imaging")

	w := httptest.NewRecorder()
	h.GetThumbnail(w, httptest.NewRequest(http.MethodGet, "/api/thumbnail?src=a.png", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	h := New(&mockThumbnailer{stats: metrics.Stats{Files: 3, Bytes: 4096}}, "imaging")

	w := httptest.NewRecorder()
	h.GetStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats metrics.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Files != 3 || stats.Bytes != 4096 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetStatsError(t *testing.T) {
	h := New(&mockThumbnailer{statsErr: os.ErrPermission}, "imaging")

	w := httptest.NewRecorder()
	h.GetStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
