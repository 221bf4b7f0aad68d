package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/middleware"
	"thumbcache/internal/startup"
	"thumbcache/internal/thumbnail"
)

// ImageResponse describes an original or a thumbnail without exposing
// server paths.
type ImageResponse struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	ByteSize int64  `json:"byteSize"`
}

// VariantResponse is one density of a thumbnail set.
type VariantResponse struct {
	ImageResponse
	Density    float64 `json:"density"`
	RealWidth  int     `json:"realWidth"`
	RealHeight int     `json:"realHeight"`
	State      string  `json:"state"`
}

// ThumbnailsResponse is the body of GET /api/thumbnails.
type ThumbnailsResponse struct {
	Original ImageResponse     `json:"original"`
	Variants []VariantResponse `json:"variants"`
	Srcset   string            `json:"srcset"`
	Strategy string            `json:"strategy"`
	Crop     geometry.Rect     `json:"crop"`
}

// thumbnailRequest holds the parsed query of a thumbnail request.
type thumbnailRequest struct {
	src       string
	width     int
	height    int
	densities []float64
}

func parseThumbnailRequest(r *http.Request, densityParam string) (thumbnailRequest, error) {
	q := r.URL.Query()
	req := thumbnailRequest{src: q.Get("src")}
	if req.src == "" {
		return req, fmt.Errorf("%w: src is required", errdefs.ErrPathResolution)
	}

	var err error
	if req.width, err = parseDimension(q.Get("w")); err != nil {
		return req, err
	}
	if req.height, err = parseDimension(q.Get("h")); err != nil {
		return req, err
	}
	if raw := q.Get(densityParam); raw != "" {
		if req.densities, err = startup.ParseDensities(raw); err != nil {
			return req, err
		}
	}
	return req, nil
}

func parseDimension(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid dimension %q", errdefs.ErrConfiguration, s)
	}
	return n, nil
}

// GetThumbnails returns every density of a thumbnail as JSON, generating
// missing files first.
//
//	GET /api/thumbnails?src=images/photo.jpg&w=300&h=200&ratios=1,2
func (h *Handlers) GetThumbnails(w http.ResponseWriter, r *http.Request) {
	req, err := parseThumbnailRequest(r, "ratios")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	set, err := h.thumbs.GetThumbnails(r.Context(), req.src, req.width, req.height, req.densities)
	if err != nil {
		writeGeneratorError(w, r, req.src, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, newThumbnailsResponse(set))
}

// GetThumbnail serves a single density. Local thumbnails are served directly;
// a remote original that needs no thumbnail is redirected to.
//
//	GET /api/thumbnail?src=images/photo.jpg&w=300&ratio=2
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	req, err := parseThumbnailRequest(r, "ratio")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if len(req.densities) > 1 {
		writeBadRequest(w, r, fmt.Errorf("%w: ratio takes a single density", errdefs.ErrConfiguration))
		return
	}

	set, err := h.thumbs.GetThumbnails(r.Context(), req.src, req.width, req.height, req.densities)
	if err != nil {
		writeGeneratorError(w, r, req.src, err)
		return
	}
	if len(set.Variants) == 0 {
		writeGeneratorError(w, r, req.src, fmt.Errorf("%w: no thumbnail produced", errdefs.ErrFileSystem))
		return
	}

	v := set.Variants[0]
	if !v.IsLocal {
		http.Redirect(w, r, v.URL, http.StatusFound)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, v.Locator)
}

// GetStats reports the number and total size of cached thumbnails.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.thumbs.GetStats()
	if err != nil {
		writeGeneratorError(w, r, "", fmt.Errorf("%w: %v", errdefs.ErrFileSystem, err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	writeJSON(w, ErrorResponse{
		Error:     err.Error(),
		Kind:      errdefs.Kind(err),
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

func newThumbnailsResponse(set *thumbnail.Set) ThumbnailsResponse {
	resp := ThumbnailsResponse{
		Original: imageResponse(set.Original),
		Variants: make([]VariantResponse, 0, len(set.Variants)),
		Strategy: set.Strategy.String(),
		Crop:     set.Crop,
	}
	srcset := make([]string, 0, len(set.Variants))
	for _, v := range set.Variants {
		resp.Variants = append(resp.Variants, VariantResponse{
			ImageResponse: imageResponse(v.ImageDescriptor),
			Density:       v.Density,
			RealWidth:     v.RealWidth,
			RealHeight:    v.RealHeight,
			State:         v.State.String(),
		})
		srcset = append(srcset, v.URL+" "+strconv.FormatFloat(v.Density, 'f', -1, 64)+"x")
	}
	resp.Srcset = strings.Join(srcset, ", ")
	return resp
}

func imageResponse(d thumbnail.ImageDescriptor) ImageResponse {
	return ImageResponse{
		URL:      d.URL,
		Width:    d.Width,
		Height:   d.Height,
		Format:   d.Format.String(),
		ByteSize: d.ByteSize,
	}
}
