// Package thumbnail derives cached thumbnails of local and remote images.
//
// A request names a source, a box and a list of display densities:
//
//	set, err := gen.GetThumbnails(ctx, "images/photo.jpg", 300, 200, []float64{1, 2})
//
// The Generator resolves the source to an original (a file under the web
// root, a URL on the site's own host, or a remote URL, optionally copied into
// the remote directory), reads its dimensions from a bounded read, computes
// the output size and crop with the configured geometry strategy and scales
// it for every density without ever exceeding the original.
//
// Each variant then moves through a small state machine:
//
//	Requested -> NotNeeded               the original is small enough to serve
//	Requested -> CacheHit                a fresh thumbnail file exists
//	Requested -> CacheMiss -> Generating -> Generated
//
// All misses of a request are produced by a single raster engine call, after
// the memory budget has admitted the estimated peak usage. Nothing is
// persisted besides the thumbnail files; freshness is recomputed from file
// and HTTP modification times on every request.
package thumbnail
