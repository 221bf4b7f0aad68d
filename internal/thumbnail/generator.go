package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"thumbcache/internal/cache"
	"thumbcache/internal/errdefs"
	"thumbcache/internal/filesystem"
	"thumbcache/internal/geometry"
	"thumbcache/internal/imageinfo"
	"thumbcache/internal/logging"
	"thumbcache/internal/memory"
	"thumbcache/internal/metrics"
	"thumbcache/internal/probe"
	"thumbcache/internal/raster"
	"thumbcache/internal/thumbpath"
)

const (
	// DefaultThumbDir is the thumbnail directory relative to the web root.
	DefaultThumbDir = "images/thumbnails"
	// DefaultRemoteDir holds copies of remote originals.
	DefaultRemoteDir = "images/remote"

	// probeGrowth multiplies the header read bound on the single retry.
	probeGrowth = 8

	indexHTML = `<html><body bgcolor="#FFFFFF"></body></html>`
)

// Config configures a Generator.
type Config struct {
	WebRoot   string
	BaseURL   string
	ThumbDir  string
	Layout    thumbpath.Layout
	Delimiter rune

	CopyRemote bool
	RemoteDir  string

	Strategy  geometry.Strategy
	Densities []float64
	Defaults  Defaults

	// ProbeBytes bounds the first header read of an original.
	ProbeBytes int64
	// MaxRemoteBytes caps remote downloads and grown header reads; 0 means
	// no cap.
	MaxRemoteBytes int64

	DirMode  os.FileMode
	FileMode os.FileMode
}

// Generator resolves originals, checks cached thumbnails and generates the
// missing ones with a raster engine. It is safe for concurrent use; two
// requests racing on the same file both write it and the last rename wins.
type Generator struct {
	cfg       Config
	fs        filesystem.FileSystem
	engine    raster.Engine
	prober    probe.Prober
	budget    *memory.Budget
	deriver   *thumbpath.Deriver
	validator *cache.Validator
	baseURL   *url.URL
}

// New builds a Generator and creates the thumbnail and remote-copy
// directories. A nil budget admits every request.
func New(cfg Config, fs filesystem.FileSystem, engine raster.Engine, prober probe.Prober, budget *memory.Budget) (*Generator, error) {
	if cfg.WebRoot == "" {
		return nil, fmt.Errorf("%w: web root is required", errdefs.ErrConfiguration)
	}
	if fs == nil || engine == nil || prober == nil {
		return nil, fmt.Errorf("%w: generator needs a file system, raster engine and prober", errdefs.ErrConfiguration)
	}
	if cfg.ThumbDir == "" {
		cfg.ThumbDir = DefaultThumbDir
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = DefaultRemoteDir
	}
	if cfg.ProbeBytes <= 0 {
		cfg.ProbeBytes = probe.DefaultMaxBytes
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}
	densities, err := normalizeDensities(cfg.Densities, DefaultDensities)
	if err != nil {
		return nil, err
	}
	cfg.Densities = densities
	if budget == nil {
		budget = memory.NewBudget(0)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q: %v", errdefs.ErrConfiguration, cfg.BaseURL, err)
	}
	if base.Scheme == "" {
		base.Scheme = "https"
	}

	g := &Generator{
		cfg:       cfg,
		fs:        fs,
		engine:    engine,
		prober:    prober,
		budget:    budget,
		deriver:   thumbpath.New(cfg.WebRoot, cfg.Layout, cfg.Delimiter),
		validator: cache.NewValidator(fs),
		baseURL:   base,
	}

	if err := g.prepareDirectory(g.ThumbPath()); err != nil {
		return nil, err
	}
	if cfg.CopyRemote {
		if err := g.prepareDirectory(g.absolute(cfg.RemoteDir)); err != nil {
			return nil, err
		}
	}

	logging.Debug("Thumbnail generator: strategy=%s engine=%s thumbs=%s densities=%v copyRemote=%t",
		cfg.Strategy, engine.Name(), g.ThumbPath(), cfg.Densities, cfg.CopyRemote)
	return g, nil
}

// ThumbPath returns the absolute thumbnail directory.
func (g *Generator) ThumbPath() string {
	return g.absolute(g.cfg.ThumbDir)
}

func (g *Generator) absolute(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(g.cfg.WebRoot, dir)
}

// prepareDirectory creates dir with a blank index page so the web server
// never lists it.
func (g *Generator) prepareDirectory(dir string) error {
	if g.fs.IsDirectory(dir) {
		return nil
	}
	if err := g.fs.MakeDirectory(dir, g.cfg.DirMode); err != nil {
		return err
	}
	return g.fs.Write(filepath.Join(dir, "index.html"), []byte(indexHTML), g.cfg.FileMode)
}

// GetThumbnails returns one thumbnail per density of src fitted to the
// width x height box, generating the ones that are missing or stale. A zero
// dimension is derived from the original's aspect ratio. Densities default
// to the configured list.
func (g *Generator) GetThumbnails(ctx context.Context, src string, width, height int, densities []float64) (set *Set, err error) {
	start := time.Now()
	result := "cached"
	defer func() {
		if err != nil {
			result = "error"
			metrics.ThumbnailErrorsTotal.WithLabelValues(errdefs.Kind(err)).Inc()
		}
		metrics.ThumbnailRequestsTotal.WithLabelValues(result).Inc()
		metrics.ThumbnailRequestDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: invalid box %dx%d", errdefs.ErrConfiguration, width, height)
	}
	densities, err = normalizeDensities(densities, g.cfg.Densities)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	original, err := g.resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	box := g.cfg.Defaults.Apply(original.Size(), geometry.Size{Width: width, Height: height})
	geo := g.cfg.Strategy.Compute(original.Size(), box)
	suffix := thumbpath.Suffix(g.cfg.Strategy, box)

	set = &Set{
		Original: original,
		Variants: make([]Variant, 0, len(densities)),
		Crop:     geo.Crop,
		Strategy: g.cfg.Strategy,
	}

	var targets []raster.Target
	var pending []int
	for _, sc := range Expand(original.Size(), geo.Size, densities) {
		v := Variant{
			RequestedBox: box,
			Density:      sc.Density,
			RealWidth:    sc.Real.Width,
			RealHeight:   sc.Real.Height,
			State:        Requested,
		}

		if sc.NotNeeded {
			v.ImageDescriptor = original
			v.Exists = true
			if err := v.transition(NotNeeded); err != nil {
				return nil, err
			}
			set.Variants = append(set.Variants, v)
			continue
		}

		if err := g.locateVariant(&v, original, suffix, geo.Size); err != nil {
			return nil, err
		}

		status := g.validator.Check(v.Locator, original.ModTime)
		metrics.ThumbnailCacheChecks.WithLabelValues(status.String()).Inc()
		if status == cache.Valid {
			v.Exists = true
			g.describeFile(&v.ImageDescriptor)
			if err := v.transition(CacheHit); err != nil {
				return nil, err
			}
		} else {
			logging.Debug("Thumbnail %s needs generation (%s)", v.Locator, status)
			if err := v.transition(CacheMiss); err != nil {
				return nil, err
			}
			targets = append(targets, raster.Target{Width: v.RealWidth, Height: v.RealHeight, Path: v.Locator})
			pending = append(pending, len(set.Variants))
		}
		set.Variants = append(set.Variants, v)
	}

	if set.AllExist() {
		countVariants(set)
		return set, nil
	}

	sizes := make([]geometry.Size, len(targets))
	for i, t := range targets {
		sizes[i] = geometry.Size{Width: t.Width, Height: t.Height}
	}
	estimate := memory.Estimate(original.Size(), sizes)
	metrics.MemoryAdmissionEstimateBytes.Observe(float64(estimate))
	if err := g.budget.Admit(estimate); err != nil {
		return nil, fmt.Errorf("thumbnails of %s: %w", src, err)
	}

	for _, i := range pending {
		if err := set.Variants[i].transition(Generating); err != nil {
			return nil, err
		}
	}
	if err := g.engine.CropAndResize(ctx, original.Locator, geo.Crop, targets); err != nil {
		return nil, fmt.Errorf("generating thumbnails of %s: %w", src, err)
	}
	for _, i := range pending {
		v := &set.Variants[i]
		if err := v.transition(Generated); err != nil {
			return nil, err
		}
		v.Exists = true
		g.describeFile(&v.ImageDescriptor)
	}

	result = "generated"
	countVariants(set)
	logging.Debug("Generated %d thumbnail(s) of %s in %v", len(targets), src, time.Since(start))
	return set, nil
}

// locateVariant fills in the cache path and URL of a variant that needs a
// thumbnail file.
func (g *Generator) locateVariant(v *Variant, original ImageDescriptor, suffix string, logical geometry.Size) error {
	p, err := g.deriver.Derive(g.cfg.ThumbDir, thumbpath.Source{Locator: original.Locator, IsLocal: original.IsLocal}, suffix, v.Density)
	if err != nil {
		return err
	}
	p = withEncodableExtension(p, original.Format)

	u, err := g.fs.PathToURL(p)
	if err != nil {
		return err
	}

	v.ImageDescriptor = ImageDescriptor{
		Locator: p,
		IsLocal: true,
		URL:     u,
		Width:   logical.Width,
		Height:  logical.Height,
		Format:  imageinfo.ParseFormat(path.Ext(p)),
	}
	return nil
}

// describeFile records the size and modification time of a thumbnail file.
func (g *Generator) describeFile(d *ImageDescriptor) {
	if size, err := g.fs.FileSize(d.Locator); err == nil {
		d.ByteSize = size
	}
	if mtime, err := g.fs.ModTime(d.Locator); err == nil {
		d.ModTime = mtime
	}
}

// withEncodableExtension appends an extension the raster engines can encode
// when p has none, keeping the original format where possible.
func withEncodableExtension(p string, format imageinfo.Format) string {
	if imageinfo.ParseFormat(path.Ext(p)) != imageinfo.Unknown {
		return p
	}
	if format == imageinfo.Unknown {
		format = imageinfo.PNG
	}
	return p + "." + format.String()
}

func countVariants(set *Set) {
	for _, v := range set.Variants {
		metrics.ThumbnailVariantsTotal.WithLabelValues(v.State.String()).Inc()
	}
}

// IsClientError reports whether err was caused by the request rather than
// the service.
func IsClientError(err error) bool {
	return errors.Is(err, errdefs.ErrUnsupportedImageType) ||
		errors.Is(err, errdefs.ErrPathResolution)
}
