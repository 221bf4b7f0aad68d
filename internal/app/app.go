// Package app assembles the thumbnail pipeline from a startup.Config. The
// HTTP server and the thumbgen command share it.
package app

import (
	"fmt"
	"path/filepath"
	"time"

	"thumbcache/internal/filesystem"
	"thumbcache/internal/logging"
	"thumbcache/internal/memory"
	"thumbcache/internal/metrics"
	"thumbcache/internal/probe"
	"thumbcache/internal/raster"
	"thumbcache/internal/startup"
	"thumbcache/internal/thumbnail"
)

// Service holds the wired components.
type Service struct {
	Generator *thumbnail.Generator
	Engine    raster.Engine
	FS        *filesystem.Local
	Budget    *memory.Budget
}

// Build wires the file system, prober, raster engine, memory budget and
// generator described by cfg. Close must be called when done.
func Build(cfg *startup.Config) (*Service, error) {
	retry := filesystem.DefaultRetryConfig()
	retry.VolumeResolver = filesystem.NewVolumeResolver(volumes(cfg))
	retry.Observer = metrics.NewFilesystemObserver()
	filesystem.SetObserver(retry.Observer)

	fs, err := filesystem.NewLocal(cfg.WebRoot, cfg.BaseURL,
		filesystem.WithDirMode(cfg.DirMode),
		filesystem.WithRetryConfig(retry),
	)
	if err != nil {
		return nil, err
	}

	prober := probe.NewHTTPProber(cfg.RemoteTimeout, "thumbcache/"+startup.Version)

	engineStart := time.Now()
	engine, err := raster.New(cfg.RasterEngine, raster.Options{
		Store:       thumbnail.NewSourceStore(fs, prober, cfg.MaxRemoteBytes),
		JPEGQuality: cfg.JPEGQuality,
		FileMode:    cfg.FileMode,
	})
	if err != nil {
		return nil, fmt.Errorf("raster engine %q: %w", cfg.RasterEngine, err)
	}
	startup.LogEngineInit(engine.Name(), time.Since(engineStart))
	metrics.InitializeMetrics(engine.Name())

	budget := memory.NewBudget(0)
	gen, err := thumbnail.New(cfg.GeneratorConfig(), fs, engine, prober, budget)
	if err != nil {
		closeEngine(engine)
		return nil, err
	}
	startup.LogGeneratorInit(gen.ThumbPath(), cfg.Densities, budget.Limit())

	return &Service{Generator: gen, Engine: engine, FS: fs, Budget: budget}, nil
}

// Close releases engine resources.
func (s *Service) Close() {
	closeEngine(s.Engine)
}

func closeEngine(engine raster.Engine) {
	if engine != nil && engine.Name() == "vips" {
		raster.ShutdownVips()
		logging.Debug("Raster engine %s closed", engine.Name())
	}
}

// volumes labels file system metrics by the directory they touch.
func volumes(cfg *startup.Config) map[string]string {
	abs := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(cfg.WebRoot, dir)
	}
	return map[string]string{
		"web":    cfg.WebRoot,
		"thumbs": abs(cfg.ThumbDir),
		"remote": abs(cfg.RemoteDir),
	}
}
