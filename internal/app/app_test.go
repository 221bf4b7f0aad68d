package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/filesystem"
	"thumbcache/internal/geometry"
	"thumbcache/internal/startup"
	"thumbcache/internal/thumbnail"
	"thumbcache/internal/thumbpath"
)

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	return &startup.Config{
		WebRoot:        t.TempDir(),
		BaseURL:        "http://example.com",
		ThumbDir:       thumbnail.DefaultThumbDir,
		Layout:         thumbpath.Nested,
		Delimiter:      thumbpath.DefaultDelimiter,
		RemoteDir:      thumbnail.DefaultRemoteDir,
		Strategy:       geometry.Fill,
		Densities:      []float64{1},
		RasterEngine:   "imaging",
		JPEGQuality:    90,
		ProbeBytes:     32 << 10,
		MaxRemoteBytes: 1 << 20,
		RemoteTimeout:  5 * time.Second,
		DirMode:        0o755,
		FileMode:       0o644,
	}
}

func TestBuildGeneratesThumbnails(t *testing.T) {
	cfg := testConfig(t)

	img := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: 80, B: 160, A: 255})
		}
	}
	src := filepath.Join(cfg.WebRoot, "images", "wide.png")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	svc, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer svc.Close()

	if svc.Engine.Name() != "imaging" {
		t.Errorf("engine = %s, want imaging", svc.Engine.Name())
	}

	set, err := svc.Generator.GetThumbnails(context.Background(), "images/wide.png", 100, 100, []float64{1, 2})
	if err != nil {
		t.Fatalf("GetThumbnails() error = %v", err)
	}
	if len(set.Variants) != 2 || !set.AllExist() {
		t.Fatalf("variants = %+v", set.Variants)
	}
	for _, v := range set.Variants {
		if v.State != thumbnail.Generated {
			t.Errorf("density %v state = %s, want generated", v.Density, v.State)
		}
		if _, err := os.Stat(v.Locator); err != nil {
			t.Errorf("thumbnail %s missing: %v", v.Locator, err)
		}
	}

	stats, err := svc.Generator.GetStats()
	if err != nil || stats.Files != 2 {
		t.Errorf("GetStats() = %+v, %v", stats, err)
	}
}

func TestBuildUnknownEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.RasterEngine = "gd"

	_, err := Build(cfg)
	if !errors.Is(err, errdefs.ErrConfiguration) {
		t.Fatalf("Build() error = %v, want ErrConfiguration", err)
	}
}

func TestVolumes(t *testing.T) {
	cfg := testConfig(t)
	cfg.RemoteDir = "/mnt/remote"

	v := volumes(cfg)
	if v["thumbs"] != filepath.Join(cfg.WebRoot, "images", "thumbnails") {
		t.Errorf("thumbs = %q", v["thumbs"])
	}
	if v["remote"] != "/mnt/remote" {
		t.Errorf("remote = %q", v["remote"])
	}

	resolver := filesystem.NewVolumeResolver(v)
	if got := resolver.Resolve(filepath.Join(v["thumbs"], "a.png")); got != "thumbs" {
		t.Errorf("Resolve(thumbnail) = %q, want thumbs", got)
	}
	if got := resolver.Resolve(filepath.Join(cfg.WebRoot, "index.html")); got != "web" {
		t.Errorf("Resolve(page) = %q, want web", got)
	}
}
