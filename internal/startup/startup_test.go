package startup

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/thumbnail"
	"thumbcache/internal/thumbpath"

	"github.com/gorilla/mux"
)

var configKeys = []string{
	"WEB_ROOT", "BASE_URL", "THUMB_DIR", "SUBDIRS", "PATH_DELIMITER",
	"COPY_REMOTE", "REMOTE_DIR", "RESIZE_TYPE", "RATIOS", "DEFAULT_SIZE",
	"DEFAULT_WIDTH", "DEFAULT_HEIGHT", "RASTER_ENGINE", "JPEG_QUALITY",
	"PROBE_BYTES", "MAX_REMOTE_BYTES", "REMOTE_TIMEOUT", "DIR_MODE", "FILE_MODE",
	"PORT", "METRICS_PORT", "METRICS_ENABLED", "STATS_INTERVAL",
}

// clearConfigEnv blanks every variable ReadConfig reads so host settings do
// not leak into tests.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS and Arch to be set, got %q/%q", info.OS, info.Arch)
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestReadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	root := t.TempDir()
	t.Setenv("WEB_ROOT", root)

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.WebRoot != root {
		t.Errorf("WebRoot = %q, want %q", cfg.WebRoot, root)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ThumbDir != thumbnail.DefaultThumbDir {
		t.Errorf("ThumbDir = %q", cfg.ThumbDir)
	}
	if cfg.Layout != thumbpath.Nested {
		t.Errorf("Layout = %v, want Nested", cfg.Layout)
	}
	if cfg.Delimiter != thumbpath.DefaultDelimiter {
		t.Errorf("Delimiter = %q", cfg.Delimiter)
	}
	if cfg.Strategy != geometry.Fill {
		t.Errorf("Strategy = %v, want fill", cfg.Strategy)
	}
	if !reflect.DeepEqual(cfg.Densities, []float64{1}) {
		t.Errorf("Densities = %v", cfg.Densities)
	}
	if cfg.RasterEngine != "imaging" || cfg.JPEGQuality != 90 {
		t.Errorf("engine = %q quality = %d", cfg.RasterEngine, cfg.JPEGQuality)
	}
	if cfg.RemoteTimeout != 30*time.Second {
		t.Errorf("RemoteTimeout = %v", cfg.RemoteTimeout)
	}
	if cfg.DirMode != 0o755 || cfg.FileMode != 0o644 {
		t.Errorf("modes = %o/%o", cfg.DirMode, cfg.FileMode)
	}
	if !cfg.MetricsEnabled {
		t.Error("metrics should be enabled by default")
	}
}

func TestReadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("WEB_ROOT", t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("SUBDIRS", "false")
	t.Setenv("PATH_DELIMITER", "_")
	t.Setenv("RESIZE_TYPE", "FIT")
	t.Setenv("RATIOS", "1, 2 ,3")
	t.Setenv("DEFAULT_SIZE", "all")
	t.Setenv("DEFAULT_WIDTH", "800")
	t.Setenv("DIR_MODE", "0750")
	t.Setenv("FILE_MODE", "0o600")
	t.Setenv("COPY_REMOTE", "true")
	t.Setenv("REMOTE_TIMEOUT", "5s")

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Layout != thumbpath.Flat || cfg.Delimiter != '_' {
		t.Errorf("layout = %v delimiter = %q", cfg.Layout, cfg.Delimiter)
	}
	if cfg.Strategy != geometry.Fit {
		t.Errorf("Strategy = %v, want fit", cfg.Strategy)
	}
	if !reflect.DeepEqual(cfg.Densities, []float64{1, 2, 3}) {
		t.Errorf("Densities = %v", cfg.Densities)
	}
	if cfg.Defaults.Policy != thumbnail.DefaultSizeAll || cfg.Defaults.Width != 800 {
		t.Errorf("Defaults = %+v", cfg.Defaults)
	}
	if cfg.DirMode != 0o750 || cfg.FileMode != 0o600 {
		t.Errorf("modes = %o/%o", cfg.DirMode, cfg.FileMode)
	}
	if !cfg.CopyRemote || cfg.RemoteTimeout != 5*time.Second {
		t.Errorf("remote = %v %v", cfg.CopyRemote, cfg.RemoteTimeout)
	}

	gc := cfg.GeneratorConfig()
	if gc.WebRoot != cfg.WebRoot || gc.Strategy != cfg.Strategy || !gc.CopyRemote || gc.FileMode != 0o600 {
		t.Errorf("GeneratorConfig() = %+v", gc)
	}
}

func TestReadConfigInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"RESIZE_TYPE", "squash"},
		{"RATIOS", "1,zero"},
		{"RATIOS", "-1"},
		{"RATIOS", ","},
		{"DEFAULT_SIZE", "sometimes"},
		{"DEFAULT_WIDTH", "-5"},
		{"RASTER_ENGINE", "gd"},
		{"JPEG_QUALITY", "0"},
		{"JPEG_QUALITY", "101"},
		{"PROBE_BYTES", "0"},
		{"MAX_REMOTE_BYTES", "lots"},
		{"REMOTE_TIMEOUT", "soon"},
		{"STATS_INTERVAL", "-1m"},
		{"DIR_MODE", "rwx"},
		{"FILE_MODE", "01777"},
		{"PATH_DELIMITER", "/"},
		{"PATH_DELIMITER", "--"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("WEB_ROOT", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := ReadConfig()
			if !errors.Is(err, errdefs.ErrConfiguration) {
				t.Fatalf("ReadConfig() error = %v, want ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestReadConfigReportsAllErrors(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("WEB_ROOT", t.TempDir())
	t.Setenv("RESIZE_TYPE", "squash")
	t.Setenv("JPEG_QUALITY", "abc")

	_, err := ReadConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"RESIZE_TYPE", "JPEG_QUALITY"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not name %s", err, key)
		}
	}
}

func TestPrepareDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "www")
	cfg := &Config{WebRoot: root, ThumbDir: "images/thumbnails"}

	if err := PrepareDirectories(cfg); err != nil {
		t.Fatalf("PrepareDirectories() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(root, "images", "thumbnails"))
	if err != nil || !info.IsDir() {
		t.Fatalf("thumbnail directory not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "images", "thumbnails", ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file was left behind")
	}
}

func TestPrepareDirectoriesRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "www")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := PrepareDirectories(&Config{WebRoot: root, ThumbDir: "thumbs"})
	if !errors.Is(err, errdefs.ErrFileSystem) {
		t.Fatalf("PrepareDirectories() error = %v, want ErrFileSystem", err)
	}
}

func TestParseDensities(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{in: "1", want: []float64{1}},
		{in: "1,1.5,2", want: []float64{1, 1.5, 2}},
		{in: " 2 , ,3", want: []float64{2, 3}},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "x2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDensities(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDensities(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseDensities(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	router := mux.NewRouter()
	router.HandleFunc("/api/thumbnails", noop).Methods(http.MethodGet).Name("thumbnails")
	router.HandleFunc("/health", noop).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix("/").Handler(http.HandlerFunc(noop))

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 4 {
		t.Fatalf("got %d routes, want 4: %+v", len(routes), routes)
	}
	if routes[0] != (RouteInfo{Method: http.MethodGet, Path: "/api/thumbnails", Name: "thumbnails"}) {
		t.Errorf("routes[0] = %+v", routes[0])
	}
	if routes[3].Method != "*" {
		t.Errorf("prefix route method = %q, want *", routes[3].Method)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/thumbnails", "api/thumbnails"},
		{"/api/version/extra", "api/version"},
		{"/health", "health"},
		{"/", ""},
		{"/api", "api"},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
