package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/logging"
	"thumbcache/internal/probe"
	"thumbcache/internal/raster"
	"thumbcache/internal/thumbnail"
	"thumbcache/internal/thumbpath"
)

// Config holds all application configuration
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
	Defaults  thumbnail.Defaults

	RasterEngine string
	JPEGQuality  int

	ProbeBytes     int64
	MaxRemoteBytes int64
	RemoteTimeout  time.Duration

	DirMode  os.FileMode
	FileMode os.FileMode

	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StatsInterval   time.Duration
	LogStaticFiles  bool
	LogHealthChecks bool
}

// GeneratorConfig returns the thumbnail generator settings.
func (c *Config) GeneratorConfig() thumbnail.Config {
	return thumbnail.Config{
		WebRoot:        c.WebRoot,
		BaseURL:        c.BaseURL,
		ThumbDir:       c.ThumbDir,
		Layout:         c.Layout,
		Delimiter:      c.Delimiter,
		CopyRemote:     c.CopyRemote,
		RemoteDir:      c.RemoteDir,
		Strategy:       c.Strategy,
		Densities:      c.Densities,
		Defaults:       c.Defaults,
		ProbeBytes:     c.ProbeBytes,
		MaxRemoteBytes: c.MaxRemoteBytes,
		DirMode:        c.DirMode,
		FileMode:       c.FileMode,
	}
}

// LoadConfig prints the startup banner, loads configuration from environment
// variables and checks that the web root is usable.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	logConfig(config)

	logging.Info("")
	logSection("DIRECTORY SETUP")
	if err := PrepareDirectories(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ReadConfig parses and validates the environment without logging or
// touching the file system. Invalid values fail with ErrConfiguration.
func ReadConfig() (*Config, error) {
	var errs []string
	fail := func(key, value string, err error) {
		errs = append(errs, fmt.Sprintf("%s=%q: %v", key, value, err))
	}

	port := getEnv("PORT", "8080")
	config := &Config{
		WebRoot:         getEnv("WEB_ROOT", "/var/www"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:"+port),
		ThumbDir:        getEnv("THUMB_DIR", thumbnail.DefaultThumbDir),
		CopyRemote:      getEnvBool("COPY_REMOTE", false),
		RemoteDir:       getEnv("REMOTE_DIR", thumbnail.DefaultRemoteDir),
		RasterEngine:    strings.ToLower(getEnv("RASTER_ENGINE", raster.DefaultEngine)),
		Port:            port,
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
	}

	webRoot, err := filepath.Abs(config.WebRoot)
	if err != nil {
		fail("WEB_ROOT", config.WebRoot, err)
	}
	config.WebRoot = webRoot

	config.Layout = thumbpath.Flat
	if getEnvBool("SUBDIRS", true) {
		config.Layout = thumbpath.Nested
	}

	delimiter := getEnv("PATH_DELIMITER", string(thumbpath.DefaultDelimiter))
	if utf8.RuneCountInString(delimiter) != 1 || delimiter == "/" {
		fail("PATH_DELIMITER", delimiter, fmt.Errorf("must be a single character other than /"))
	} else {
		config.Delimiter, _ = utf8.DecodeRuneInString(delimiter)
	}

	resizeType := getEnv("RESIZE_TYPE", "fill")
	if config.Strategy, err = geometry.Lookup(resizeType); err != nil {
		fail("RESIZE_TYPE", resizeType, err)
	}

	ratios := getEnv("RATIOS", "1")
	if config.Densities, err = ParseDensities(ratios); err != nil {
		fail("RATIOS", ratios, err)
	}

	defaultSize := getEnv("DEFAULT_SIZE", "")
	if config.Defaults.Policy, err = thumbnail.ParseDefaultSizePolicy(defaultSize); err != nil {
		fail("DEFAULT_SIZE", defaultSize, err)
	}
	config.Defaults.Width = int(envInt(&errs, "DEFAULT_WIDTH", 0, 0))
	config.Defaults.Height = int(envInt(&errs, "DEFAULT_HEIGHT", 0, 0))

	if !slices.Contains(raster.Names(), config.RasterEngine) {
		fail("RASTER_ENGINE", config.RasterEngine, fmt.Errorf("available engines: %s", strings.Join(raster.Names(), ", ")))
	}
	config.JPEGQuality = int(envInt(&errs, "JPEG_QUALITY", 90, 1))
	if config.JPEGQuality > 100 {
		fail("JPEG_QUALITY", strconv.Itoa(config.JPEGQuality), fmt.Errorf("must be between 1 and 100"))
	}

	config.ProbeBytes = envInt(&errs, "PROBE_BYTES", probe.DefaultMaxBytes, 1)
	config.MaxRemoteBytes = envInt(&errs, "MAX_REMOTE_BYTES", 50<<20, 0)
	config.RemoteTimeout = envDuration(&errs, "REMOTE_TIMEOUT", 30*time.Second)
	config.StatsInterval = envDuration(&errs, "STATS_INTERVAL", 5*time.Minute)

	config.DirMode = envMode(&errs, "DIR_MODE", 0o755)
	config.FileMode = envMode(&errs, "FILE_MODE", 0o644)

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrConfiguration, strings.Join(errs, "; "))
	}
	return config, nil
}

// PrepareDirectories creates the web root and checks that thumbnails can be
// written.
func PrepareDirectories(config *Config) error {
	if err := ensureDirectory(config.WebRoot, "web root"); err != nil {
		return fmt.Errorf("%w: web root: %v", errdefs.ErrFileSystem, err)
	}
	logging.Info("  Web root (absolute): %s", config.WebRoot)

	thumbDir := config.ThumbDir
	if !filepath.IsAbs(thumbDir) {
		thumbDir = filepath.Join(config.WebRoot, thumbDir)
	}
	if err := ensureDirectory(thumbDir, "thumbnail"); err != nil {
		return fmt.Errorf("%w: thumbnail directory: %v", errdefs.ErrFileSystem, err)
	}
	if err := testWriteAccess(thumbDir); err != nil {
		return fmt.Errorf("%w: thumbnail directory %s is not writable: %v", errdefs.ErrFileSystem, thumbDir, err)
	}
	logging.Info("  [OK] Thumbnail directory is writable: %s", thumbDir)
	return nil
}

// ParseDensities parses a comma separated list of display densities such as
// "1,1.5,2".
func ParseDensities(s string) ([]float64, error) {
	var densities []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		d, err := strconv.ParseFloat(field, 64)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: invalid density %q", errdefs.ErrConfiguration, field)
		}
		densities = append(densities, d)
	}
	if len(densities) == 0 {
		return nil, fmt.Errorf("%w: no densities in %q", errdefs.ErrConfiguration, s)
	}
	return densities, nil
}

func logConfig(c *Config) {
	logSection("CONFIGURATION")
	logging.Info("  WEB_ROOT:            %s", c.WebRoot)
	logging.Info("  BASE_URL:            %s", c.BaseURL)
	logging.Info("  THUMB_DIR:           %s", c.ThumbDir)
	logging.Info("  SUBDIRS:             %v", c.Layout == thumbpath.Nested)
	logging.Info("  PATH_DELIMITER:      %q", c.Delimiter)
	logging.Info("  COPY_REMOTE:         %v", c.CopyRemote)
	logging.Info("  REMOTE_DIR:          %s", c.RemoteDir)
	logging.Info("  RESIZE_TYPE:         %s", c.Strategy)
	logging.Info("  RATIOS:              %v", c.Densities)
	logging.Info("  DEFAULT_SIZE:        %q (%dx%d)", c.Defaults.Policy, c.Defaults.Width, c.Defaults.Height)
	logging.Info("  RASTER_ENGINE:       %s", c.RasterEngine)
	logging.Info("  JPEG_QUALITY:        %d", c.JPEGQuality)
	logging.Info("  PROBE_BYTES:         %d", c.ProbeBytes)
	logging.Info("  MAX_REMOTE_BYTES:    %d", c.MaxRemoteBytes)
	logging.Info("  REMOTE_TIMEOUT:      %s", c.RemoteTimeout)
	logging.Info("  DIR_MODE:            %#o", c.DirMode)
	logging.Info("  FILE_MODE:           %#o", c.FileMode)
	logging.Info("  PORT:                %s", c.Port)
	logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", c.MetricsEnabled)
	logging.Info("  STATS_INTERVAL:      %s", c.StatsInterval)
	logging.Info("  LOG_STATIC_FILES:    %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// envInt parses an integer variable no smaller than minimum, recording a
// failure in errs.
func envInt(errs *[]string, key string, defaultValue, minimum int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < minimum {
		*errs = append(*errs, fmt.Sprintf("%s=%q: must be an integer >= %d", key, value, minimum))
		return defaultValue
	}
	return n
}

func envDuration(errs *[]string, key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s=%q: must be a positive duration", key, value))
		return defaultValue
	}
	return d
}

// envMode parses an octal file mode such as 0755.
func envMode(errs *[]string, key string, defaultValue os.FileMode) os.FileMode {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	m, err := strconv.ParseUint(strings.TrimPrefix(value, "0o"), 8, 32)
	if err != nil || m == 0 || m > 0o777 {
		*errs = append(*errs, fmt.Sprintf("%s=%q: must be an octal permission like 0755", key, value))
		return defaultValue
	}
	return os.FileMode(m)
}
