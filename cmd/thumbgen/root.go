package main

import (
	"fmt"
	"os"

	"thumbcache/internal/logging"
	"thumbcache/internal/memory"
	"thumbcache/internal/startup"

	"github.com/spf13/cobra"
)

// flagEnv maps persistent flags to the environment variables read by
// startup.ReadConfig. A flag set on the command line overrides the variable.
var flagEnv = []struct {
	flag  string
	env   string
	usage string
}{
	{"web-root", "WEB_ROOT", "directory served as the site root"},
	{"base-url", "BASE_URL", "public URL of the web root"},
	{"thumb-dir", "THUMB_DIR", "thumbnail directory relative to the web root"},
	{"resize-type", "RESIZE_TYPE", "resize strategy: area, fill, fit or stretch"},
	{"ratios", "RATIOS", "comma separated display densities"},
	{"engine", "RASTER_ENGINE", "raster engine: imaging or vips"},
	{"copy-remote", "COPY_REMOTE", "copy remote originals under the remote directory"},
	{"jpeg-quality", "JPEG_QUALITY", "JPEG and WebP quality (1-100)"},
}

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:          "thumbgen",
		Short:        "Generate cached thumbnails without running the server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logging.ConfigureFromEnv()
			if logLevel != "" {
				level, err := logging.ParseLevel(logLevel)
				if err != nil {
					return err
				}
				logging.SetLevel(level)
			}
			if err := applyFlagEnv(cmd); err != nil {
				return err
			}
			result := memory.ConfigureFromEnv()
			logging.Debug("Memory configuration source: %s", result.Source)
			return nil
		},
	}

	for _, f := range flagEnv {
		cmd.PersistentFlags().String(f.flag, "", fmt.Sprintf("%s (env %s)", f.usage, f.env))
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")

	cmd.AddCommand(
		newGenerateCmd(),
		newVersionCmd(startup.Version),
	)
	return cmd
}

// applyFlagEnv exports every changed persistent flag to its environment
// variable.
func applyFlagEnv(cmd *cobra.Command) error {
	for _, f := range flagEnv {
		flag := cmd.Flags().Lookup(f.flag)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := os.Setenv(f.env, flag.Value.String()); err != nil {
			return fmt.Errorf("setting %s: %w", f.env, err)
		}
	}
	return nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			info := startup.GetBuildInfo()
			cmd.Printf("Version: %s\n", version)
			cmd.Printf("Commit: %s\n", info.Commit)
			cmd.Printf("Built: %s (%s, %s/%s)\n", info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}
