package main

import (
	"os"

	"github.com/spf13/cobra"

	"blenddoc/internal/config"
	"blenddoc/internal/logging"
	"blenddoc/internal/version"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "blenddoc",
	Short: "blenddoc - 3D project documentation tool",
	Long: `blenddoc scans a 3D project folder, follows the dependencies of its scene
files (linked libraries, textures, audio, models), and renders the resulting
file catalog and folder dependency graph as JSON, YAML, text or DOT.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("blenddoc version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default from config)")
}

// newLogger builds the run logger. Precedence: CLI flag > BLENDDOC_LOG_LEVEL
// env var > config > default.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if env := os.Getenv("BLENDDOC_LOG_LEVEL"); env != "" {
		level = env
	}
	if logLevelFlag != "" {
		level = logLevelFlag
	}

	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}

	return logging.NewLogger(logging.Config{
		Format: logging.ParseFormat(format),
		Level:  logging.ParseLevel(level),
	})
}

// projectRoot resolves the optional folder argument, defaulting to the
// current directory
func projectRoot(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return os.Getwd()
}
