// Package config loads and saves the per-project blenddoc configuration.
// Configuration lives at .blenddoc/config.json under the project root and is
// immutable for the duration of a run.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DataDirName is the per-project directory holding config and the catalog DB
const DataDirName = ".blenddoc"

// Config represents the complete blenddoc configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// FollowExternal enables traversal of references outside the project root
	FollowExternal bool `json:"followExternal" mapstructure:"followExternal"`

	// ExtractorTimeoutSeconds bounds a single scene-file extraction
	ExtractorTimeoutSeconds int `json:"extractorTimeoutSeconds" mapstructure:"extractorTimeoutSeconds"`

	// SymlinkPolicy is "resolve" or "keep" (see paths.SymlinkPolicy)
	SymlinkPolicy string `json:"symlinkPolicy" mapstructure:"symlinkPolicy"`

	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Blender BlenderConfig `json:"blender" mapstructure:"blender"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls the directory scan that seeds traversal
type ScanConfig struct {
	// SkipPatterns are doublestar globs matched against both the
	// project-relative path and the base name of each entry
	SkipPatterns []string `json:"skipPatterns" mapstructure:"skipPatterns"`

	// ExtraLeafExtensions extend the built-in leaf classification
	ExtraLeafExtensions []string `json:"extraLeafExtensions" mapstructure:"extraLeafExtensions"`

	// MaxFileSizeBytes skips files larger than this during the scan (0 = no limit)
	MaxFileSizeBytes int64 `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// BlenderConfig contains Blender integration settings
type BlenderConfig struct {
	// Path to the Blender executable; looked up in PATH when empty
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:                 1,
		FollowExternal:          false,
		ExtractorTimeoutSeconds: 120,
		SymlinkPolicy:           "resolve",
		Scan: ScanConfig{
			SkipPatterns: []string{
				".git",
				"__pycache__",
				"node_modules",
				".venv",
				"venv",
				".DS_Store",
				"thumbs.db",
				".*",
			},
			ExtraLeafExtensions: []string{},
			MaxFileSizeBytes:    0,
		},
		Blender: BlenderConfig{
			Path: "",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <projectRoot>/.blenddoc/config.json.
// A missing config file is not an error; defaults are returned.
func LoadConfig(projectRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("followExternal", false)
	v.SetDefault("extractorTimeoutSeconds", 120)
	v.SetDefault("symlinkPolicy", "resolve")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, DataDirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <projectRoot>/.blenddoc/config.json
func (c *Config) Save(projectRoot string) error {
	dir := filepath.Join(projectRoot, DataDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.ExtractorTimeoutSeconds <= 0 {
		return &ConfigError{Field: "extractorTimeoutSeconds", Message: "must be positive"}
	}
	switch c.SymlinkPolicy {
	case "resolve", "keep":
	default:
		return &ConfigError{Field: "symlinkPolicy", Message: "must be \"resolve\" or \"keep\""}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
