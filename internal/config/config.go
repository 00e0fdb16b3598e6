// Package config loads apisurface settings from an optional TOML file and
// APISURFACE_* environment variables on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/jward/apisurface/internal/model"
)

const (
	// FileName is the config file looked up in the project directory.
	FileName = "apisurface.toml"
	// EnvPrefix prefixes environment overrides, e.g. APISURFACE_PACKAGE_NAME.
	EnvPrefix = "APISURFACE"
)

// Config holds every setting the CLI and engine read.
type Config struct {
	// PackageName names the generated package. Empty means the name field of
	// package.json, or the directory name.
	PackageName string `mapstructure:"package_name" toml:"package_name"`
	// EntryPoint is the entry module, relative to the project directory.
	EntryPoint string `mapstructure:"entry_point" toml:"entry_point"`
	// DBPath is the index database, relative to the project directory.
	DBPath string `mapstructure:"db_path" toml:"db_path"`
	// OutputDir receives <name>.api.json.
	OutputDir         string `mapstructure:"output_dir" toml:"output_dir"`
	MinimumReleaseTag string `mapstructure:"minimum_release_tag" toml:"minimum_release_tag"`
	LogLevel          string `mapstructure:"log_level" toml:"log_level"`
	// ScriptsDir overrides the embedded extraction scripts when set.
	ScriptsDir string `mapstructure:"scripts_dir" toml:"scripts_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		EntryPoint:        "index.d.ts",
		DBPath:            filepath.Join(".apisurface", "index.db"),
		OutputDir:         ".",
		MinimumReleaseTag: "none",
		LogLevel:          "info",
	}
}

// LoadOptions selects the config file.
type LoadOptions struct {
	// ConfigFilePath is used exclusively when set and must exist.
	ConfigFilePath string
	// Dir is searched for FileName when ConfigFilePath is empty.
	Dir string
}

// Load resolves the configuration. It returns the path of the file that was
// read, or "" when only defaults and the environment applied.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("package_name", defaults.PackageName)
	v.SetDefault("entry_point", defaults.EntryPoint)
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("minimum_release_tag", defaults.MinimumReleaseTag)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("scripts_dir", defaults.ScriptsDir)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		local := filepath.Join(opts.Dir, FileName)
		if fileExists(local) {
			resolvedPath = local
		}
	}
	if resolvedPath != "" {
		v.SetConfigFile(resolvedPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", resolvedPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if c.EntryPoint == "" {
		errs = append(errs, errors.New("entry_point must not be empty"))
	}
	if _, err := c.ReleaseTag(); err != nil {
		errs = append(errs, fmt.Errorf("minimum_release_tag: %w", err))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ReleaseTag parses MinimumReleaseTag.
func (c *Config) ReleaseTag() (model.ReleaseTag, error) {
	return model.ParseReleaseTag(c.MinimumReleaseTag)
}

// Level parses LogLevel.
func (c *Config) Level() (log.Level, error) {
	return log.ParseLevel(c.LogLevel)
}

// Encode renders c as TOML.
func Encode(c *Config) ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if fileExists(path) && !force {
		return fmt.Errorf("config file already exists: %s", path)
	}
	data, err := Encode(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
