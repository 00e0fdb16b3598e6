package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jward/apisurface"
	"github.com/jward/apisurface/internal/config"
)

var (
	flagConfig  string
	flagDB      string
	flagFormat  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// logger is configured by the root command before any subcommand runs.
var logger = log.Default()

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "apisurface",
	Short:         "Extract the public API surface of a TypeScript package",
	Long:          "apisurface indexes TypeScript declaration files with tree-sitter, follows the export graph of the entry point and writes a JSON model of the package's public API.",
	Version:       apisurface.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		logger = newLogger(cmd.ErrOrStderr(), log.InfoLevel)
		if flagVerbose {
			logger.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: apisurface.toml in the project directory)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: db_path from config, relative to the project directory)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(exportsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the configuration for the project in dir and applies its
// log level unless --verbose is set.
func loadConfig(dir string) (*config.Config, error) {
	cfg, path, err := config.Load(config.LoadOptions{ConfigFilePath: flagConfig, Dir: dir})
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	if !flagVerbose {
		level, _ := cfg.Level()
		logger.SetLevel(level)
	}
	return cfg, nil
}

// openEngine opens the index database for the project in dir.
func openEngine(dir string, cfg *config.Config) (*apisurface.Engine, error) {
	dbPath := resolveDBPath(dir, cfg)
	scriptsDir := cfg.ScriptsDir
	if scriptsDir != "" && !filepath.IsAbs(scriptsDir) {
		scriptsDir = filepath.Join(dir, scriptsDir)
	}
	e, err := apisurface.New(dbPath, scriptsDir, apisurface.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if e.ScriptsChanged() {
		logger.Debug("extraction scripts changed, rebuilding index", "db", dbPath)
		e.Close()
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale database: %w", err)
		}
		if e, err = apisurface.New(dbPath, scriptsDir, apisurface.WithLogger(logger)); err != nil {
			return nil, fmt.Errorf("creating engine: %w", err)
		}
	}
	return e, nil
}

// resolveTargetDir returns the absolute path of the project directory.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// resolveDBPath returns the database path from the --db flag or the config.
// Relative paths are taken from the project directory.
func resolveDBPath(dir string, cfg *config.Config) string {
	p := cfg.DBPath
	if flagDB != "" {
		p = flagDB
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
