package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var exportsCmd = &cobra.Command{
	Use:   "exports [path]",
	Short: "List the exports reachable from the entry point",
	Long:  "Indexes the package directory and lists every export name of the entry module with the kind and module of the declaration it resolves to. External re-exports are listed with kind \"external\".",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExports,
}

func init() {
	exportsCmd.Flags().StringVar(&flagEntry, "entry", "", "entry module relative to the package directory (default: entry_point from config)")
}

func runExports(cmd *cobra.Command, args []string) error {
	dir, err := resolveTargetDir(args)
	if err != nil {
		return outputError(cmd, "exports", err)
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return outputError(cmd, "exports", err)
	}
	entry := cfg.EntryPoint
	if flagEntry != "" {
		entry = flagEntry
	}

	e, err := openEngine(dir, cfg)
	if err != nil {
		return outputError(cmd, "exports", err)
	}
	defer e.Close()

	exports, err := e.Exports(context.Background(), dir, entry)
	if err != nil {
		return outputError(cmd, "exports", fmt.Errorf("analyzing exports: %w", err))
	}
	count := len(exports)
	return outputResult(cmd, CLIResult{Command: "exports", Results: exports, TotalCount: &count})
}
