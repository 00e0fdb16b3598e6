package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/apisurface"
	"github.com/jward/apisurface/internal/model"
)

var (
	flagEntry         string
	flagPackage       string
	flagOutput        string
	flagMinReleaseTag string
)

var extractCmd = &cobra.Command{
	Use:   "extract [path]",
	Short: "Write the API model of a package",
	Long:  "Indexes the package directory, walks the exports of its entry point and writes <name>.api.json to the output directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&flagEntry, "entry", "", "entry module relative to the package directory (default: entry_point from config)")
	extractCmd.Flags().StringVar(&flagPackage, "package", "", "package name (default: name field of package.json)")
	extractCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output directory (default: output_dir from config)")
	extractCmd.Flags().StringVar(&flagMinReleaseTag, "min-release-tag", "", "drop items less stable than this tag: none|internal|alpha|beta|public")
}

func runExtract(cmd *cobra.Command, args []string) error {
	dir, err := resolveTargetDir(args)
	if err != nil {
		return outputError(cmd, "extract", err)
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return outputError(cmd, "extract", err)
	}
	opts, err := extractOptions(dir, cfg.EntryPoint, cfg.PackageName, cfg.OutputDir, cfg.MinimumReleaseTag)
	if err != nil {
		return outputError(cmd, "extract", err)
	}

	e, err := openEngine(dir, cfg)
	if err != nil {
		return outputError(cmd, "extract", err)
	}
	defer e.Close()

	p := newProgress(logger)
	res, err := e.Extract(context.Background(), opts)
	if err != nil {
		return outputError(cmd, "extract", fmt.Errorf("extracting: %w", err))
	}
	p.done(fmt.Sprintf("Extracted %s", res.Package.Name()))

	return outputResult(cmd, CLIResult{Command: "extract", Results: summarize(res)})
}

// extractOptions merges flags over config values.
func extractOptions(dir, entry, pkg, output, minTag string) (apisurface.ExtractOptions, error) {
	if flagEntry != "" {
		entry = flagEntry
	}
	if flagPackage != "" {
		pkg = flagPackage
	}
	if flagOutput != "" {
		output = flagOutput
	}
	if flagMinReleaseTag != "" {
		minTag = flagMinReleaseTag
	}
	tag, err := model.ParseReleaseTag(minTag)
	if err != nil {
		return apisurface.ExtractOptions{}, fmt.Errorf("invalid release tag: %w", err)
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(dir, output)
	}
	return apisurface.ExtractOptions{
		Root:              dir,
		EntryPoint:        entry,
		PackageName:       pkg,
		MinimumReleaseTag: tag,
		OutputDir:         output,
	}, nil
}

func summarize(res *apisurface.ExtractResult) CLIExtractSummary {
	s := CLIExtractSummary{
		Package:  res.Package.Name(),
		Path:     res.Path,
		Warnings: res.Warnings,
	}
	for _, ep := range res.Package.Members() {
		for _, it := range ep.Members() {
			s.Items = append(s.Items, CLIItem{
				Name:       it.DisplayName(),
				Kind:       string(it.Kind()),
				ReleaseTag: it.ReleaseTag().String(),
				Reference:  it.CanonicalReference(),
				Members:    len(it.Members()),
			})
		}
	}
	return s
}
