package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/apisurface"
)

var flagModels []string

var resolveCmd = &cobra.Command{
	Use:   "resolve <reference>...",
	Short: "Resolve declaration references against saved API models",
	Long:  "Loads one or more .api.json files and resolves each declaration reference, e.g. \"@acme/widgets#Widget.render:instance,1\". Unresolved references are reported with the failing segment; the command fails if any reference does not resolve.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringSliceVarP(&flagModels, "model", "m", nil, "API model file to load (repeatable)")
	_ = resolveCmd.MarkFlagRequired("model")
}

func runResolve(cmd *cobra.Command, args []string) error {
	m, err := apisurface.LoadModel(flagModels...)
	if err != nil {
		return outputError(cmd, "resolve", fmt.Errorf("loading models: %w", err))
	}

	results := apisurface.Resolve(m, args)
	out := make([]CLIResolution, len(results))
	failed := 0
	for i, r := range results {
		out[i] = resolutionToCLI(r)
		if !r.Resolved() {
			failed++
			logger.Debug("unresolved", "ref", r.Reference, "reason", r.Failure.Reason)
		}
	}
	if err := outputResult(cmd, CLIResult{Command: "resolve", Results: out}); err != nil {
		return err
	}
	if failed > 0 {
		errorHandled = true
		return fmt.Errorf("%d of %d reference(s) did not resolve", failed, len(results))
	}
	return nil
}

func resolutionToCLI(r apisurface.Result) CLIResolution {
	res := CLIResolution{Reference: r.Reference}
	if r.Item != nil {
		res.Kind = string(r.Item.Kind())
		res.Name = r.Item.DisplayName()
		res.Canonical = r.Item.CanonicalReference()
		res.Excerpt = r.Item.Excerpt().Text()
		return res
	}
	if r.Failure != nil {
		res.Failure = &CLIFailure{
			Reason:  string(r.Failure.Reason),
			Segment: r.Failure.Segment,
			Index:   r.Failure.Index,
			Message: r.Failure.Message,
		}
	}
	return res
}
