package apisurface

import (
	"github.com/jward/apisurface/internal/declref"
	"github.com/jward/apisurface/internal/entity"
	"github.com/jward/apisurface/internal/model"
	"github.com/jward/apisurface/internal/store"
)

// Public aliases for internal types that appear in the Engine API.

type Store = store.Store
type Item = model.Item
type Model = model.Model
type ReleaseTag = model.ReleaseTag
type Result = declref.Result
type SymbolEntity = entity.SymbolEntity
type SyntheticEntity = entity.SyntheticEntity

// DefaultEntryPoint is the entry module used when none is configured.
const DefaultEntryPoint = "index.d.ts"

// ExtractOptions configures Engine.Extract.
type ExtractOptions struct {
	// Root is the project directory to index.
	Root string
	// EntryPoint is the entry module relative to Root. Defaults to
	// DefaultEntryPoint.
	EntryPoint string
	// PackageName names the package. Empty reads package.json in Root.
	PackageName string
	// MinimumReleaseTag drops less stable items.
	MinimumReleaseTag ReleaseTag
	// OutputDir receives <name>.api.json. Empty skips writing.
	OutputDir string
}

// ExtractResult is the outcome of Engine.Extract.
type ExtractResult struct {
	Package *Item
	// Path is the written model file, or "" when nothing was written.
	Path string
	// Warnings lists unresolved exports and skipped declarations.
	Warnings []string
}

// ExportInfo describes one export name of the entry module.
type ExportInfo struct {
	Name       string `json:"name"`
	LocalName  string `json:"localName"`
	EmitName   string `json:"emitName"`
	Kind       string `json:"kind"`
	Module     string `json:"module"`
	Consumable bool   `json:"consumable"`
}
