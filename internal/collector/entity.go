// Package collector tracks how the entities of an analysis pass are exported
// from a package entry point. Each reachable entity gets one collector Entity
// recording the names it is exported under, both at the top level and through
// intermediate namespace-like parents, and the name a rollup should emit it as.
package collector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/apisurface/internal/entity"
)

// DefaultExportName is the placeholder name of a default export.
const DefaultExportName = "default"

// Entity wraps one analyzed entity with its export bookkeeping.
type Entity struct {
	ast entity.Entity

	exportNames map[string]struct{}
	// sortedExportNames is derived from exportNames; nil means stale.
	sortedExportNames []string
	singleExportName  string

	localExportNames map[*Entity]map[string]struct{}
	localParents     []*Entity

	nameForEmit string
	// sortKey is derived from nameForEmit or the local name; "" means stale.
	sortKey string
}

// NewEntity wraps ast.
func NewEntity(ast entity.Entity) *Entity {
	return &Entity{
		ast:              ast,
		exportNames:      make(map[string]struct{}),
		localExportNames: make(map[*Entity]map[string]struct{}),
	}
}

// AstEntity returns the wrapped entity.
func (e *Entity) AstEntity() entity.Entity { return e.ast }

// LocalName returns the wrapped entity's local name.
func (e *Entity) LocalName() string { return e.ast.LocalName() }

// AddExportName registers name as a top-level export name. Adding a name
// twice has no effect.
func (e *Entity) AddExportName(name string) {
	if _, ok := e.exportNames[name]; ok {
		return
	}
	e.exportNames[name] = struct{}{}
	e.sortedExportNames = nil
	if len(e.exportNames) == 1 {
		e.singleExportName = name
	} else {
		e.singleExportName = ""
	}
}

// AddLocalExportName registers name as the name under which e is exported
// from parent's own namespace. Top-level export names are not affected.
func (e *Entity) AddLocalExportName(name string, parent *Entity) {
	if parent == e {
		panic(fmt.Sprintf("collector: entity %q cannot be its own export parent", e.LocalName()))
	}
	names, ok := e.localExportNames[parent]
	if !ok {
		names = make(map[string]struct{})
		e.localExportNames[parent] = names
		e.localParents = append(e.localParents, parent)
	}
	names[name] = struct{}{}
}

// ExportNames returns the top-level export names in lexicographic order.
func (e *Entity) ExportNames() []string {
	if e.sortedExportNames == nil {
		e.sortedExportNames = sortedKeys(e.exportNames)
	}
	out := make([]string, len(e.sortedExportNames))
	copy(out, e.sortedExportNames)
	return out
}

// SingleExportName returns the export name when exactly one is registered.
func (e *Entity) SingleExportName() (string, bool) {
	if len(e.exportNames) != 1 {
		return "", false
	}
	return e.singleExportName, true
}

// LocalExportNames returns the names e is exported under from parent, sorted.
func (e *Entity) LocalExportNames(parent *Entity) []string {
	return sortedKeys(e.localExportNames[parent])
}

// ExportParents returns the parents e is locally exported from, in
// registration order.
func (e *Entity) ExportParents() []*Entity {
	out := make([]*Entity, 0, len(e.localParents))
	for _, p := range e.localParents {
		if len(e.localExportNames[p]) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Exported reports whether e has a top-level export name or is exported
// from some parent.
func (e *Entity) Exported() bool {
	if len(e.exportNames) > 0 {
		return true
	}
	return len(e.ExportParents()) > 0
}

// Consumable reports whether a consumer can reach e through a chain of
// exports starting at the entry point: e has a top-level export name, or it
// is exported from a parent that is itself consumable.
//
// The parent graph mirrors static containment and is acyclic; the builder
// maintains that. A cycle here is a bug and panics.
func (e *Entity) Consumable() bool {
	return e.consumable(make(map[*Entity]consumableState))
}

type consumableState uint8

const (
	stateVisiting consumableState = iota + 1
	stateYes
	stateNo
)

func (e *Entity) consumable(memo map[*Entity]consumableState) bool {
	switch memo[e] {
	case stateYes:
		return true
	case stateNo:
		return false
	case stateVisiting:
		panic(fmt.Sprintf("collector: export parent cycle through %q", e.LocalName()))
	}
	if len(e.exportNames) > 0 {
		memo[e] = stateYes
		return true
	}
	memo[e] = stateVisiting
	for _, p := range e.ExportParents() {
		if p.consumable(memo) {
			memo[e] = stateYes
			return true
		}
	}
	memo[e] = stateNo
	return false
}

// ShouldInlineExport reports whether a rollup may emit e with an inline
// "export" modifier instead of a separate export statement: e is backed by
// declarations, has exactly one export name that is not the default
// placeholder, and is not emitted under a different name.
func (e *Entity) ShouldInlineExport() bool {
	if _, ok := e.ast.(*entity.SymbolEntity); !ok {
		return false
	}
	name, ok := e.SingleExportName()
	if !ok || name == DefaultExportName {
		return false
	}
	return e.nameForEmit == "" || e.nameForEmit == name
}

// NameForEmit returns the assigned rollup name, or "".
func (e *Entity) NameForEmit() string { return e.nameForEmit }

// SetNameForEmit assigns the rollup name and invalidates the sort key.
func (e *Entity) SetNameForEmit(name string) {
	e.nameForEmit = name
	e.sortKey = ""
}

// SortKey orders entities for emission. It uses the emit name when set,
// else the local name, with a single leading underscore ignored so "_Widget"
// sorts right after "Widget".
func (e *Entity) SortKey() string {
	if e.sortKey == "" {
		name := e.nameForEmit
		if name == "" {
			name = e.ast.LocalName()
		}
		e.sortKey = SortKeyIgnoringUnderscore(name)
	}
	return e.sortKey
}

// SortKeyIgnoringUnderscore normalizes identifier for case-insensitive
// sorting: "Foo" becomes "foo*Foo" and "_Foo" becomes "foo*Foo!_". The
// separators sort below every identifier character, so a name always
// precedes its extensions and "_Foo" lands directly after "Foo".
func SortKeyIgnoringUnderscore(identifier string) string {
	if rest, ok := strings.CutPrefix(identifier, "_"); ok {
		return strings.ToLower(rest) + "*" + rest + "!_"
	}
	return strings.ToLower(identifier) + "*" + identifier
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
