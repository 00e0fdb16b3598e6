package collector

import (
	"fmt"
	"math"
	"sort"

	"github.com/jward/apisurface/internal/apierr"
	"github.com/jward/apisurface/internal/entity"
)

// Collector walks the export graph of an entry module and owns the
// collector entities of one analysis pass.
type Collector struct {
	table   *entity.Table
	program Program
	entry   string

	entities []*Entity
	byAst    map[entity.Entity]*Entity
	children map[*Entity][]*Entity
	expanded map[*Entity]bool

	scopes  map[string]*moduleScope
	exports map[string]*exportList
	// resolving maps the modules on the export resolution stack to their
	// depth. cutAt is the shallowest depth a cycle cut has hit while
	// resolving the current module, or noCut.
	resolving map[string]int
	cutAt     int

	synthetic map[string]*entity.SyntheticEntity
	// namespaces maps the synthetic entity of "export * as ns" or
	// "import * as ns" to the path of the module it stands for.
	namespaces map[*entity.SyntheticEntity]string

	unresolved []string
	sealed     bool
}

const noCut = math.MaxInt

// New returns a collector with an empty entity table.
func New() *Collector {
	return &Collector{
		table:      entity.NewTable(),
		byAst:      make(map[entity.Entity]*Entity),
		children:   make(map[*Entity][]*Entity),
		expanded:   make(map[*Entity]bool),
		scopes:     make(map[string]*moduleScope),
		exports:    make(map[string]*exportList),
		resolving:  make(map[string]int),
		cutAt:      noCut,
		synthetic:  make(map[string]*entity.SyntheticEntity),
		namespaces: make(map[*entity.SyntheticEntity]string),
	}
}

// Table returns the entity table populated by Analyze.
func (c *Collector) Table() *entity.Table { return c.table }

// EntryPath returns the analyzed entry module path.
func (c *Collector) EntryPath() string { return c.entry }

// Entities returns the collector entities in discovery order.
func (c *Collector) Entities() []*Entity {
	out := make([]*Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// SortedEntities returns the collector entities ordered by sort key.
func (c *Collector) SortedEntities() []*Entity {
	out := c.Entities()
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortKey() < out[j].SortKey() })
	return out
}

// Lookup returns the collector entity wrapping ast.
func (c *Collector) Lookup(ast entity.Entity) (*Entity, bool) {
	e, ok := c.byAst[ast]
	return e, ok
}

// Children returns the entities locally exported from parent, in discovery
// order.
func (c *Collector) Children(parent *Entity) []*Entity {
	out := make([]*Entity, len(c.children[parent]))
	copy(out, c.children[parent])
	return out
}

// NamespaceModule returns the module path a namespace alias entity stands
// for.
func (c *Collector) NamespaceModule(e *Entity) (string, bool) {
	s, ok := e.ast.(*entity.SyntheticEntity)
	if !ok {
		return "", false
	}
	path, ok := c.namespaces[s]
	return path, ok
}

// Unresolved returns descriptions of exports whose targets could not be
// found.
func (c *Collector) Unresolved() []string {
	out := make([]string, len(c.unresolved))
	copy(out, c.unresolved)
	return out
}

// Analyze resolves every export of the module at entryPath, registers the
// export names on the reachable entities, and seals the entity table. A
// collector analyzes exactly one entry point.
func (c *Collector) Analyze(p Program, entryPath string) error {
	if c.program != nil {
		return apierr.New(apierr.CodeAlreadyAnalyzed, "collector already analyzed %s", c.entry)
	}
	if _, ok := p.Module(entryPath); !ok {
		return fmt.Errorf("analyze: entry module %q not found", entryPath)
	}
	c.program = p
	c.entry = entryPath

	list, err := c.moduleExports(entryPath)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", entryPath, err)
	}
	for _, name := range list.order {
		ce := c.entityFor(list.byName[name])
		ce.AddExportName(name)
	}
	for _, name := range list.order {
		if err := c.expand(c.byAst[list.byName[name]]); err != nil {
			return fmt.Errorf("analyze %s: %w", entryPath, err)
		}
	}
	if err := c.table.MarkAllAnalyzed(); err != nil {
		return err
	}
	c.sealed = true
	return nil
}

// AssignEmitNames gives every entity a unique rollup name. An entity with a
// single non-default export name keeps it; the rest take their local name,
// suffixed "_2", "_3" and so on until unique.
func (c *Collector) AssignEmitNames() {
	used := make(map[string]bool)
	for _, e := range c.entities {
		if name, ok := e.SingleExportName(); ok && name != DefaultExportName {
			e.SetNameForEmit(name)
			used[name] = true
		}
	}
	for _, e := range c.entities {
		if name, ok := e.SingleExportName(); ok && name != DefaultExportName {
			continue
		}
		base := e.LocalName()
		name := base
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		e.SetNameForEmit(name)
		used[name] = true
	}
}

func (c *Collector) entityFor(ast entity.Entity) *Entity {
	if e, ok := c.byAst[ast]; ok {
		return e
	}
	e := NewEntity(ast)
	c.byAst[ast] = e
	c.entities = append(c.entities, e)
	return e
}

// expand registers the local exports of a namespace-like entity: the
// exported members of a namespace declaration, or the exports of the module
// behind a namespace alias.
func (c *Collector) expand(parent *Entity) error {
	if c.expanded[parent] {
		return nil
	}
	c.expanded[parent] = true

	switch ast := parent.ast.(type) {
	case *entity.SyntheticEntity:
		path, ok := c.namespaces[ast]
		if !ok {
			return nil
		}
		list, err := c.moduleExports(path)
		if err != nil {
			return err
		}
		for _, name := range list.order {
			child := c.entityFor(list.byName[name])
			if c.link(child, name, parent) {
				if err := c.expand(child); err != nil {
					return err
				}
			}
		}
	case *entity.SymbolEntity:
		for _, d := range ast.Declarations() {
			for _, n := range d.Nested() {
				m, ok := n.(NamespaceMember)
				if !ok || !m.ExportedFromParent() {
					continue
				}
				se, ok := c.table.Lookup(n.SymbolKey())
				if !ok {
					continue
				}
				child := c.entityFor(se)
				if c.link(child, n.LocalName(), parent) {
					if err := c.expand(child); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// link records child as exported from parent under name. Links that would
// close a cycle in the parent graph are refused.
func (c *Collector) link(child *Entity, name string, parent *Entity) bool {
	if child == parent || c.isAncestor(child, parent, make(map[*Entity]bool)) {
		return false
	}
	if len(child.localExportNames[parent]) == 0 {
		c.children[parent] = append(c.children[parent], child)
	}
	child.AddLocalExportName(name, parent)
	return true
}

// isAncestor reports whether candidate is reachable from e by following
// export parents.
func (c *Collector) isAncestor(candidate, e *Entity, seen map[*Entity]bool) bool {
	for _, p := range e.ExportParents() {
		if p == candidate {
			return true
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		if c.isAncestor(candidate, p, seen) {
			return true
		}
	}
	return false
}
