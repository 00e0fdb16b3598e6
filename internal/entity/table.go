package entity

import (
	"fmt"
)

// Table assigns declarations to entities by symbol key. It owns every
// SymbolEntity created during an analysis pass.
type Table struct {
	byKey map[string]*SymbolEntity
	roots []*SymbolEntity
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{byKey: make(map[string]*SymbolEntity)}
}

// EntityFor returns the entity for d's symbol, creating it under parent on
// first sight, and attaches d to it. Nested declarations are registered
// beneath the entity recursively. All declarations of a symbol must share the
// same parent.
func (t *Table) EntityFor(d Declaration, parent *SymbolEntity) (*SymbolEntity, error) {
	key := d.SymbolKey()
	e, ok := t.byKey[key]
	if !ok {
		e = NewSymbolEntity(d.LocalName(), parent, false)
		t.byKey[key] = e
		if parent == nil {
			t.roots = append(t.roots, e)
		}
	} else if e.parent != parent {
		return nil, fmt.Errorf("entity: symbol %s declared under two parents", key)
	}
	if err := e.AttachDeclaration(d); err != nil {
		return nil, err
	}
	for _, child := range d.Nested() {
		if _, err := t.EntityFor(child, e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// NominalEntity returns the opaque entity registered under key, creating it
// when absent. Nominal entities never receive declarations.
func (t *Table) NominalEntity(key, localName string) *SymbolEntity {
	if e, ok := t.byKey[key]; ok {
		return e
	}
	e := NewSymbolEntity(localName, nil, true)
	t.byKey[key] = e
	t.roots = append(t.roots, e)
	return e
}

// Lookup returns the entity registered under key.
func (t *Table) Lookup(key string) (*SymbolEntity, bool) {
	e, ok := t.byKey[key]
	return e, ok
}

// Roots returns the top-level entities in creation order.
func (t *Table) Roots() []*SymbolEntity {
	out := make([]*SymbolEntity, len(t.roots))
	copy(out, t.roots)
	return out
}

// MarkAllAnalyzed seals every root that has not been sealed yet.
func (t *Table) MarkAllAnalyzed() error {
	for _, r := range t.roots {
		if r.analyzed {
			continue
		}
		if err := r.MarkAnalyzed(); err != nil {
			return err
		}
	}
	return nil
}
