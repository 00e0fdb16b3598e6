// Package entity groups the declarations supplied by a front end into logical
// entities. A SymbolEntity aggregates every declaration of one symbol
// (overload signatures, merged interface blocks); a SyntheticEntity stands for
// a binding with no declaration body of its own, such as an import alias.
//
// Entities are built during a single analysis phase. Once the root of an
// entity tree is marked analyzed, no further declarations may be attached.
package entity

import (
	"github.com/jward/apisurface/internal/apierr"
)

// Declaration is one physical occurrence of an entity as supplied by the
// front end.
type Declaration interface {
	// SymbolKey identifies the symbol the declaration belongs to. Declarations
	// with equal keys realize the same entity.
	SymbolKey() string
	// LocalName is the declaration's name in its declaring scope.
	LocalName() string
	// AliasedFrom returns the module specifier when the declaration is an
	// import alias, or "".
	AliasedFrom() string
	// Nested returns the member declarations in source order.
	Nested() []Declaration
}

// Entity is a logical named construct tracked by the analysis pass.
type Entity interface {
	LocalName() string
}

// SymbolEntity is an entity backed by one or more declarations.
type SymbolEntity struct {
	localName    string
	nominal      bool
	parent       *SymbolEntity
	root         *SymbolEntity
	declarations []Declaration
	analyzed     bool
}

// NewSymbolEntity creates an entity. A nil parent makes the entity its own
// root. Nominal entities are opaque: their members are never analyzed.
func NewSymbolEntity(localName string, parent *SymbolEntity, nominal bool) *SymbolEntity {
	e := &SymbolEntity{localName: localName, nominal: nominal, parent: parent}
	if parent == nil {
		e.root = e
	} else {
		e.root = parent.root
	}
	return e
}

func (e *SymbolEntity) LocalName() string { return e.localName }

// Nominal reports whether the entity is an opaque foreign entity.
func (e *SymbolEntity) Nominal() bool { return e.nominal }

// Parent returns the containing entity, or nil for a top-level entity.
func (e *SymbolEntity) Parent() *SymbolEntity { return e.parent }

// Root returns the top-level ancestor, which is e itself when e has no parent.
func (e *SymbolEntity) Root() *SymbolEntity { return e.root }

// IsRoot reports whether e is a top-level entity.
func (e *SymbolEntity) IsRoot() bool { return e.root == e }

// Analyzed reports whether the entity's root has been sealed.
func (e *SymbolEntity) Analyzed() bool { return e.root.analyzed }

// Declarations returns the entity's declarations in attachment order.
func (e *SymbolEntity) Declarations() []Declaration {
	out := make([]Declaration, len(e.declarations))
	copy(out, e.declarations)
	return out
}

// AttachDeclaration appends d. It fails once the root is analyzed.
func (e *SymbolEntity) AttachDeclaration(d Declaration) error {
	if e.root.analyzed {
		return apierr.New(apierr.CodeAlreadyAnalyzed,
			"cannot attach declaration to %q: analysis is complete", e.localName)
	}
	e.declarations = append(e.declarations, d)
	return nil
}

// MarkAnalyzed seals the entity tree rooted at e. It may be called once, and
// only on a root.
func (e *SymbolEntity) MarkAnalyzed() error {
	if !e.IsRoot() {
		return apierr.New(apierr.CodeNotRoot, "entity %q is not a root", e.localName)
	}
	if e.analyzed {
		return apierr.New(apierr.CodeAlreadyAnalyzed, "entity %q was already marked analyzed", e.localName)
	}
	e.analyzed = true
	return nil
}

// ForEachDeclaration visits every declaration of e and, depth-first, every
// declaration nested beneath them, preserving declaration order. Returning
// false from fn stops the walk.
func (e *SymbolEntity) ForEachDeclaration(fn func(Declaration) bool) {
	for _, d := range e.declarations {
		if !walk(d, fn) {
			return
		}
	}
}

func walk(d Declaration, fn func(Declaration) bool) bool {
	if !fn(d) {
		return false
	}
	for _, child := range d.Nested() {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// SyntheticEntity is a binding without declarations, e.g. an import alias
// or a namespace re-export.
type SyntheticEntity struct {
	localName string
	specifier string
}

// NewSyntheticEntity creates a binding named localName that aliases the
// module identified by specifier (which may be empty).
func NewSyntheticEntity(localName, specifier string) *SyntheticEntity {
	return &SyntheticEntity{localName: localName, specifier: specifier}
}

func (e *SyntheticEntity) LocalName() string { return e.localName }

// Specifier returns the module specifier the binding refers to.
func (e *SyntheticEntity) Specifier() string { return e.specifier }
