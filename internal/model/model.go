package model

import (
	"fmt"
	"os"
	"strings"

	"github.com/jward/apisurface/internal/apierr"
)

// Model combines independently loaded packages.
type Model struct {
	root *Item

	// packagesByName maps scoped names, and unambiguous unscoped names, to
	// packages. nil means stale; AddPackage invalidates it.
	packagesByName map[string]*Item
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{root: MustNew(KindModel, Options{})}
}

// Packages returns the loaded packages in insertion order.
func (m *Model) Packages() []*Item { return m.root.Members() }

// AddPackage adds pkg. Two packages with the same scoped name are a data
// integrity error.
func (m *Model) AddPackage(pkg *Item) error {
	if pkg.kind != KindPackage {
		return apierr.New(apierr.CodeKindMismatch, "model cannot contain %s", pkg.kind)
	}
	for _, existing := range m.root.f.members {
		if existing.f.name == pkg.f.name {
			return apierr.New(apierr.CodeDuplicatePackage, "package %q is already loaded", pkg.f.name)
		}
	}
	if err := m.root.addMember(pkg); err != nil {
		return err
	}
	m.packagesByName = nil
	return nil
}

// LoadPackageFile reads a persisted package from path and adds it.
func (m *Model) LoadPackageFile(path string) (*Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	pkg, _, err := LoadPackage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.AddPackage(pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// TryGetPackageByName looks up a package by its exact scoped name, falling
// back to the unscoped form when exactly one loaded package has it.
// Ambiguous unscoped names resolve to nil.
func (m *Model) TryGetPackageByName(name string) *Item {
	if m.packagesByName == nil {
		m.packagesByName = m.buildPackageIndex()
	}
	return m.packagesByName[name]
}

// IsAmbiguousPackageName reports whether name is the unscoped form of two or
// more loaded packages and is not itself a loaded scoped name.
func (m *Model) IsAmbiguousPackageName(name string) bool {
	if m.TryGetPackageByName(name) != nil {
		return false
	}
	n := 0
	for _, pkg := range m.root.f.members {
		if _, unscoped := ParsePackageName(pkg.f.name); unscoped == name {
			n++
		}
	}
	return n > 1
}

func (m *Model) buildPackageIndex() map[string]*Item {
	index := make(map[string]*Item)
	ambiguous := make(map[string]bool)
	for _, pkg := range m.root.f.members {
		index[pkg.f.name] = pkg
	}
	for _, pkg := range m.root.f.members {
		scope, unscoped := ParsePackageName(pkg.f.name)
		if scope == "" || ambiguous[unscoped] {
			continue
		}
		if _, taken := index[unscoped]; taken {
			// Either another scoped package already claimed it or an
			// unscoped package has that exact name.
			if index[unscoped].f.name != unscoped {
				delete(index, unscoped)
				ambiguous[unscoped] = true
			}
			continue
		}
		index[unscoped] = pkg
	}
	return index
}

// ParsePackageName splits "@scope/name" into ("@scope", "name"). Unscoped
// names return an empty scope.
func ParsePackageName(name string) (scope, unscoped string) {
	if strings.HasPrefix(name, "@") {
		if i := strings.IndexByte(name, '/'); i > 0 {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}
