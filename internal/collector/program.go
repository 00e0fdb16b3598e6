package collector

import "github.com/jward/apisurface/internal/entity"

// ExportKind distinguishes the forms of export statement.
type ExportKind int

const (
	// ExportNamed is "export { a as b }", "export { a as b } from 'm'", or an
	// exported declaration.
	ExportNamed ExportKind = iota
	// ExportStar is "export * from 'm'".
	ExportStar
	// ExportNamespace is "export * as ns from 'm'".
	ExportNamespace
)

func (k ExportKind) String() string {
	switch k {
	case ExportNamed:
		return "named"
	case ExportStar:
		return "star"
	case ExportNamespace:
		return "namespace"
	}
	return "unknown"
}

// Export is one export binding of a module.
type Export struct {
	Kind ExportKind
	// Name is the exported name. Empty for ExportStar.
	Name string
	// LocalName is the exported binding: a local declaration or import when
	// Source is empty, else a name exported by Source.
	LocalName string
	// Source is the module specifier of a re-export.
	Source string
}

// ImportKind distinguishes the forms of import binding.
type ImportKind int

const (
	ImportNamed ImportKind = iota
	ImportDefault
	ImportNamespace
)

func (k ImportKind) String() string {
	switch k {
	case ImportNamed:
		return "named"
	case ImportDefault:
		return "default"
	case ImportNamespace:
		return "namespace"
	}
	return "unknown"
}

// Import is one import binding of a module.
type Import struct {
	Kind         ImportKind
	LocalName    string
	ImportedName string
	Source       string
}

// Module is one source module as seen by the front end.
type Module interface {
	Path() string
	// Declarations returns the top-level declarations in source order.
	Declarations() []entity.Declaration
	Exports() []Export
	Imports() []Import
}

// Program is the set of modules available to an analysis pass.
type Program interface {
	Module(path string) (Module, bool)
	// ResolveModule maps a specifier written in fromPath to the path of an
	// available module. Specifiers of modules outside the program report
	// false.
	ResolveModule(fromPath, specifier string) (string, bool)
}

// NamespaceMember is implemented by nested declarations that may be exported
// from their enclosing namespace declaration.
type NamespaceMember interface {
	ExportedFromParent() bool
}
