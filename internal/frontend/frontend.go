// Package frontend turns the rows written by the extraction scripts into the
// program view the collector analyzes. Every indexed TypeScript file becomes a
// Module; its declarations carry their signature text together with the byte
// spans needed to cut it into excerpt tokens.
package frontend

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/apisurface/internal/collector"
	"github.com/jward/apisurface/internal/entity"
	"github.com/jward/apisurface/internal/runtime"
	"github.com/jward/apisurface/internal/store"
)

// Source is the subset of the store the front end reads.
type Source interface {
	FilesByLanguage(language string) ([]*store.File, error)
	DeclarationsByFile(fileID int64) ([]*store.Declaration, error)
	SpansByDeclaration(declarationID int64) ([]*store.DeclarationSpan, error)
	ExportsByFile(fileID int64) ([]*store.Export, error)
	ImportsByFile(fileID int64) ([]*store.Import, error)
}

// Program is the set of indexed modules. It implements collector.Program.
type Program struct {
	modules  map[string]*Module
	order    []string
	warnings []string
}

// NewProgram returns a program over mods. A later module with the same path
// replaces an earlier one.
func NewProgram(mods ...*Module) *Program {
	p := &Program{modules: make(map[string]*Module)}
	for _, m := range mods {
		if _, ok := p.modules[m.path]; !ok {
			p.order = append(p.order, m.path)
		}
		p.modules[m.path] = m
	}
	return p
}

// Load reads every TypeScript file in src into a program. Rows the front end
// cannot interpret are skipped and reported by Warnings.
func Load(src Source) (*Program, error) {
	files, err := src.FilesByLanguage(runtime.Language)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	p := NewProgram()
	for _, f := range files {
		m, warnings, err := loadModule(src, f)
		if err != nil {
			return nil, fmt.Errorf("load program: %s: %w", f.Path, err)
		}
		p.warnings = append(p.warnings, warnings...)
		p.order = append(p.order, m.path)
		p.modules[m.path] = m
	}
	return p, nil
}

// Module implements collector.Program.
func (p *Program) Module(path string) (collector.Module, bool) {
	m, ok := p.modules[path]
	if !ok {
		return nil, false
	}
	return m, true
}

// Lookup returns the module at path.
func (p *Program) Lookup(path string) (*Module, bool) {
	m, ok := p.modules[path]
	return m, ok
}

// Modules returns the modules in load order.
func (p *Program) Modules() []*Module {
	out := make([]*Module, 0, len(p.order))
	for _, path := range p.order {
		out = append(out, p.modules[path])
	}
	return out
}

// Paths returns the module paths sorted lexically.
func (p *Program) Paths() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	sort.Strings(out)
	return out
}

// Warnings returns the rows skipped while loading.
func (p *Program) Warnings() []string {
	out := make([]string, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// resolveSuffixes are tried in order after the bare specifier.
var resolveSuffixes = []string{
	".ts", ".tsx", ".d.ts", ".mts", ".cts",
	"/index.ts", "/index.tsx", "/index.d.ts",
}

// ResolveModule implements collector.Program. Only relative specifiers can
// name indexed modules; package specifiers are always external. A ".js"
// extension is also tried as its TypeScript source.
func (p *Program) ResolveModule(fromPath, specifier string) (string, bool) {
	if !isRelative(specifier) {
		return "", false
	}
	base := filepath.Join(filepath.Dir(fromPath), filepath.FromSlash(specifier))
	candidates := []string{base}
	for _, suffix := range resolveSuffixes {
		candidates = append(candidates, base+filepath.FromSlash(suffix))
	}
	for _, ext := range []string{".js", ".mjs", ".cjs"} {
		if trimmed, ok := strings.CutSuffix(base, ext); ok {
			candidates = append(candidates, trimmed+".ts", trimmed+".tsx", trimmed+".d.ts")
		}
	}
	for _, c := range candidates {
		if _, ok := p.modules[c]; ok {
			return c, true
		}
	}
	return "", false
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// Module is one indexed file. It implements collector.Module.
type Module struct {
	path    string
	decls   []*Declaration
	exports []collector.Export
	imports []collector.Import
}

// NewModule assembles a module and assigns symbol keys to decls and their
// members.
func NewModule(path string, decls []*Declaration, exports []collector.Export, imports []collector.Import) *Module {
	m := &Module{path: path, decls: decls, exports: exports, imports: imports}
	for _, d := range decls {
		d.bind(path, path+"#"+d.Name, "")
	}
	return m
}

func (m *Module) Path() string { return m.path }

// Declarations implements collector.Module.
func (m *Module) Declarations() []entity.Declaration {
	out := make([]entity.Declaration, len(m.decls))
	for i, d := range m.decls {
		out[i] = d
	}
	return out
}

// TopLevel returns the module's top-level declarations in source order.
func (m *Module) TopLevel() []*Declaration {
	out := make([]*Declaration, len(m.decls))
	copy(out, m.decls)
	return out
}

func (m *Module) Exports() []collector.Export {
	out := make([]collector.Export, len(m.exports))
	copy(out, m.exports)
	return out
}

func (m *Module) Imports() []collector.Import {
	out := make([]collector.Import, len(m.imports))
	copy(out, m.imports)
	return out
}

func loadModule(src Source, f *store.File) (*Module, []string, error) {
	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, f.Path+": "+fmt.Sprintf(format, args...))
	}

	rows, err := src.DeclarationsByFile(f.ID)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]*Declaration, len(rows))
	var top []*Declaration
	// Rows are ordered by id, so a parent is always seen before its members.
	for _, row := range rows {
		d, err := declarationFromRow(src, row)
		if err != nil {
			return nil, nil, err
		}
		byID[row.ID] = d
		if row.ParentID == nil {
			top = append(top, d)
			continue
		}
		parent, ok := byID[*row.ParentID]
		if !ok {
			warnf("declaration %q has unknown parent %d", row.Name, *row.ParentID)
			continue
		}
		parent.Members = append(parent.Members, d)
	}

	exportRows, err := src.ExportsByFile(f.ID)
	if err != nil {
		return nil, nil, err
	}
	var exports []collector.Export
	for _, row := range exportRows {
		ex := collector.Export{Name: row.ExportedName, LocalName: row.LocalName, Source: row.Source}
		switch row.Kind {
		case store.ExportNamed:
			ex.Kind = collector.ExportNamed
		case store.ExportStar:
			ex.Kind = collector.ExportStar
		case store.ExportNamespace:
			ex.Kind = collector.ExportNamespace
		default:
			warnf("unknown export kind %q", row.Kind)
			continue
		}
		exports = append(exports, ex)
	}

	importRows, err := src.ImportsByFile(f.ID)
	if err != nil {
		return nil, nil, err
	}
	var imports []collector.Import
	for _, row := range importRows {
		im := collector.Import{LocalName: row.LocalName, ImportedName: row.ImportedName, Source: row.Source}
		switch row.Kind {
		case store.ImportNamed:
			im.Kind = collector.ImportNamed
		case store.ImportDefault:
			im.Kind = collector.ImportDefault
		case store.ImportNamespace:
			im.Kind = collector.ImportNamespace
		default:
			warnf("unknown import kind %q", row.Kind)
			continue
		}
		imports = append(imports, im)
	}

	return NewModule(f.Path, top, exports, imports), warnings, nil
}

func declarationFromRow(src Source, row *store.Declaration) (*Declaration, error) {
	d := &Declaration{
		ID:         row.ID,
		Name:       row.Name,
		Kind:       row.Kind,
		Signature:  row.Signature,
		ReleaseTag: row.ReleaseTag,
		IsStatic:   row.IsStatic,
		IsReadonly: row.IsReadonly,
		IsOptional: row.IsOptional,
		IsExported: row.IsExported,
		Alias:      row.AliasedFrom,
		Line:       row.StartLine,
	}
	spans, err := src.SpansByDeclaration(row.ID)
	if err != nil {
		return nil, err
	}
	for _, sp := range spans {
		switch sp.Role {
		case store.SpanParameter:
			d.Parameters = append(d.Parameters, Parameter{
				Name: sp.Name, Start: sp.StartByte, End: sp.EndByte, IsOptional: sp.IsOptional,
			})
		case store.SpanReturnType:
			d.ReturnType = &Span{Start: sp.StartByte, End: sp.EndByte}
		case store.SpanReference:
			d.References = append(d.References, Reference{
				Target: sp.Target, Span: Span{Start: sp.StartByte, End: sp.EndByte},
			})
		}
	}
	return d, nil
}
