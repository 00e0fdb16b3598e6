// Package builder generates the API model of one entry point from an analyzed
// collector. Every consumable entity exported from the entry module becomes
// one or more items of the entry point; namespaces, classes, interfaces and
// enums carry their members.
package builder

import (
	"fmt"
	"sort"

	"github.com/jward/apisurface/internal/apierr"
	"github.com/jward/apisurface/internal/collector"
	"github.com/jward/apisurface/internal/entity"
	"github.com/jward/apisurface/internal/excerpt"
	"github.com/jward/apisurface/internal/frontend"
	"github.com/jward/apisurface/internal/model"
)

// Options configures a build.
type Options struct {
	// PackageName names the Package item. Required.
	PackageName string
	// MinimumReleaseTag drops items less stable than the given tag.
	// ReleaseTagNone keeps everything.
	MinimumReleaseTag model.ReleaseTag
}

// Builder turns collector output into model items.
type Builder struct {
	c        *collector.Collector
	opts     Options
	refs     map[entity.Entity]string
	active   map[*collector.Entity]bool
	warnings []string
}

// New returns a builder over an analyzed collector.
func New(c *collector.Collector, opts Options) *Builder {
	return &Builder{
		c:      c,
		opts:   opts,
		refs:   make(map[entity.Entity]string),
		active: make(map[*collector.Entity]bool),
	}
}

// Build is shorthand for New(c, opts).Build().
func Build(c *collector.Collector, opts Options) (*model.Item, error) {
	return New(c, opts).Build()
}

// Warnings returns the exports and declarations skipped by Build.
func (b *Builder) Warnings() []string {
	out := make([]string, len(b.warnings))
	copy(out, b.warnings)
	return out
}

type export struct {
	name string
	ce   *collector.Entity
}

// Build returns the Package item with a single unnamed EntryPoint.
func (b *Builder) Build() (*model.Item, error) {
	if b.opts.PackageName == "" {
		return nil, apierr.New(apierr.CodeInvalidOptions, "build: package name is required")
	}
	if b.c.EntryPath() == "" {
		return nil, apierr.New(apierr.CodeInvalidOptions, "build: collector has not analyzed an entry point")
	}

	pkg, err := model.New(model.KindPackage, model.Options{Name: b.opts.PackageName})
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	ep, err := model.New(model.KindEntryPoint, model.Options{})
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if err := pkg.AddMember(ep); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	exports := b.topLevelExports()
	b.assignReferences(exports)
	for _, ex := range exports {
		items, err := b.entityItems(ex.ce, ex.name, model.ReleaseTagNone)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", ex.name, err)
		}
		for _, it := range items {
			if err := ep.AddMember(it); err != nil {
				return nil, fmt.Errorf("build %s: %w", ex.name, err)
			}
		}
	}
	return pkg, nil
}

// topLevelExports lists every export name of the entry module, ordered by
// name with leading underscores ignored.
func (b *Builder) topLevelExports() []export {
	var out []export
	for _, ce := range b.c.Entities() {
		if !ce.Consumable() {
			continue
		}
		for _, name := range ce.ExportNames() {
			out = append(out, export{name: name, ce: ce})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ki := collector.SortKeyIgnoringUnderscore(out[i].name)
		kj := collector.SortKeyIgnoringUnderscore(out[j].name)
		if ki != kj {
			return ki < kj
		}
		return out[i].name < out[j].name
	})
	return out
}

// assignReferences computes the canonical reference of the first item each
// top-level entity will produce, so signatures can link to it.
func (b *Builder) assignReferences(exports []export) {
	for _, ex := range exports {
		ast := ex.ce.AstEntity()
		if _, done := b.refs[ast]; done {
			continue
		}
		component := ""
		switch e := ast.(type) {
		case *entity.SyntheticEntity:
			if _, ok := b.c.NamespaceModule(ex.ce); ok {
				component = fmt.Sprintf("(%s:%s)", ex.name, model.KindNamespace.Label())
			}
		case *entity.SymbolEntity:
			component = b.symbolComponent(e, ex.name)
		}
		if component != "" {
			b.refs[ast] = b.opts.PackageName + "!" + component
		}
	}
}

func (b *Builder) symbolComponent(e *entity.SymbolEntity, name string) string {
	if e.Nominal() {
		return ""
	}
	for _, raw := range e.Declarations() {
		d, ok := raw.(*frontend.Declaration)
		if !ok {
			return ""
		}
		kind, ok := declarationKind(d.Kind)
		if !ok || b.trimmed(resolveTag(d.ReleaseTag, model.ReleaseTagNone)) {
			continue
		}
		switch {
		case kind.Has(model.TraitParameterList):
			return fmt.Sprintf("(%s:static,0)", name)
		case kind.Label() != "":
			return fmt.Sprintf("(%s:%s)", name, kind.Label())
		}
		return name
	}
	return ""
}

// resolver maps signature references written in module to canonical
// references of exported items.
func (b *Builder) resolver(module string) func(frontend.Reference) string {
	return func(r frontend.Reference) string {
		target, err := b.c.ResolveName(module, r.Target)
		if err != nil || target == nil {
			return ""
		}
		return b.refs[target]
	}
}

// entityItems builds the items one export name of ce produces.
func (b *Builder) entityItems(ce *collector.Entity, name string, inherited model.ReleaseTag) ([]*model.Item, error) {
	if b.active[ce] {
		return nil, fmt.Errorf("export graph cycle through %q", name)
	}
	b.active[ce] = true
	defer delete(b.active, ce)

	switch ast := ce.AstEntity().(type) {
	case *entity.SyntheticEntity:
		if _, ok := b.c.NamespaceModule(ce); !ok {
			b.warnf("skipping %q: declared by external module %q", name, ast.Specifier())
			return nil, nil
		}
		return b.namespaceAlias(ce, name, inherited)
	case *entity.SymbolEntity:
		if ast.Nominal() {
			return nil, nil
		}
		return b.symbolItems(ce, ast, name, inherited)
	}
	return nil, fmt.Errorf("unsupported entity type %T", ce.AstEntity())
}

// namespaceAlias builds the namespace item of "export * as ns" or of an
// imported namespace that is re-exported.
func (b *Builder) namespaceAlias(ce *collector.Entity, name string, inherited model.ReleaseTag) ([]*model.Item, error) {
	tag := resolveTag("", inherited)
	if b.trimmed(tag) {
		return nil, nil
	}
	ns, err := model.New(model.KindNamespace, model.Options{
		Name:       name,
		ReleaseTag: tag,
		ExcerptTokens: []excerpt.Token{
			{Kind: excerpt.Content, Text: "declare namespace " + name},
		},
	})
	if err != nil {
		return nil, err
	}
	if err := b.addChildren(ns, ce, tag); err != nil {
		return nil, err
	}
	return []*model.Item{ns}, nil
}

// addChildren adds the entities locally exported from parent.
func (b *Builder) addChildren(container *model.Item, parent *collector.Entity, tag model.ReleaseTag) error {
	for _, child := range b.c.Children(parent) {
		for _, name := range child.LocalExportNames(parent) {
			items, err := b.entityItems(child, name, tag)
			if err != nil {
				return err
			}
			for _, it := range items {
				if err := container.AddMember(it); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// symbolItems builds one item per declaration, except that declarations of
// the same container kind merge into a single item.
func (b *Builder) symbolItems(ce *collector.Entity, se *entity.SymbolEntity, name string, inherited model.ReleaseTag) ([]*model.Item, error) {
	var out []*model.Item
	containers := make(map[model.Kind]*model.Item)
	for _, raw := range se.Declarations() {
		d, ok := raw.(*frontend.Declaration)
		if !ok {
			return nil, fmt.Errorf("unsupported declaration type %T", raw)
		}
		kind, ok := declarationKind(d.Kind)
		if !ok {
			b.warnf("%s: skipping %s declaration of %q", d.Module(), d.Kind, name)
			continue
		}

		if existing, ok := containers[kind]; ok {
			if kind != model.KindNamespace {
				if err := b.addMembers(existing, d, existing.ReleaseTag()); err != nil {
					return nil, err
				}
			}
			continue
		}

		tag := resolveTag(d.ReleaseTag, inherited)
		if b.trimmed(tag) {
			continue
		}
		it, err := b.declarationItem(d, kind, name, tag)
		if err != nil {
			return nil, err
		}
		switch kind {
		case model.KindNamespace:
			containers[kind] = it
			if err := b.addChildren(it, ce, tag); err != nil {
				return nil, err
			}
		case model.KindClass, model.KindInterface, model.KindEnum:
			containers[kind] = it
			if err := b.addMembers(it, d, tag); err != nil {
				return nil, err
			}
		}
		out = append(out, it)
	}
	return out, nil
}

// addMembers adds the members of a class, interface or enum declaration.
func (b *Builder) addMembers(container *model.Item, d *frontend.Declaration, tag model.ReleaseTag) error {
	for _, m := range d.Members {
		kind, ok := declarationKind(m.Kind)
		if !ok {
			b.warnf("%s: skipping %s member of %q", d.Module(), m.Kind, d.Name)
			continue
		}
		mtag := resolveTag(m.ReleaseTag, tag)
		if b.trimmed(mtag) {
			continue
		}
		it, err := b.declarationItem(m, kind, m.Name, mtag)
		if err != nil {
			return err
		}
		if err := container.AddMember(it); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) declarationItem(d *frontend.Declaration, kind model.Kind, name string, tag model.ReleaseTag) (*model.Item, error) {
	tokens, ranges, ret, err := d.Tokens(b.resolver(d.Module()))
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidExcerpt, err, "%s: %s %q", d.Module(), d.Kind, name)
	}
	params := make([]model.Parameter, len(d.Parameters))
	for i, p := range d.Parameters {
		params[i] = model.Parameter{Name: p.Name, TypeRange: ranges[i], IsOptional: p.IsOptional}
	}
	return model.New(kind, model.Options{
		Name:            name,
		ReleaseTag:      tag,
		IsStatic:        d.IsStatic,
		IsReadonly:      d.IsReadonly,
		Parameters:      params,
		ReturnTypeRange: ret,
		ExcerptTokens:   tokens,
	})
}

func (b *Builder) trimmed(tag model.ReleaseTag) bool {
	floor := b.opts.MinimumReleaseTag
	return floor != model.ReleaseTagNone && tag.Compare(floor) < 0
}

func (b *Builder) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// resolveTag parses a doc comment tag. Untagged declarations inherit from
// their container, and top-level ones default to public.
func resolveTag(raw string, inherited model.ReleaseTag) model.ReleaseTag {
	tag, err := model.ParseReleaseTag(raw)
	if err == nil && tag != model.ReleaseTagNone {
		return tag
	}
	if inherited != model.ReleaseTagNone {
		return inherited
	}
	return model.DefaultReleaseTag
}
