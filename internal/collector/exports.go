package collector

import (
	"fmt"

	"github.com/jward/apisurface/internal/entity"
)

// exportList is the resolved export table of one module in declaration
// order.
type exportList struct {
	order  []string
	byName map[string]entity.Entity
}

func newExportList() *exportList {
	return &exportList{byName: make(map[string]entity.Entity)}
}

// add keeps the first binding of a name.
func (l *exportList) add(name string, target entity.Entity) {
	if _, ok := l.byName[name]; ok {
		return
	}
	l.byName[name] = target
	l.order = append(l.order, name)
}

type moduleScope struct {
	locals  map[string]entity.Entity
	imports map[string]Import
}

// scope registers mod's top-level declarations with the entity table once
// and returns its local bindings.
func (c *Collector) scope(mod Module) (*moduleScope, error) {
	if s, ok := c.scopes[mod.Path()]; ok {
		return s, nil
	}
	s := &moduleScope{
		locals:  make(map[string]entity.Entity),
		imports: make(map[string]Import),
	}
	for _, d := range mod.Declarations() {
		if spec := d.AliasedFrom(); spec != "" {
			s.locals[d.LocalName()] = c.syntheticFor("alias\x00"+d.SymbolKey(), d.LocalName(), spec)
			continue
		}
		e, err := c.table.EntityFor(d, nil)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", mod.Path(), err)
		}
		s.locals[d.LocalName()] = e
	}
	for _, im := range mod.Imports() {
		s.imports[im.LocalName] = im
	}
	c.scopes[mod.Path()] = s
	return s, nil
}

// moduleExports resolves the export table of the module at path. Re-entering
// a module whose exports are being resolved yields an empty table, which cuts
// "export *" cycles. A table that lost entries to a cut above it on the
// resolution stack is returned but not cached.
func (c *Collector) moduleExports(path string) (*exportList, error) {
	if l, ok := c.exports[path]; ok {
		return l, nil
	}
	if depth, ok := c.resolving[path]; ok {
		c.cutAt = min(c.cutAt, depth)
		return newExportList(), nil
	}
	mod, ok := c.program.Module(path)
	if !ok {
		c.warnf("module %s is not available", path)
		return newExportList(), nil
	}
	depth := len(c.resolving)
	c.resolving[path] = depth
	defer delete(c.resolving, path)
	outer := c.cutAt
	c.cutAt = noCut

	list, err := c.buildExports(mod)
	if err != nil {
		return nil, err
	}
	if c.cutAt >= depth {
		c.exports[path] = list
		c.cutAt = outer
	} else {
		c.cutAt = min(outer, c.cutAt)
	}
	return list, nil
}

func (c *Collector) buildExports(mod Module) (*exportList, error) {
	path := mod.Path()
	s, err := c.scope(mod)
	if err != nil {
		return nil, err
	}
	list := newExportList()
	var stars []Export
	for _, ex := range mod.Exports() {
		switch ex.Kind {
		case ExportStar:
			stars = append(stars, ex)
		case ExportNamespace:
			list.add(ex.Name, c.namespaceFor(path, ex.Source, ex.Name))
		case ExportNamed:
			var target entity.Entity
			if ex.Source == "" {
				target, err = c.resolveLocal(mod, s, ex.LocalName)
			} else {
				target, err = c.resolveExportOf(path, ex.Source, ex.LocalName)
			}
			if err != nil {
				return nil, err
			}
			if target == nil {
				c.warnf("%s: export %q refers to unknown binding %q", path, ex.Name, ex.LocalName)
				continue
			}
			list.add(ex.Name, target)
		}
	}
	for _, ex := range stars {
		resolved, ok := c.program.ResolveModule(path, ex.Source)
		if !ok {
			c.warnf("%s: cannot enumerate exports of external module %q", path, ex.Source)
			continue
		}
		sub, err := c.moduleExports(resolved)
		if err != nil {
			return nil, err
		}
		for _, name := range sub.order {
			if name == DefaultExportName {
				continue
			}
			list.add(name, sub.byName[name])
		}
	}
	return list, nil
}

func (c *Collector) resolveLocal(mod Module, s *moduleScope, name string) (entity.Entity, error) {
	if e, ok := s.locals[name]; ok {
		return e, nil
	}
	im, ok := s.imports[name]
	if !ok {
		return nil, nil
	}
	switch im.Kind {
	case ImportNamespace:
		return c.namespaceFor(mod.Path(), im.Source, im.LocalName), nil
	case ImportDefault:
		return c.resolveExportOf(mod.Path(), im.Source, DefaultExportName)
	default:
		return c.resolveExportOf(mod.Path(), im.Source, im.ImportedName)
	}
}

// resolveExportOf finds the entity exported as name by the module that
// specifier refers to from fromPath. Names imported from modules outside the
// program become synthetic entities.
func (c *Collector) resolveExportOf(fromPath, specifier, name string) (entity.Entity, error) {
	resolved, ok := c.program.ResolveModule(fromPath, specifier)
	if !ok {
		return c.syntheticFor("external\x00"+specifier+"\x00"+name, name, specifier), nil
	}
	list, err := c.moduleExports(resolved)
	if err != nil {
		return nil, err
	}
	return list.byName[name], nil
}

// namespaceFor returns the alias entity for all exports of the module that
// specifier refers to. Every alias of one module is the same entity.
func (c *Collector) namespaceFor(fromPath, specifier, localName string) entity.Entity {
	resolved, ok := c.program.ResolveModule(fromPath, specifier)
	if !ok {
		return c.syntheticFor("external\x00"+specifier+"\x00*", localName, specifier)
	}
	key := "namespace\x00" + resolved
	if s, ok := c.synthetic[key]; ok {
		return s
	}
	s := c.syntheticFor(key, localName, specifier)
	c.namespaces[s] = resolved
	return s
}

func (c *Collector) syntheticFor(key, localName, specifier string) *entity.SyntheticEntity {
	if s, ok := c.synthetic[key]; ok {
		return s
	}
	s := entity.NewSyntheticEntity(localName, specifier)
	c.synthetic[key] = s
	return s
}

func (c *Collector) warnf(format string, args ...any) {
	c.unresolved = append(c.unresolved, fmt.Sprintf(format, args...))
}

// ResolveName returns the entity that name is bound to at the top level of
// the module at path, following imports. It returns nil when the name is not
// bound there. It must be called after Analyze and only sees modules and
// export tables Analyze resolved; it never registers entities or warnings.
func (c *Collector) ResolveName(path, name string) (entity.Entity, error) {
	if c.program == nil || !c.sealed {
		return nil, fmt.Errorf("resolve %q: collector has not analyzed a program", name)
	}
	s, ok := c.scopes[path]
	if !ok {
		return nil, nil
	}
	if e, ok := s.locals[name]; ok {
		return e, nil
	}
	im, ok := s.imports[name]
	if !ok {
		return nil, nil
	}
	resolved, internal := c.program.ResolveModule(path, im.Source)
	imported := im.ImportedName
	switch im.Kind {
	case ImportNamespace:
		key := "namespace\x00" + resolved
		if !internal {
			key = "external\x00" + im.Source + "\x00*"
		}
		return c.knownSynthetic(key), nil
	case ImportDefault:
		imported = DefaultExportName
	}
	if !internal {
		return c.knownSynthetic("external\x00" + im.Source + "\x00" + imported), nil
	}
	list, ok := c.exports[resolved]
	if !ok {
		return nil, nil
	}
	if e, ok := list.byName[imported]; ok {
		return e, nil
	}
	return nil, nil
}

// knownSynthetic returns the synthetic entity registered under key, or an
// untyped nil.
func (c *Collector) knownSynthetic(key string) entity.Entity {
	if s, ok := c.synthetic[key]; ok {
		return s
	}
	return nil
}
