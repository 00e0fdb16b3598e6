package collector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisurface/internal/apierr"
	"github.com/jward/apisurface/internal/entity"
)

type fakeDecl struct {
	key      string
	name     string
	alias    string
	exported bool
	nested   []entity.Declaration
}

func (d *fakeDecl) SymbolKey() string            { return d.key }
func (d *fakeDecl) LocalName() string            { return d.name }
func (d *fakeDecl) AliasedFrom() string          { return d.alias }
func (d *fakeDecl) Nested() []entity.Declaration { return d.nested }
func (d *fakeDecl) ExportedFromParent() bool     { return d.exported }

func decl(module, name string, nested ...entity.Declaration) *fakeDecl {
	return &fakeDecl{key: module + ":" + name, name: name, nested: nested}
}

type fakeModule struct {
	path    string
	decls   []entity.Declaration
	exports []Export
	imports []Import
}

func (m *fakeModule) Path() string                       { return m.path }
func (m *fakeModule) Declarations() []entity.Declaration { return m.decls }
func (m *fakeModule) Exports() []Export                  { return m.exports }
func (m *fakeModule) Imports() []Import                  { return m.imports }

type fakeProgram map[string]*fakeModule

func (p fakeProgram) Module(path string) (Module, bool) {
	m, ok := p[path]
	if !ok {
		return nil, false
	}
	return m, true
}

func (p fakeProgram) ResolveModule(_, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") {
		return "", false
	}
	path := strings.TrimPrefix(specifier, "./") + ".ts"
	_, ok := p[path]
	return path, ok
}

func named(name, local string) Export { return Export{Kind: ExportNamed, Name: name, LocalName: local} }

func reexport(name, local, source string) Export {
	return Export{Kind: ExportNamed, Name: name, LocalName: local, Source: source}
}

func symbol(name string) *Entity { return NewEntity(entity.NewSymbolEntity(name, nil, false)) }

func TestEntity_ExportNameIdentity(t *testing.T) {
	e := symbol("Foo")
	assert.False(t, e.Exported())

	e.AddExportName("Foo")
	name, ok := e.SingleExportName()
	require.True(t, ok)
	assert.Equal(t, "Foo", name)

	e.AddExportName("Bar")
	e.AddExportName("Foo")
	assert.Equal(t, []string{"Bar", "Foo"}, e.ExportNames())
	_, ok = e.SingleExportName()
	assert.False(t, ok)
	assert.True(t, e.Exported())

	names := e.ExportNames()
	names[0] = "mutated"
	assert.Equal(t, []string{"Bar", "Foo"}, e.ExportNames())
}

func TestEntity_ConsumabilityPropagation(t *testing.T) {
	grandparent := symbol("Outer")
	parent := symbol("Inner")
	leaf := symbol("leaf")

	leaf.AddLocalExportName("leaf", parent)
	parent.AddLocalExportName("Inner", grandparent)

	assert.True(t, leaf.Exported())
	assert.False(t, leaf.Consumable())
	assert.False(t, parent.Consumable())

	grandparent.AddExportName("Outer")
	assert.True(t, grandparent.Consumable())
	assert.True(t, parent.Consumable())
	assert.True(t, leaf.Consumable())
	assert.Empty(t, leaf.ExportNames())
	assert.Equal(t, []string{"leaf"}, leaf.LocalExportNames(parent))
}

func TestEntity_ConsumableSharedAncestors(t *testing.T) {
	root := symbol("root")
	a := symbol("a")
	b := symbol("b")
	leaf := symbol("leaf")
	a.AddLocalExportName("a", root)
	b.AddLocalExportName("b", root)
	leaf.AddLocalExportName("x", a)
	leaf.AddLocalExportName("y", b)

	assert.False(t, leaf.Consumable())
	root.AddExportName("root")
	assert.True(t, leaf.Consumable())
	assert.Len(t, leaf.ExportParents(), 2)
}

func TestEntity_ConsumableCyclePanics(t *testing.T) {
	a := symbol("a")
	b := symbol("b")
	a.AddLocalExportName("a", b)
	b.AddLocalExportName("b", a)
	assert.Panics(t, func() { a.Consumable() })
}

func TestEntity_SelfParentPanics(t *testing.T) {
	a := symbol("a")
	assert.Panics(t, func() { a.AddLocalExportName("a", a) })
}

func TestSortKeyIgnoringUnderscore(t *testing.T) {
	assert.Equal(t, "foo*Foo!_", SortKeyIgnoringUnderscore("_Foo"))
	assert.Equal(t, "foo*Foo", SortKeyIgnoringUnderscore("Foo"))
	assert.Equal(t, "_foo*_Foo!_", SortKeyIgnoringUnderscore("__Foo"))
	assert.Less(t, SortKeyIgnoringUnderscore("Foo"), SortKeyIgnoringUnderscore("_Foo"))
	assert.Less(t, SortKeyIgnoringUnderscore("Foo"), SortKeyIgnoringUnderscore("FooBar"))
	assert.Less(t, SortKeyIgnoringUnderscore("_Foo"), SortKeyIgnoringUnderscore("FooBar"))
	assert.Less(t, SortKeyIgnoringUnderscore("bar"), SortKeyIgnoringUnderscore("Foo"))
}

func TestSortedEntities_UnderscoreNamesStayAdjacent(t *testing.T) {
	prog := fakeProgram{
		"index.ts": {
			path: "index.ts",
			decls: []entity.Declaration{
				decl("index.ts", "Widgets"),
				decl("index.ts", "_Widget"),
				decl("index.ts", "Widget_x"),
				decl("index.ts", "Widget"),
			},
			exports: []Export{
				named("Widgets", "Widgets"),
				named("_Widget", "_Widget"),
				named("Widget_x", "Widget_x"),
				named("Widget", "Widget"),
			},
		},
	}
	c := New()
	require.NoError(t, c.Analyze(prog, "index.ts"))

	var got []string
	for _, e := range c.SortedEntities() {
		got = append(got, e.LocalName())
	}
	assert.Equal(t, []string{"Widget", "_Widget", "Widget_x", "Widgets"}, got)
}

func TestEntity_SortKeyFollowsEmitName(t *testing.T) {
	e := symbol("_internal")
	assert.Equal(t, "internal*internal!_", e.SortKey())
	e.SetNameForEmit("Public")
	assert.Equal(t, "public*Public", e.SortKey())
	assert.Equal(t, "Public", e.NameForEmit())
}

func TestEntity_ShouldInlineExport(t *testing.T) {
	single := symbol("Widget")
	single.AddExportName("Widget")
	assert.True(t, single.ShouldInlineExport())

	single.SetNameForEmit("Widget_2")
	assert.False(t, single.ShouldInlineExport())

	def := symbol("Button")
	def.AddExportName(DefaultExportName)
	assert.False(t, def.ShouldInlineExport())

	multi := symbol("helper")
	multi.AddExportName("helper")
	multi.AddExportName("assist")
	assert.False(t, multi.ShouldInlineExport())

	alias := NewEntity(entity.NewSyntheticEntity("React", "react"))
	alias.AddExportName("React")
	assert.False(t, alias.ShouldInlineExport())
}

func sampleProgram() fakeProgram {
	geo := decl("index.ts", "Geo")
	origin := decl("index.ts", "Geo.origin")
	origin.name = "origin"
	origin.exported = true
	hidden := decl("index.ts", "Geo.hidden")
	hidden.name = "hidden"
	geo.nested = []entity.Declaration{origin, hidden}

	return fakeProgram{
		"index.ts": {
			path:  "index.ts",
			decls: []entity.Declaration{geo},
			imports: []Import{
				{Kind: ImportNamed, LocalName: "helper", ImportedName: "helper", Source: "./util"},
			},
			exports: []Export{
				reexport("Widget", "Widget", "./widget"),
				{Kind: ExportStar, Source: "./util"},
				{Kind: ExportNamespace, Name: "shapes", Source: "./shapes"},
				named("assist", "helper"),
				reexport("Button", DefaultExportName, "./button"),
				reexport("Component", "Component", "react"),
				named("Geo", "Geo"),
				named("missing", "missing"),
			},
		},
		"widget.ts": {
			path:    "widget.ts",
			decls:   []entity.Declaration{decl("widget.ts", "Widget")},
			exports: []Export{named("Widget", "Widget")},
		},
		"util.ts": {
			path:  "util.ts",
			decls: []entity.Declaration{decl("util.ts", "helper"), decl("util.ts", "format")},
			exports: []Export{
				named("helper", "helper"),
				named("format", "format"),
				named(DefaultExportName, "format"),
			},
		},
		"shapes.ts": {
			path:    "shapes.ts",
			decls:   []entity.Declaration{decl("shapes.ts", "Circle")},
			exports: []Export{named("Circle", "Circle")},
		},
		"button.ts": {
			path:    "button.ts",
			decls:   []entity.Declaration{decl("button.ts", "Button")},
			exports: []Export{named(DefaultExportName, "Button")},
		},
	}
}

func byLocalName(c *Collector) map[string]*Entity {
	out := make(map[string]*Entity)
	for _, e := range c.Entities() {
		out[e.LocalName()] = e
	}
	return out
}

func TestAnalyze(t *testing.T) {
	c := New()
	require.NoError(t, c.Analyze(sampleProgram(), "index.ts"))
	assert.Equal(t, "index.ts", c.EntryPath())

	var order []string
	for _, e := range c.Entities() {
		order = append(order, e.LocalName())
	}
	assert.Equal(t, []string{"Widget", "shapes", "helper", "Button", "Component", "Geo", "format", "Circle", "origin"}, order)

	ents := byLocalName(c)

	t.Run("re-export through import and star is one entity", func(t *testing.T) {
		assert.Equal(t, []string{"assist", "helper"}, ents["helper"].ExportNames())
	})

	t.Run("default export is renamed", func(t *testing.T) {
		assert.Equal(t, []string{"Button"}, ents["Button"].ExportNames())
		assert.Equal(t, []string{"format"}, ents["format"].ExportNames())
	})

	t.Run("external import is synthetic", func(t *testing.T) {
		syn, ok := ents["Component"].AstEntity().(*entity.SyntheticEntity)
		require.True(t, ok)
		assert.Equal(t, "react", syn.Specifier())
	})

	t.Run("namespace alias members", func(t *testing.T) {
		shapes := ents["shapes"]
		path, ok := c.NamespaceModule(shapes)
		require.True(t, ok)
		assert.Equal(t, "shapes.ts", path)

		circle := ents["Circle"]
		assert.Empty(t, circle.ExportNames())
		assert.Equal(t, []string{"Circle"}, circle.LocalExportNames(shapes))
		assert.True(t, circle.Consumable())
		assert.Equal(t, []*Entity{circle}, c.Children(shapes))
	})

	t.Run("namespace declaration members", func(t *testing.T) {
		geo := ents["Geo"]
		origin := ents["origin"]
		assert.Equal(t, []string{"origin"}, origin.LocalExportNames(geo))
		assert.True(t, origin.Consumable())

		hidden, ok := c.Table().Lookup("index.ts:Geo.hidden")
		require.True(t, ok)
		_, tracked := c.Lookup(hidden)
		assert.False(t, tracked)
	})

	t.Run("unresolved exports are reported", func(t *testing.T) {
		unresolved := c.Unresolved()
		require.Len(t, unresolved, 1)
		assert.Contains(t, unresolved[0], `"missing"`)
	})

	t.Run("table is sealed", func(t *testing.T) {
		for _, r := range c.Table().Roots() {
			assert.True(t, r.Analyzed(), r.LocalName())
		}
	})
}

func TestAnalyze_Twice(t *testing.T) {
	c := New()
	require.NoError(t, c.Analyze(sampleProgram(), "index.ts"))
	err := c.Analyze(sampleProgram(), "index.ts")
	assert.True(t, apierr.Is(err, apierr.CodeAlreadyAnalyzed))
}

func TestAnalyze_MissingEntry(t *testing.T) {
	c := New()
	assert.Error(t, c.Analyze(sampleProgram(), "nope.ts"))
}

func TestAnalyze_StarCycle(t *testing.T) {
	prog := fakeProgram{
		"a.ts": {
			path:    "a.ts",
			decls:   []entity.Declaration{decl("a.ts", "A")},
			exports: []Export{named("A", "A"), {Kind: ExportStar, Source: "./b"}},
		},
		"b.ts": {
			path:    "b.ts",
			decls:   []entity.Declaration{decl("b.ts", "B")},
			exports: []Export{named("B", "B"), {Kind: ExportStar, Source: "./a"}},
		},
	}
	c := New()
	require.NoError(t, c.Analyze(prog, "a.ts"))
	ents := byLocalName(c)
	require.Len(t, ents, 2)
	assert.Equal(t, []string{"A"}, ents["A"].ExportNames())
	assert.Equal(t, []string{"B"}, ents["B"].ExportNames())
}

func TestAnalyze_StarCycleNamespace(t *testing.T) {
	prog := fakeProgram{
		"a.ts": {
			path:  "a.ts",
			decls: []entity.Declaration{decl("a.ts", "A")},
			exports: []Export{
				named("A", "A"),
				{Kind: ExportStar, Source: "./b"},
				{Kind: ExportNamespace, Name: "bns", Source: "./b"},
			},
		},
		"b.ts": {
			path:    "b.ts",
			decls:   []entity.Declaration{decl("b.ts", "B")},
			exports: []Export{named("B", "B"), {Kind: ExportStar, Source: "./a"}},
		},
	}
	c := New()
	require.NoError(t, c.Analyze(prog, "a.ts"))
	ents := byLocalName(c)
	require.Contains(t, ents, "bns")

	var children []string
	for _, ch := range c.Children(ents["bns"]) {
		children = append(children, ch.LocalName())
	}
	assert.ElementsMatch(t, []string{"A", "B"}, children)
	assert.Equal(t, []string{"A"}, ents["A"].LocalExportNames(ents["bns"]))
	assert.Equal(t, []string{"B"}, ents["B"].LocalExportNames(ents["bns"]))
}

func TestAnalyze_NamespaceAliasCycle(t *testing.T) {
	prog := fakeProgram{
		"a.ts": {
			path:    "a.ts",
			exports: []Export{{Kind: ExportNamespace, Name: "b", Source: "./b"}},
		},
		"b.ts": {
			path:  "b.ts",
			decls: []entity.Declaration{decl("b.ts", "B")},
			exports: []Export{
				{Kind: ExportNamespace, Name: "a", Source: "./a"},
				named("B", "B"),
			},
		},
	}
	c := New()
	require.NoError(t, c.Analyze(prog, "a.ts"))
	ents := byLocalName(c)

	nsB := ents["b"]
	nsA := ents["a"]
	require.NotNil(t, nsB)
	require.NotNil(t, nsA)
	assert.Empty(t, nsB.ExportParents())
	assert.Equal(t, []*Entity{nsB}, nsA.ExportParents())
	assert.True(t, nsA.Consumable())
	assert.True(t, ents["B"].Consumable())
}

func TestAnalyze_AliasDeclaration(t *testing.T) {
	alias := decl("index.ts", "React")
	alias.alias = "react"
	prog := fakeProgram{
		"index.ts": {
			path:    "index.ts",
			decls:   []entity.Declaration{alias},
			exports: []Export{named("React", "React")},
		},
	}
	c := New()
	require.NoError(t, c.Analyze(prog, "index.ts"))
	ents := c.Entities()
	require.Len(t, ents, 1)
	syn, ok := ents[0].AstEntity().(*entity.SyntheticEntity)
	require.True(t, ok)
	assert.Equal(t, "react", syn.Specifier())
	assert.Empty(t, c.Table().Roots())
}

func TestAssignEmitNames(t *testing.T) {
	prog := fakeProgram{
		"index.ts": {
			path:  "index.ts",
			decls: []entity.Declaration{decl("index.ts", "Foo"), decl("index.ts", "Bar")},
			exports: []Export{
				reexport("Foo", "Foo", "./other"),
				named("X", "Foo"),
				named("Y", "Foo"),
				named(DefaultExportName, "Bar"),
			},
		},
		"other.ts": {
			path:    "other.ts",
			decls:   []entity.Declaration{decl("other.ts", "Foo")},
			exports: []Export{named("Foo", "Foo")},
		},
	}
	c := New()
	require.NoError(t, c.Analyze(prog, "index.ts"))
	c.AssignEmitNames()

	got := make(map[string]string)
	for _, e := range c.Entities() {
		got[strings.Join(e.ExportNames(), ",")] = e.NameForEmit()
	}
	assert.Equal(t, map[string]string{
		"Foo":     "Foo",
		"X,Y":     "Foo_2",
		"default": "Bar",
	}, got)

	var keys []string
	for _, e := range c.SortedEntities() {
		keys = append(keys, e.SortKey())
	}
	assert.Equal(t, []string{"bar*Bar", "foo*Foo", "foo_2*Foo_2"}, keys)
}

func TestResolveName(t *testing.T) {
	c := New()
	_, err := c.ResolveName("index.ts", "Geo")
	require.Error(t, err)

	require.NoError(t, c.Analyze(sampleProgram(), "index.ts"))
	ents := byLocalName(c)

	t.Run("local declaration", func(t *testing.T) {
		got, err := c.ResolveName("index.ts", "Geo")
		require.NoError(t, err)
		assert.Same(t, ents["Geo"].AstEntity(), got)
	})

	t.Run("import follows the source module", func(t *testing.T) {
		got, err := c.ResolveName("index.ts", "helper")
		require.NoError(t, err)
		assert.Same(t, ents["helper"].AstEntity(), got)
	})

	t.Run("unbound name", func(t *testing.T) {
		got, err := c.ResolveName("index.ts", "Nothing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown module", func(t *testing.T) {
		got, err := c.ResolveName("nope.ts", "Geo")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestResolveName_DoesNotGrowSealedTable(t *testing.T) {
	prog := fakeProgram{
		"index.ts": {
			path:  "index.ts",
			decls: []entity.Declaration{decl("index.ts", "Widget")},
			imports: []Import{
				{Kind: ImportNamed, LocalName: "Hidden", ImportedName: "Hidden", Source: "./internal"},
				{Kind: ImportNamespace, LocalName: "priv", Source: "./internal"},
			},
			exports: []Export{named("Widget", "Widget")},
		},
		"internal.ts": {
			path:    "internal.ts",
			decls:   []entity.Declaration{decl("internal.ts", "Hidden")},
			exports: []Export{named("Hidden", "Hidden")},
		},
	}
	c := New()
	require.NoError(t, c.Analyze(prog, "index.ts"))
	roots := len(c.Table().Roots())
	warnings := c.Unresolved()

	got, err := c.ResolveName("index.ts", "Hidden")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.ResolveName("index.ts", "priv")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.ResolveName("internal.ts", "Hidden")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Len(t, c.Table().Roots(), roots)
	for _, r := range c.Table().Roots() {
		assert.True(t, r.Analyzed(), r.LocalName())
	}
	_, ok := c.Table().Lookup("internal.ts:Hidden")
	assert.False(t, ok)
	assert.Equal(t, warnings, c.Unresolved())
}
