package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisurface/internal/apierr"
	"github.com/jward/apisurface/internal/excerpt"
)

func fnTokens() []excerpt.Token {
	return []excerpt.Token{
		{Kind: excerpt.Content, Text: "render(target: "},
		{Kind: excerpt.Reference, Text: "Element", CanonicalReference: "dom!Element:interface"},
		{Kind: excerpt.Content, Text: "): "},
		{Kind: excerpt.Content, Text: "void"},
		{Kind: excerpt.Content, Text: ";"},
	}
}

func fnOptions(name string, static bool) Options {
	return Options{
		Name:            name,
		ReleaseTag:      ReleaseTagBeta,
		IsStatic:        static,
		Parameters:      []Parameter{{Name: "target", TypeRange: excerpt.Range{Start: 1, End: 2}}},
		ReturnTypeRange: excerpt.Range{Start: 3, End: 4},
		ExcerptTokens:   fnTokens(),
	}
}

// sampleItems returns one representative item per non-structural kind.
func sampleItems(t *testing.T) map[Kind]*Item {
	t.Helper()
	decl := []excerpt.Token{{Kind: excerpt.Content, Text: "declare const x: number;"}}
	items := map[Kind]*Item{
		KindFunction:           MustNew(KindFunction, Options{Name: "parse", OverloadIndex: 2, ExcerptTokens: fnTokens(), Parameters: []Parameter{{Name: "t", TypeRange: excerpt.Range{Start: 1, End: 2}, IsOptional: true}}}),
		KindMethod:             MustNew(KindMethod, fnOptions("render", true)),
		KindMethodSignature:    MustNew(KindMethodSignature, fnOptions("render", false)),
		KindConstructor:        MustNew(KindConstructor, Options{ReleaseTag: ReleaseTagInternal, ExcerptTokens: decl}),
		KindConstructSignature: MustNew(KindConstructSignature, Options{ExcerptTokens: fnTokens(), ReturnTypeRange: excerpt.Range{Start: 3, End: 4}}),
		KindCallSignature:      MustNew(KindCallSignature, Options{ExcerptTokens: fnTokens()}),
		KindIndexSignature:     MustNew(KindIndexSignature, Options{IsReadonly: true, ExcerptTokens: fnTokens(), ReturnTypeRange: excerpt.Range{Start: 1, End: 2}}),
		KindProperty:           MustNew(KindProperty, Options{Name: "size", IsStatic: true, IsReadonly: true, ExcerptTokens: decl}),
		KindPropertySignature:  MustNew(KindPropertySignature, Options{Name: "size", IsReadonly: true, ExcerptTokens: decl}),
		KindVariable:           MustNew(KindVariable, Options{Name: "x", ReleaseTag: ReleaseTagAlpha, IsReadonly: true, ExcerptTokens: decl}),
		KindTypeAlias:          MustNew(KindTypeAlias, Options{Name: "Id", ExcerptTokens: decl}),
		KindEnumMember:         MustNew(KindEnumMember, Options{Name: "Red", ExcerptTokens: decl}),
	}
	items[KindEnum] = MustNew(KindEnum, Options{Name: "Color", Members: []*Item{
		MustNew(KindEnumMember, Options{Name: "Red"}),
		MustNew(KindEnumMember, Options{Name: "Green"}),
	}})
	items[KindClass] = MustNew(KindClass, Options{Name: "Widget", ReleaseTag: ReleaseTagPublic, ExcerptTokens: decl, Members: []*Item{
		MustNew(KindConstructor, Options{}),
		MustNew(KindMethod, fnOptions("render", false)),
		MustNew(KindProperty, Options{Name: "id"}),
	}})
	items[KindInterface] = MustNew(KindInterface, Options{Name: "Options", Members: []*Item{
		MustNew(KindPropertySignature, Options{Name: "strict"}),
		MustNew(KindCallSignature, Options{}),
	}})
	items[KindNamespace] = MustNew(KindNamespace, Options{Name: "util", Members: []*Item{
		MustNew(KindFunction, Options{Name: "noop"}),
		MustNew(KindVariable, Options{Name: "version"}),
	}})
	return items
}

func assertSameObservableState(t *testing.T, want, got *Item) {
	t.Helper()
	assert.Equal(t, want.Kind(), got.Kind())
	assert.Equal(t, want.Name(), got.Name())
	assert.Equal(t, want.ReleaseTag(), got.ReleaseTag())
	assert.Equal(t, want.IsStatic(), got.IsStatic())
	assert.Equal(t, want.IsReadonly(), got.IsReadonly())
	assert.Equal(t, want.OverloadIndex(), got.OverloadIndex())
	assert.Equal(t, want.Parameters(), got.Parameters())
	assert.Equal(t, want.Excerpt().Tokens(), got.Excerpt().Tokens())
	assert.Equal(t, want.ReturnTypeExcerpt().Range(), got.ReturnTypeExcerpt().Range())
	assert.Equal(t, want.CanonicalReference(), got.CanonicalReference())
	wm, gm := want.Members(), got.Members()
	require.Len(t, gm, len(wm))
	for i := range wm {
		assertSameObservableState(t, wm[i], gm[i])
		assert.Same(t, got, gm[i].Parent())
	}
}

func TestRoundTrip_EveryKind(t *testing.T) {
	t.Parallel()

	items := sampleItems(t)
	for _, k := range Kinds() {
		if k == KindModel || k == KindPackage || k == KindEntryPoint {
			continue
		}
		it, ok := items[k]
		require.True(t, ok, "no sample for %s", k)
		t.Run(string(k), func(t *testing.T) {
			t.Parallel()
			data, err := Marshal(it)
			require.NoError(t, err)

			back, err := Unmarshal(data)
			require.NoError(t, err)
			assertSameObservableState(t, it, back)

			again, err := Marshal(back)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestSerialize_FieldPresenceFollowsTraits(t *testing.T) {
	t.Parallel()

	items := sampleItems(t)
	rec := serialize(items[KindVariable])
	assert.Contains(t, rec, "isReadonly")
	assert.NotContains(t, rec, "isStatic")
	assert.NotContains(t, rec, "parameters")
	assert.NotContains(t, rec, "members")

	rec = serialize(items[KindConstructor])
	assert.NotContains(t, rec, "name")
	assert.NotContains(t, rec, "returnTypeTokenRange")
	assert.Contains(t, rec, "parameters")
}

func TestDeserialize_MissingReleaseTagDefaults(t *testing.T) {
	t.Parallel()

	data := `{"kind":"Variable","name":"legacy","isReadonly":true,"excerptTokens":[]}`
	it, err := Unmarshal([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultReleaseTag, it.ReleaseTag())
	assert.True(t, it.IsReadonly())

	data = `{"kind":"Variable","name":"legacy","releaseTag":"None","excerptTokens":[]}`
	it, err = Unmarshal([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultReleaseTag, it.ReleaseTag())
}

func TestDeserialize_Malformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":        `{`,
		"unknown kind":    `{"kind":"Gadget","name":"x"}`,
		"missing name":    `{"kind":"Variable"}`,
		"bad release tag": `{"kind":"Variable","name":"x","releaseTag":"Stable"}`,
		"bad range":       `{"kind":"Function","name":"f","parameters":[{"parameterName":"a","parameterTypeTokenRange":{"startIndex":0,"endIndex":4}}],"excerptTokens":[]}`,
		"bad member kind": `{"kind":"Enum","name":"E","members":[{"kind":"Variable","name":"v"}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Unmarshal([]byte(data))
			require.Error(t, err)
			assert.True(t, apierr.Is(err, apierr.CodeMalformedModel), "got %v", err)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(KindClass, Options{})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidOptions))

	_, err = New(Kind("Gadget"), Options{Name: "x"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidOptions))

	_, err = New(KindFunction, Options{Name: "f", ReturnTypeRange: excerpt.Range{Start: 0, End: 1}})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidExcerpt))

	ep, err := New(KindEntryPoint, Options{})
	require.NoError(t, err)
	assert.Equal(t, "", ep.Name())
}

func TestParameterTypeExcerpt(t *testing.T) {
	t.Parallel()

	m := MustNew(KindMethod, fnOptions("render", false))
	ex, ok := m.ParameterTypeExcerpt(0)
	require.True(t, ok)
	assert.Equal(t, "Element", ex.Text())

	for _, i := range []int{-1, 1, 5} {
		ex, ok := m.ParameterTypeExcerpt(i)
		assert.False(t, ok, i)
		assert.Nil(t, ex, i)
	}

	_, ok = MustNew(KindVariable, Options{Name: "v"}).ParameterTypeExcerpt(0)
	assert.False(t, ok)
}

func TestOverloadIndexing(t *testing.T) {
	t.Parallel()

	class := MustNew(KindClass, Options{Name: "Parser"})
	var fs []*Item
	for i := 0; i < 3; i++ {
		m := MustNew(KindMethod, Options{Name: "f"})
		require.NoError(t, class.AddMember(m))
		fs = append(fs, m)
		// Unrelated siblings interleaved between overloads.
		require.NoError(t, class.AddMember(MustNew(KindMethod, Options{Name: "g"})))
		require.NoError(t, class.AddMember(MustNew(KindMethod, Options{Name: "f", IsStatic: true})))
	}

	for i, m := range fs {
		assert.Equal(t, i, m.OverloadIndex())
	}
	assert.Equal(t, "(f:instance,0)", fs[0].CanonicalReference())
	assert.Equal(t, "(f:instance,1)", fs[1].CanonicalReference())
	assert.Equal(t, "(f:instance,2)", fs[2].CanonicalReference())

	statics := class.FindMembersByName("f")
	require.Len(t, statics, 6)
	assert.Equal(t, "(f:static,0)", statics[1].CanonicalReference())
	assert.Equal(t, "(f:static,2)", statics[5].CanonicalReference())
}

func TestOverloadIndexing_NamelessSignatures(t *testing.T) {
	t.Parallel()

	iface := MustNew(KindInterface, Options{Name: "Factory"})
	c0 := MustNew(KindCallSignature, Options{})
	n0 := MustNew(KindConstructSignature, Options{})
	c1 := MustNew(KindCallSignature, Options{})
	for _, m := range []*Item{c0, n0, c1} {
		require.NoError(t, iface.AddMember(m))
	}
	assert.Equal(t, "(:call,0)", c0.CanonicalReference())
	assert.Equal(t, "(:new,0)", n0.CanonicalReference())
	assert.Equal(t, "(:call,1)", c1.CanonicalReference())
}

func TestCanonicalReference(t *testing.T) {
	t.Parallel()

	items := sampleItems(t)
	assert.Equal(t, "(Widget:class)", items[KindClass].CanonicalReference())
	assert.Equal(t, "(Options:interface)", items[KindInterface].CanonicalReference())
	assert.Equal(t, "(Color:enum)", items[KindEnum].CanonicalReference())
	assert.Equal(t, "(util:namespace)", items[KindNamespace].CanonicalReference())
	assert.Equal(t, "(Id:type)", items[KindTypeAlias].CanonicalReference())
	assert.Equal(t, "(parse:static,2)", items[KindFunction].CanonicalReference())
	assert.Equal(t, "(render:static,0)", items[KindMethod].CanonicalReference())
	assert.Equal(t, "x", items[KindVariable].CanonicalReference())
	assert.Equal(t, "size", items[KindPropertySignature].CanonicalReference())
}

func TestFullReference(t *testing.T) {
	t.Parallel()

	render := MustNew(KindMethod, Options{Name: "render"})
	widget := MustNew(KindClass, Options{Name: "Widget", Members: []*Item{render}})
	ep := MustNew(KindEntryPoint, Options{Members: []*Item{widget}})
	MustNew(KindPackage, Options{Name: "@ui/core", Members: []*Item{ep}})

	assert.Equal(t, "@ui/core!(Widget:class).(render:instance,0)", render.FullReference())
	assert.Equal(t, "@ui/core!(Widget:class)", widget.FullReference())
}

func TestAddMember_KindConstraints(t *testing.T) {
	t.Parallel()

	enum := MustNew(KindEnum, Options{Name: "E"})
	err := enum.AddMember(MustNew(KindVariable, Options{Name: "v"}))
	assert.True(t, apierr.Is(err, apierr.CodeKindMismatch))

	v := MustNew(KindVariable, Options{Name: "v"})
	err = v.AddMember(MustNew(KindVariable, Options{Name: "w"}))
	assert.True(t, apierr.Is(err, apierr.CodeKindMismatch))

	ns := MustNew(KindNamespace, Options{Name: "ns"})
	err = ns.AddMember(MustNew(KindPackage, Options{Name: "p"}))
	assert.True(t, apierr.Is(err, apierr.CodeKindMismatch))

	member := MustNew(KindEnumMember, Options{Name: "A"})
	require.NoError(t, enum.AddMember(member))
	other := MustNew(KindEnum, Options{Name: "F"})
	assert.True(t, apierr.Is(other.AddMember(member), apierr.CodeInvalidOptions))
}

func TestFindMembersByName_InvalidatedOnAdd(t *testing.T) {
	t.Parallel()

	ns := MustNew(KindNamespace, Options{Name: "ns"})
	require.NoError(t, ns.AddMember(MustNew(KindVariable, Options{Name: "a"})))
	assert.Len(t, ns.FindMembersByName("a"), 1)
	assert.Empty(t, ns.FindMembersByName("b"))

	require.NoError(t, ns.AddMember(MustNew(KindVariable, Options{Name: "b"})))
	assert.Len(t, ns.FindMembersByName("b"), 1)
}

func newPackage(name string) *Item {
	ep := MustNew(KindEntryPoint, Options{Members: []*Item{
		MustNew(KindVariable, Options{Name: "v"}),
	}})
	return MustNew(KindPackage, Options{Name: name, Members: []*Item{ep}})
}

func TestModel_TryGetPackageByName(t *testing.T) {
	t.Parallel()

	m := NewModel()
	one := newPackage("@scope1/foo")
	require.NoError(t, m.AddPackage(one))

	assert.Same(t, one, m.TryGetPackageByName("@scope1/foo"))
	assert.Same(t, one, m.TryGetPackageByName("foo"))

	two := newPackage("@scope2/foo")
	require.NoError(t, m.AddPackage(two))

	assert.Nil(t, m.TryGetPackageByName("foo"))
	assert.True(t, m.IsAmbiguousPackageName("foo"))
	assert.Same(t, two, m.TryGetPackageByName("@scope2/foo"))
	assert.Nil(t, m.TryGetPackageByName("bar"))
	assert.False(t, m.IsAmbiguousPackageName("bar"))

	assert.Equal(t, []*Item{one, two}, m.Packages())
}

func TestModel_UnscopedExactNameWins(t *testing.T) {
	t.Parallel()

	m := NewModel()
	plain := newPackage("foo")
	require.NoError(t, m.AddPackage(newPackage("@scope1/foo")))
	require.NoError(t, m.AddPackage(plain))

	assert.Same(t, plain, m.TryGetPackageByName("foo"))
}

func TestModel_DuplicatePackage(t *testing.T) {
	t.Parallel()

	m := NewModel()
	require.NoError(t, m.AddPackage(newPackage("@scope/foo")))
	err := m.AddPackage(newPackage("@scope/foo"))
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeDuplicatePackage))

	err = m.AddPackage(MustNew(KindVariable, Options{Name: "v"}))
	assert.True(t, apierr.Is(err, apierr.CodeKindMismatch))
}

func TestModel_PackagesOnlyThroughAddPackage(t *testing.T) {
	t.Parallel()

	m := NewModel()
	first := newPackage("@scope/foo")
	require.NoError(t, m.AddPackage(first))

	err := first.Parent().AddMember(newPackage("@scope/foo"))
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeKindMismatch))
	assert.Equal(t, []*Item{first}, m.Packages())

	_, err = New(KindModel, Options{Members: []*Item{newPackage("@scope/bar")}})
	assert.True(t, apierr.Is(err, apierr.CodeKindMismatch))
}

func TestSaveLoadPackage(t *testing.T) {
	t.Parallel()

	pkg := newPackage("@scope/foo")
	var buf bytes.Buffer
	require.NoError(t, SavePackage(&buf, pkg, Metadata{ToolPackage: "apisurface", ToolVersion: "test"}))

	var head map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &head))
	assert.Contains(t, head, "metadata")

	back, meta, err := LoadPackage(&buf)
	require.NoError(t, err)
	assert.Equal(t, "apisurface", meta.ToolPackage)
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)
	assertSameObservableState(t, pkg, back)
}

func TestLoadPackage_Failures(t *testing.T) {
	t.Parallel()

	_, _, err := LoadPackage(strings.NewReader(`{"kind":"Variable","name":"v"}`))
	assert.True(t, apierr.Is(err, apierr.CodeMalformedModel))

	_, _, err = LoadPackage(strings.NewReader(`not json`))
	assert.True(t, apierr.Is(err, apierr.CodeMalformedModel))

	_, _, err = LoadPackage(strings.NewReader(`{"kind":"Package","name":"p","metadata":{"schemaVersion":99},"members":[]}`))
	assert.True(t, apierr.Is(err, apierr.CodeUnsupportedSchema))

	pkg, meta, err := LoadPackage(strings.NewReader(`{"kind":"Package","name":"p","members":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "p", pkg.Name())
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)
}

func TestParsePackageName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, scope, name string }{
		{"@scope/foo", "@scope", "foo"},
		{"foo", "", "foo"},
		{"@broken", "", "@broken"},
	}
	for _, tt := range tests {
		scope, name := ParsePackageName(tt.in)
		assert.Equal(t, tt.scope, scope, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
	}
}

func TestReleaseTag(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"beta", "@beta", "Beta"} {
		tag, err := ParseReleaseTag(s)
		require.NoError(t, err)
		assert.Equal(t, ReleaseTagBeta, tag)
	}
	_, err := ParseReleaseTag("stable")
	assert.Error(t, err)
	assert.Negative(t, ReleaseTagAlpha.Compare(ReleaseTagPublic))
	assert.Equal(t, "@internal", ReleaseTagInternal.DocTag())
	assert.Equal(t, "Public", ReleaseTagPublic.String())
}

func TestKindTraits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Trait{TraitName, TraitReleaseTag, TraitStatic, TraitParameterList, TraitReturnType, TraitDeclaration},
		KindMethod.Traits())
	assert.True(t, KindProperty.Has(TraitStatic))
	assert.False(t, KindPropertySignature.Has(TraitStatic))
	k, ok := KindForLabel("interface")
	assert.True(t, ok)
	assert.Equal(t, KindInterface, k)
	assert.Equal(t, "ParameterList", TraitParameterList.String())
}
