package frontend

import (
	"strconv"

	"github.com/jward/apisurface/internal/entity"
	"github.com/jward/apisurface/internal/excerpt"
)

// Span is a byte range [Start, End) of a declaration's signature.
type Span struct {
	Start int
	End   int
}

// Parameter is a parameter of a function-like declaration. The span covers
// its type annotation and is empty when the parameter has none.
type Parameter struct {
	Name       string
	Start      int
	End        int
	IsOptional bool
}

// Reference is an identifier in the signature that names another
// declaration.
type Reference struct {
	Target string
	Span
}

// Declaration is one declaration of a module, with its members. It
// implements entity.Declaration.
type Declaration struct {
	ID         int64
	Name       string
	Kind       string
	Signature  string
	ReleaseTag string
	IsStatic   bool
	IsReadonly bool
	IsOptional bool
	IsExported bool
	// Alias is the module specifier of an "import x = require()" binding.
	Alias      string
	Line       int
	Parameters []Parameter
	ReturnType *Span
	References []Reference
	Members    []*Declaration

	module     string
	key        string
	parentKind string
}

// bind records the owning module and symbol key of d and its members.
func (d *Declaration) bind(module, key, parentKind string) {
	d.module = module
	d.key = key
	d.parentKind = parentKind
	for _, m := range d.Members {
		m.bind(module, key+"."+memberKey(m), d.Kind)
	}
}

// memberKey separates static and instance members of the same name and
// gives nameless signatures a key per kind.
func memberKey(d *Declaration) string {
	if d.Name == "" {
		return ":" + d.Kind
	}
	return d.Name + "|" + strconv.FormatBool(d.IsStatic)
}

// Module returns the path of the declaring module.
func (d *Declaration) Module() string { return d.module }

func (d *Declaration) SymbolKey() string   { return d.key }
func (d *Declaration) LocalName() string   { return d.Name }
func (d *Declaration) AliasedFrom() string { return d.Alias }

func (d *Declaration) Nested() []entity.Declaration {
	out := make([]entity.Declaration, len(d.Members))
	for i, m := range d.Members {
		out[i] = m
	}
	return out
}

// ExportedFromParent reports whether d is an exported member of a namespace.
// Class and interface members are never namespace exports.
func (d *Declaration) ExportedFromParent() bool {
	return d.parentKind == "namespace" && d.IsExported
}

// Tokens cuts the signature into excerpt tokens. Each parameter type and the
// return type get their own token range; references for which resolve returns
// a canonical reference become Reference tokens. It returns the tokens, the
// type range of each parameter in order, and the return type range (empty
// when there is none).
func (d *Declaration) Tokens(resolve func(Reference) string) ([]excerpt.Token, []excerpt.Range, excerpt.Range, error) {
	spans := make([]excerpt.Span, 0, len(d.Parameters)+len(d.References)+1)
	for _, p := range d.Parameters {
		spans = append(spans, excerpt.Span{Start: p.Start, End: p.End})
	}
	if d.ReturnType != nil {
		spans = append(spans, excerpt.Span{Start: d.ReturnType.Start, End: d.ReturnType.End})
	}
	for _, r := range d.References {
		canonical := ""
		if resolve != nil {
			canonical = resolve(r)
		}
		if canonical == "" {
			continue
		}
		spans = append(spans, excerpt.Span{Start: r.Start, End: r.End, CanonicalReference: canonical})
	}

	seq, ranges, err := excerpt.Tokenize(d.Signature, spans)
	if err != nil {
		return nil, nil, excerpt.Range{}, err
	}
	params := ranges[:len(d.Parameters)]
	var ret excerpt.Range
	if d.ReturnType != nil {
		ret = ranges[len(d.Parameters)]
	}
	return seq.Tokens(), params, ret, nil
}
