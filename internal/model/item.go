// Package model is the declarative API model: a tree of typed items, each
// kind assembled from a fixed, ordered set of capability traits. Items
// produce bit-stable canonical references and serialize to a JSON record
// that round-trips losslessly.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/apisurface/internal/apierr"
	"github.com/jward/apisurface/internal/excerpt"
)

// Parameter is one entry of a ParameterList trait.
type Parameter struct {
	Name       string
	TypeRange  excerpt.Range
	IsOptional bool
}

// Options is the combined construction input of every trait. Each trait
// reads only its own fields; fields of traits the kind lacks are ignored.
type Options struct {
	// Name
	Name string
	// ReleaseTag
	ReleaseTag ReleaseTag
	// Static
	IsStatic bool
	// Readonly
	IsReadonly bool
	// ParameterList
	Parameters    []Parameter
	OverloadIndex int
	// ReturnType
	ReturnTypeRange excerpt.Range
	// ItemContainer
	Members []*Item
	// Declaration
	ExcerptTokens []excerpt.Token
}

// fields is the record shared by a node's traits.
type fields struct {
	name          string
	releaseTag    ReleaseTag
	isStatic      bool
	isReadonly    bool
	parameters    []Parameter
	overloadIndex int
	returnType    excerpt.Range
	members       []*Item
	tokens        *excerpt.Sequence
}

// Item is a node of the API model.
type Item struct {
	kind   Kind
	f      fields
	parent *Item

	// byName is derived from f.members; nil means stale.
	byName map[string][]*Item
}

// New constructs an item of kind k. Each of the kind's traits validates and
// consumes its options in the kind's trait order.
func New(k Kind, opts Options) (*Item, error) {
	def, ok := catalog[k]
	if !ok {
		return nil, apierr.New(apierr.CodeInvalidOptions, "unknown item kind %q", k)
	}
	it := &Item{kind: k}
	for _, t := range def.traits {
		if err := traitImpls[t].extract(it, &opts); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// MustNew is like New but panics on error. Intended for tests and static
// fixtures.
func MustNew(k Kind, opts Options) *Item {
	it, err := New(k, opts)
	if err != nil {
		panic(err)
	}
	return it
}

func (it *Item) Kind() Kind { return it.kind }

// Parent returns the containing item, or nil.
func (it *Item) Parent() *Item { return it.parent }

// Name returns the Name trait value, or "" for nameless kinds.
func (it *Item) Name() string { return it.f.name }

// DisplayName is the name used in reports; nameless kinds use their label.
func (it *Item) DisplayName() string {
	if it.kind.Has(TraitName) {
		return it.f.name
	}
	return "(" + it.kind.Label() + ")"
}

func (it *Item) ReleaseTag() ReleaseTag { return it.f.releaseTag }
func (it *Item) IsStatic() bool         { return it.f.isStatic }
func (it *Item) IsReadonly() bool       { return it.f.isReadonly }
func (it *Item) OverloadIndex() int     { return it.f.overloadIndex }

// Parameters returns a copy of the parameter list.
func (it *Item) Parameters() []Parameter {
	out := make([]Parameter, len(it.f.parameters))
	copy(out, it.f.parameters)
	return out
}

// Members returns the contained items in insertion order.
func (it *Item) Members() []*Item {
	out := make([]*Item, len(it.f.members))
	copy(out, it.f.members)
	return out
}

// Excerpt returns the full declaration excerpt. Items without the
// Declaration trait return an empty excerpt.
func (it *Item) Excerpt() *excerpt.Excerpt {
	return excerpt.Whole(it.f.tokens)
}

// ReturnTypeExcerpt returns the excerpt of the return type.
func (it *Item) ReturnTypeExcerpt() *excerpt.Excerpt {
	ex, err := excerpt.New(it.f.tokens, it.f.returnType)
	if err != nil {
		// Ranges are validated at construction.
		panic(err)
	}
	return ex
}

// ParameterTypeExcerpt returns the type excerpt of parameter i. It reports
// false when the item has no parameter i.
func (it *Item) ParameterTypeExcerpt(i int) (*excerpt.Excerpt, bool) {
	if i < 0 || i >= len(it.f.parameters) {
		return nil, false
	}
	ex, err := excerpt.New(it.f.tokens, it.f.parameters[i].TypeRange)
	if err != nil {
		panic(err)
	}
	return ex, true
}

// AddMember appends m to the container, taking ownership of it. Function-like
// members are assigned an overload index: the count of earlier siblings with
// the same name, staticness and kind family.
// A model's packages are added through Model.AddPackage.
func (it *Item) AddMember(m *Item) error {
	if it.kind == KindModel {
		return apierr.New(apierr.CodeKindMismatch, "packages are added to a model with AddPackage")
	}
	return it.addMember(m)
}

func (it *Item) addMember(m *Item) error {
	if !it.kind.Has(TraitItemContainer) {
		return apierr.New(apierr.CodeKindMismatch, "%s is not a container", it.kind)
	}
	if !it.kind.accepts(m.kind) {
		return apierr.New(apierr.CodeKindMismatch, "%s cannot contain %s", it.kind, m.kind)
	}
	if m.parent != nil {
		return apierr.New(apierr.CodeInvalidOptions, "%s %q already belongs to a container", m.kind, m.DisplayName())
	}
	if m.kind.functionLike() {
		key := overloadKey(m)
		n := 0
		for _, sib := range it.f.members {
			if sib.kind.functionLike() && overloadKey(sib) == key {
				n++
			}
		}
		m.f.overloadIndex = n
	}
	m.parent = it
	it.f.members = append(it.f.members, m)
	it.byName = nil
	return nil
}

func overloadKey(it *Item) string {
	name := it.f.name
	if !it.kind.Has(TraitName) {
		name = ":" + it.kind.Label()
	}
	return name + "|" + strconv.FormatBool(it.f.isStatic)
}

// FindMembersByName returns the members named name in insertion order. The
// name index is built on first use and rebuilt after AddMember.
func (it *Item) FindMembersByName(name string) []*Item {
	if it.byName == nil {
		it.byName = make(map[string][]*Item, len(it.f.members))
		for _, m := range it.f.members {
			it.byName[m.f.name] = append(it.byName[m.f.name], m)
		}
	}
	return it.byName[name]
}

// CanonicalReference returns the item's own reference component:
//
//	(name:static,N) / (name:instance,N)   methods and functions
//	(:constructor,N), (:call,N), ...      nameless signatures
//	(name:class), (name:interface), ...   type-like declarations
//	name                                  variables, properties, enum members
func (it *Item) CanonicalReference() string {
	switch {
	case it.kind == KindModel:
		return ""
	case it.kind == KindPackage || it.kind == KindEntryPoint:
		return it.f.name
	case it.kind.functionLike() && !it.kind.Has(TraitName):
		return fmt.Sprintf("(:%s,%d)", it.kind.Label(), it.f.overloadIndex)
	case it.kind.functionLike():
		return fmt.Sprintf("(%s:%s,%d)", it.f.name, it.Scope(), it.f.overloadIndex)
	case it.kind.Label() != "":
		return fmt.Sprintf("(%s:%s)", it.f.name, it.kind.Label())
	}
	return it.f.name
}

// Scope returns "static" or "instance" for named function-like items and ""
// otherwise. Top-level functions are static.
func (it *Item) Scope() string {
	if !it.kind.functionLike() || !it.kind.Has(TraitName) {
		return ""
	}
	if it.f.isStatic || it.kind == KindFunction {
		return "static"
	}
	return "instance"
}

// FullReference joins the canonical references from the package down to it:
// "pkg!(Widget:class).(render:instance,0)". Entry points contribute nothing
// when unnamed.
func (it *Item) FullReference() string {
	var parts []string
	pkg := ""
	for cur := it; cur != nil; cur = cur.parent {
		switch cur.kind {
		case KindModel:
		case KindPackage:
			pkg = cur.f.name
		case KindEntryPoint:
			if cur.f.name != "" {
				parts = append(parts, cur.f.name)
			}
		default:
			parts = append(parts, cur.CanonicalReference())
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return pkg + "!" + strings.Join(parts, ".")
}
