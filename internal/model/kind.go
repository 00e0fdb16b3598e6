package model

import "slices"

// Kind tags a node of the API model.
type Kind string

const (
	KindModel              Kind = "Model"
	KindPackage            Kind = "Package"
	KindEntryPoint         Kind = "EntryPoint"
	KindClass              Kind = "Class"
	KindInterface          Kind = "Interface"
	KindNamespace          Kind = "Namespace"
	KindEnum               Kind = "Enum"
	KindEnumMember         Kind = "EnumMember"
	KindFunction           Kind = "Function"
	KindMethod             Kind = "Method"
	KindMethodSignature    Kind = "MethodSignature"
	KindConstructor        Kind = "Constructor"
	KindConstructSignature Kind = "ConstructSignature"
	KindCallSignature      Kind = "CallSignature"
	KindIndexSignature     Kind = "IndexSignature"
	KindProperty           Kind = "Property"
	KindPropertySignature  Kind = "PropertySignature"
	KindVariable           Kind = "Variable"
	KindTypeAlias          Kind = "TypeAlias"
)

// Trait is a composable capability attached to a node kind.
type Trait int

const (
	TraitName Trait = iota + 1
	TraitReleaseTag
	TraitStatic
	TraitReadonly
	TraitParameterList
	TraitReturnType
	TraitItemContainer
	TraitDeclaration
)

var traitNames = map[Trait]string{
	TraitName:          "Name",
	TraitReleaseTag:    "ReleaseTag",
	TraitStatic:        "Static",
	TraitReadonly:      "Readonly",
	TraitParameterList: "ParameterList",
	TraitReturnType:    "ReturnType",
	TraitItemContainer: "ItemContainer",
	TraitDeclaration:   "Declaration",
}

func (t Trait) String() string {
	if s, ok := traitNames[t]; ok {
		return s
	}
	return "Unknown"
}

// kindDef fixes a kind's trait order and container constraints.
type kindDef struct {
	traits []Trait
	// memberKinds restricts what a container kind accepts; nil accepts any
	// non-structural kind.
	memberKinds []Kind
	// label is the selector used in canonical references for nameless or
	// named type-like kinds.
	label string
	// emptyName permits an empty Name trait value.
	emptyName bool
}

var (
	nameOnly      = []Trait{TraitName, TraitItemContainer}
	typeContainer = []Trait{TraitName, TraitReleaseTag, TraitItemContainer, TraitDeclaration}
)

// structuralKinds may only appear at fixed places in the tree.
var structuralKinds = []Kind{KindModel, KindPackage, KindEntryPoint}

var catalog = map[Kind]*kindDef{
	KindModel:      {traits: []Trait{TraitItemContainer}, memberKinds: []Kind{KindPackage}},
	KindPackage:    {traits: nameOnly, memberKinds: []Kind{KindEntryPoint}},
	KindEntryPoint: {traits: nameOnly, emptyName: true},
	KindClass:      {traits: typeContainer, label: "class"},
	KindInterface:  {traits: typeContainer, label: "interface"},
	KindNamespace:  {traits: typeContainer, label: "namespace"},
	KindEnum: {
		traits:      typeContainer,
		memberKinds: []Kind{KindEnumMember},
		label:       "enum",
	},
	KindEnumMember: {traits: []Trait{TraitName, TraitReleaseTag, TraitDeclaration}},
	KindFunction: {
		traits: []Trait{TraitName, TraitReleaseTag, TraitParameterList, TraitReturnType, TraitDeclaration},
	},
	KindMethod: {
		traits: []Trait{TraitName, TraitReleaseTag, TraitStatic, TraitParameterList, TraitReturnType, TraitDeclaration},
	},
	KindMethodSignature: {
		traits: []Trait{TraitName, TraitReleaseTag, TraitParameterList, TraitReturnType, TraitDeclaration},
	},
	KindConstructor: {
		traits: []Trait{TraitReleaseTag, TraitParameterList, TraitDeclaration},
		label:  "constructor",
	},
	KindConstructSignature: {
		traits: []Trait{TraitReleaseTag, TraitParameterList, TraitReturnType, TraitDeclaration},
		label:  "new",
	},
	KindCallSignature: {
		traits: []Trait{TraitReleaseTag, TraitParameterList, TraitReturnType, TraitDeclaration},
		label:  "call",
	},
	KindIndexSignature: {
		traits: []Trait{TraitReleaseTag, TraitReadonly, TraitParameterList, TraitReturnType, TraitDeclaration},
		label:  "index",
	},
	KindProperty: {
		traits: []Trait{TraitName, TraitReleaseTag, TraitStatic, TraitReadonly, TraitDeclaration},
	},
	KindPropertySignature: {
		traits: []Trait{TraitName, TraitReleaseTag, TraitReadonly, TraitDeclaration},
	},
	KindVariable: {
		traits: []Trait{TraitName, TraitReleaseTag, TraitReadonly, TraitDeclaration},
	},
	KindTypeAlias: {
		traits: []Trait{TraitName, TraitReleaseTag, TraitDeclaration},
		label:  "type",
	},
}

// Kinds returns every registered kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Valid reports whether k is a registered kind.
func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

// Traits returns the kind's traits in composition order.
func (k Kind) Traits() []Trait {
	def, ok := catalog[k]
	if !ok {
		return nil
	}
	return slices.Clone(def.traits)
}

// Has reports whether the kind carries trait t.
func (k Kind) Has(t Trait) bool {
	def, ok := catalog[k]
	return ok && slices.Contains(def.traits, t)
}

// Label returns the selector word used for the kind in canonical
// references, or "" when the kind is referenced by bare name.
func (k Kind) Label() string {
	if def, ok := catalog[k]; ok {
		return def.label
	}
	return ""
}

// KindForLabel maps a canonical-reference selector word back to a kind.
func KindForLabel(label string) (Kind, bool) {
	for k, def := range catalog {
		if def.label != "" && def.label == label {
			return k, true
		}
	}
	return "", false
}

// accepts reports whether a container of kind k may hold a member of kind m.
func (k Kind) accepts(m Kind) bool {
	def := catalog[k]
	if def.memberKinds != nil {
		return slices.Contains(def.memberKinds, m)
	}
	return !slices.Contains(structuralKinds, m)
}

// functionLike reports whether items of the kind are overloadable.
func (k Kind) functionLike() bool {
	return k.Has(TraitParameterList)
}
