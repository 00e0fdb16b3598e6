package model

import (
	"encoding/json"
	"fmt"

	"github.com/jward/apisurface/internal/apierr"
	"github.com/jward/apisurface/internal/excerpt"
)

// record is the serialized form of an item under construction. Each trait
// appends its own keys.
type record map[string]any

// rawRecord is a decoded but not yet interpreted record.
type rawRecord map[string]json.RawMessage

// traitImpl is the behavior of one capability trait. extract validates and
// copies the trait's options into the item, write appends the trait's
// fields to a record, and read is the inverse of write.
type traitImpl struct {
	extract func(it *Item, o *Options) error
	write   func(it *Item, rec record)
	read    func(rec rawRecord, o *Options) error
}

var traitImpls map[Trait]traitImpl

func init() {
	traitImpls = map[Trait]traitImpl{
		TraitName:          nameTrait,
		TraitReleaseTag:    releaseTagTrait,
		TraitStatic:        staticTrait,
		TraitReadonly:      readonlyTrait,
		TraitParameterList: parameterListTrait,
		TraitReturnType:    returnTypeTrait,
		TraitItemContainer: itemContainerTrait,
		TraitDeclaration:   declarationTrait,
	}
}

// readField decodes rec[key] into dst when present. Missing keys leave dst
// untouched.
func readField(rec rawRecord, key string, dst any) error {
	raw, ok := rec[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

var nameTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		if o.Name == "" && !catalog[it.kind].emptyName {
			return apierr.New(apierr.CodeInvalidOptions, "%s requires a name", it.kind)
		}
		it.f.name = o.Name
		return nil
	},
	write: func(it *Item, rec record) {
		rec["name"] = it.f.name
	},
	read: func(rec rawRecord, o *Options) error {
		return readField(rec, "name", &o.Name)
	},
}

var releaseTagTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		tag := o.ReleaseTag
		if tag < ReleaseTagNone || tag > ReleaseTagPublic {
			return apierr.New(apierr.CodeInvalidOptions, "invalid release tag %d", int(tag))
		}
		if tag == ReleaseTagNone {
			tag = DefaultReleaseTag
		}
		it.f.releaseTag = tag
		return nil
	},
	write: func(it *Item, rec record) {
		rec["releaseTag"] = it.f.releaseTag.String()
	},
	read: func(rec rawRecord, o *Options) error {
		var s string
		if err := readField(rec, "releaseTag", &s); err != nil {
			return err
		}
		tag, err := ParseReleaseTag(s)
		if err != nil {
			return err
		}
		o.ReleaseTag = tag
		return nil
	},
}

var staticTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		it.f.isStatic = o.IsStatic
		return nil
	},
	write: func(it *Item, rec record) {
		rec["isStatic"] = it.f.isStatic
	},
	read: func(rec rawRecord, o *Options) error {
		return readField(rec, "isStatic", &o.IsStatic)
	},
}

var readonlyTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		it.f.isReadonly = o.IsReadonly
		return nil
	},
	write: func(it *Item, rec record) {
		rec["isReadonly"] = it.f.isReadonly
	},
	read: func(rec rawRecord, o *Options) error {
		return readField(rec, "isReadonly", &o.IsReadonly)
	},
}

type parameterRecord struct {
	Name       string        `json:"parameterName"`
	TypeRange  excerpt.Range `json:"parameterTypeTokenRange"`
	IsOptional bool          `json:"isOptional"`
}

var parameterListTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		if o.OverloadIndex < 0 {
			return apierr.New(apierr.CodeInvalidOptions, "negative overload index %d", o.OverloadIndex)
		}
		it.f.parameters = make([]Parameter, len(o.Parameters))
		copy(it.f.parameters, o.Parameters)
		it.f.overloadIndex = o.OverloadIndex
		return nil
	},
	write: func(it *Item, rec record) {
		params := make([]parameterRecord, len(it.f.parameters))
		for i, p := range it.f.parameters {
			params[i] = parameterRecord{Name: p.Name, TypeRange: p.TypeRange, IsOptional: p.IsOptional}
		}
		rec["parameters"] = params
		rec["overloadIndex"] = it.f.overloadIndex
	},
	read: func(rec rawRecord, o *Options) error {
		var params []parameterRecord
		if err := readField(rec, "parameters", &params); err != nil {
			return err
		}
		o.Parameters = make([]Parameter, len(params))
		for i, p := range params {
			o.Parameters[i] = Parameter{Name: p.Name, TypeRange: p.TypeRange, IsOptional: p.IsOptional}
		}
		return readField(rec, "overloadIndex", &o.OverloadIndex)
	},
}

var returnTypeTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		it.f.returnType = o.ReturnTypeRange
		return nil
	},
	write: func(it *Item, rec record) {
		rec["returnTypeTokenRange"] = it.f.returnType
	},
	read: func(rec rawRecord, o *Options) error {
		return readField(rec, "returnTypeTokenRange", &o.ReturnTypeRange)
	},
}

var itemContainerTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		for _, m := range o.Members {
			if err := it.AddMember(m); err != nil {
				return err
			}
		}
		return nil
	},
	write: func(it *Item, rec record) {
		members := make([]record, len(it.f.members))
		for i, m := range it.f.members {
			members[i] = serialize(m)
		}
		rec["members"] = members
	},
	read: func(rec rawRecord, o *Options) error {
		var raws []json.RawMessage
		if err := readField(rec, "members", &raws); err != nil {
			return err
		}
		for i, raw := range raws {
			m, err := deserialize(raw)
			if err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}
			o.Members = append(o.Members, m)
		}
		return nil
	},
}

// declarationTrait comes last in every kind that carries it, so it also
// validates the token ranges recorded by ParameterList and ReturnType.
var declarationTrait = traitImpl{
	extract: func(it *Item, o *Options) error {
		it.f.tokens = excerpt.NewSequence(o.ExcerptTokens)
		for i, p := range it.f.parameters {
			if _, err := excerpt.New(it.f.tokens, p.TypeRange); err != nil {
				return apierr.Wrap(apierr.CodeInvalidExcerpt, err, "parameter %d of %s", i, it.kind)
			}
		}
		if _, err := excerpt.New(it.f.tokens, it.f.returnType); err != nil {
			return apierr.Wrap(apierr.CodeInvalidExcerpt, err, "return type of %s", it.kind)
		}
		return nil
	},
	write: func(it *Item, rec record) {
		tokens := it.f.tokens.Tokens()
		if tokens == nil {
			tokens = []excerpt.Token{}
		}
		rec["excerptTokens"] = tokens
	},
	read: func(rec rawRecord, o *Options) error {
		return readField(rec, "excerptTokens", &o.ExcerptTokens)
	},
}
