package builder

import "github.com/jward/apisurface/internal/model"

// declarationKinds maps the kinds written by the extraction script to item
// kinds. Import aliases have no item.
var declarationKinds = map[string]model.Kind{
	"class":               model.KindClass,
	"interface":           model.KindInterface,
	"namespace":           model.KindNamespace,
	"enum":                model.KindEnum,
	"enum_member":         model.KindEnumMember,
	"function":            model.KindFunction,
	"method":              model.KindMethod,
	"method_signature":    model.KindMethodSignature,
	"constructor":         model.KindConstructor,
	"construct_signature": model.KindConstructSignature,
	"call_signature":      model.KindCallSignature,
	"index_signature":     model.KindIndexSignature,
	"property":            model.KindProperty,
	"property_signature":  model.KindPropertySignature,
	"variable":            model.KindVariable,
	"type_alias":          model.KindTypeAlias,
}

func declarationKind(kind string) (model.Kind, bool) {
	k, ok := declarationKinds[kind]
	return k, ok
}
