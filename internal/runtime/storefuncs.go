package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/apisurface/internal/store"
)

// Host functions wrapping DataStore inserts. Scripts pass Risor maps with
// primitive values; the Go side builds the rows.

func makeInsertDeclarationFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_declaration", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_declaration", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_declaration: %v", err)
		}

		d := &store.Declaration{
			FileID:      getInt64(m, "file_id"),
			Name:        getString(m, "name"),
			Kind:        getString(m, "kind"),
			Signature:   getString(m, "signature"),
			ReleaseTag:  getString(m, "release_tag"),
			IsStatic:    getBool(m, "is_static"),
			IsReadonly:  getBool(m, "is_readonly"),
			IsOptional:  getBool(m, "is_optional"),
			IsExported:  getBool(m, "is_exported"),
			AliasedFrom: getString(m, "aliased_from"),
			StartLine:   getInt(m, "start_line"),
			StartCol:    getInt(m, "start_col"),
			EndLine:     getInt(m, "end_line"),
			EndCol:      getInt(m, "end_col"),
		}
		if d.Kind == "" {
			return object.Errorf("insert_declaration: kind is required")
		}
		if v, ok := getOptionalInt64(m, "parent_id"); ok {
			d.ParentID = &v
		}

		id, insertErr := s.InsertDeclaration(d)
		if insertErr != nil {
			return object.Errorf("insert_declaration: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertSpanFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_span", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_span", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_span: %v", err)
		}

		sp := &store.DeclarationSpan{
			DeclarationID: getInt64(m, "declaration_id"),
			Role:          getString(m, "role"),
			Ordinal:       getInt(m, "ordinal"),
			StartByte:     getInt(m, "start_byte"),
			EndByte:       getInt(m, "end_byte"),
			Name:          getString(m, "name"),
			IsOptional:    getBool(m, "is_optional"),
			Target:        getString(m, "target"),
		}
		switch sp.Role {
		case store.SpanParameter, store.SpanReturnType, store.SpanReference:
		default:
			return object.Errorf("insert_span: unknown role %q", sp.Role)
		}
		if sp.StartByte > sp.EndByte {
			return object.Errorf("insert_span: start %d after end %d", sp.StartByte, sp.EndByte)
		}

		id, insertErr := s.InsertSpan(sp)
		if insertErr != nil {
			return object.Errorf("insert_span: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertExportFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_export", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_export", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_export: %v", err)
		}

		ex := &store.Export{
			FileID:       getInt64(m, "file_id"),
			Kind:         getStringDefault(m, "kind", store.ExportNamed),
			ExportedName: getString(m, "exported_name"),
			LocalName:    getString(m, "local_name"),
			Source:       getString(m, "source"),
		}
		if ex.Kind == store.ExportNamed && ex.LocalName == "" {
			ex.LocalName = ex.ExportedName
		}

		id, insertErr := s.InsertExport(ex)
		if insertErr != nil {
			return object.Errorf("insert_export: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertImportFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_import", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_import", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_import: %v", err)
		}

		imp := &store.Import{
			FileID:       getInt64(m, "file_id"),
			Kind:         getStringDefault(m, "kind", store.ImportNamed),
			LocalName:    getString(m, "local_name"),
			ImportedName: getString(m, "imported_name"),
			Source:       getString(m, "source"),
		}
		if imp.Kind == store.ImportNamed && imp.ImportedName == "" {
			imp.ImportedName = imp.LocalName
		}

		id, insertErr := s.InsertImport(imp)
		if insertErr != nil {
			return object.Errorf("insert_import: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

// --- Query bridge functions ---

func makeDeclarationsByFileFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("declarations_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("declarations_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("declarations_by_file: %v", err)
		}

		decls, queryErr := s.DeclarationsByFile(fileID)
		if queryErr != nil {
			return object.Errorf("declarations_by_file: %v", queryErr)
		}
		return declarationsToList(decls)
	})
}

func makeDeclarationsByNameFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("declarations_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("declarations_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("declarations_by_name: %v", err)
		}

		decls, queryErr := s.DeclarationsByName(name)
		if queryErr != nil {
			return object.Errorf("declarations_by_name: %v", queryErr)
		}
		return declarationsToList(decls)
	})
}

// declarationsToList converts declarations to a Risor list of maps.
func declarationsToList(decls []*store.Declaration) object.Object {
	results := make([]object.Object, 0, len(decls))
	for _, d := range decls {
		m := map[string]object.Object{
			"id":          object.NewInt(d.ID),
			"file_id":     object.NewInt(d.FileID),
			"name":        object.NewString(d.Name),
			"kind":        object.NewString(d.Kind),
			"signature":   object.NewString(d.Signature),
			"release_tag": object.NewString(d.ReleaseTag),
			"is_static":   object.NewBool(d.IsStatic),
			"is_exported": object.NewBool(d.IsExported),
			"start_line":  object.NewInt(int64(d.StartLine)),
			"end_line":    object.NewInt(int64(d.EndLine)),
		}
		if d.ParentID != nil {
			m["parent_id"] = object.NewInt(*d.ParentID)
		}
		results = append(results, object.NewMap(m))
	}
	return object.NewList(results)
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func getInt(m map[string]object.Object, key string) int {
	return int(getInt64(m, key))
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, _ := getOptionalInt64(m, key)
	return v
}

func getOptionalInt64(m map[string]object.Object, key string) (int64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case *object.Int:
		return n.Value(), true
	case *object.Float:
		return int64(n.Value()), true
	}
	return 0, false
}

func getBool(m map[string]object.Object, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	if b, ok := v.(*object.Bool); ok {
		return b.Value()
	}
	return false
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
