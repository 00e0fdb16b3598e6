package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, last_indexed) VALUES (?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileCols = `id, path, language, hash, last_indexed`

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path).
		Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY path", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

// --- Declaration operations ---

func (s *Store) InsertDeclaration(d *Declaration) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO declarations (file_id, parent_id, name, kind, signature, release_tag,
			is_static, is_readonly, is_optional, is_exported, aliased_from,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.ParentID, d.Name, d.Kind, d.Signature, d.ReleaseTag,
		d.IsStatic, d.IsReadonly, d.IsOptional, d.IsExported, d.AliasedFrom,
		d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert declaration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

const declarationCols = `id, file_id, parent_id, name, kind, signature, release_tag,
	is_static, is_readonly, is_optional, is_exported, aliased_from,
	start_line, start_col, end_line, end_col`

func scanDeclaration(scanner interface{ Scan(...any) error }) (*Declaration, error) {
	d := &Declaration{}
	err := scanner.Scan(
		&d.ID, &d.FileID, &d.ParentID, &d.Name, &d.Kind, &d.Signature, &d.ReleaseTag,
		&d.IsStatic, &d.IsReadonly, &d.IsOptional, &d.IsExported, &d.AliasedFrom,
		&d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) queryDeclarations(query string, args ...any) ([]*Declaration, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var decls []*Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

// DeclarationsByFile returns all declarations of a file, members included,
// in insertion order.
func (s *Store) DeclarationsByFile(fileID int64) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+declarationCols+" FROM declarations WHERE file_id = ? ORDER BY id", fileID)
}

func (s *Store) DeclarationsByName(name string) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+declarationCols+" FROM declarations WHERE name = ? ORDER BY id", name)
}

func (s *Store) DeclarationChildren(parentID int64) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+declarationCols+" FROM declarations WHERE parent_id = ? ORDER BY id", parentID)
}

// --- Span operations ---

func (s *Store) InsertSpan(sp *DeclarationSpan) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO declaration_spans (declaration_id, role, ordinal, start_byte, end_byte, name, is_optional, target)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.DeclarationID, sp.Role, sp.Ordinal, sp.StartByte, sp.EndByte, sp.Name, sp.IsOptional, sp.Target,
	)
	if err != nil {
		return 0, fmt.Errorf("insert span: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sp.ID = id
	return id, nil
}

// SpansByDeclaration returns a declaration's spans ordered by role and
// ordinal.
func (s *Store) SpansByDeclaration(declarationID int64) ([]*DeclarationSpan, error) {
	rows, err := s.db.Query(
		`SELECT id, declaration_id, role, ordinal, start_byte, end_byte, name, is_optional, target
		 FROM declaration_spans WHERE declaration_id = ? ORDER BY role, ordinal, id`,
		declarationID,
	)
	if err != nil {
		return nil, fmt.Errorf("spans by declaration: %w", err)
	}
	defer rows.Close()
	var spans []*DeclarationSpan
	for rows.Next() {
		sp := &DeclarationSpan{}
		if err := rows.Scan(&sp.ID, &sp.DeclarationID, &sp.Role, &sp.Ordinal,
			&sp.StartByte, &sp.EndByte, &sp.Name, &sp.IsOptional, &sp.Target); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

// --- Export operations ---

func (s *Store) InsertExport(ex *Export) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO exports (file_id, kind, exported_name, local_name, source) VALUES (?, ?, ?, ?, ?)",
		ex.FileID, ex.Kind, ex.ExportedName, ex.LocalName, ex.Source,
	)
	if err != nil {
		return 0, fmt.Errorf("insert export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	ex.ID = id
	return id, nil
}

func (s *Store) ExportsByFile(fileID int64) ([]*Export, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, kind, exported_name, local_name, source FROM exports WHERE file_id = ? ORDER BY id",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("exports by file: %w", err)
	}
	defer rows.Close()
	var exports []*Export
	for rows.Next() {
		ex := &Export{}
		if err := rows.Scan(&ex.ID, &ex.FileID, &ex.Kind, &ex.ExportedName, &ex.LocalName, &ex.Source); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		exports = append(exports, ex)
	}
	return exports, rows.Err()
}

// --- Import operations ---

func (s *Store) InsertImport(imp *Import) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO imports (file_id, kind, local_name, imported_name, source) VALUES (?, ?, ?, ?, ?)",
		imp.FileID, imp.Kind, imp.LocalName, imp.ImportedName, imp.Source,
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	imp.ID = id
	return id, nil
}

func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, kind, local_name, imported_name, source FROM imports WHERE file_id = ? ORDER BY id",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Kind, &imp.LocalName, &imp.ImportedName, &imp.Source); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// --- Metadata operations ---

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
