package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for extraction output.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS declarations (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  parent_id       INTEGER REFERENCES declarations(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  signature       TEXT NOT NULL DEFAULT '',
  release_tag     TEXT NOT NULL DEFAULT '',
  is_static       BOOLEAN DEFAULT FALSE,
  is_readonly     BOOLEAN DEFAULT FALSE,
  is_optional     BOOLEAN DEFAULT FALSE,
  is_exported     BOOLEAN DEFAULT FALSE,
  aliased_from    TEXT NOT NULL DEFAULT '',
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS declaration_spans (
  id              INTEGER PRIMARY KEY,
  declaration_id  INTEGER NOT NULL REFERENCES declarations(id),
  role            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL DEFAULT 0,
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL,
  name            TEXT NOT NULL DEFAULT '',
  is_optional     BOOLEAN DEFAULT FALSE,
  target          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS exports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  kind            TEXT NOT NULL,
  exported_name   TEXT NOT NULL DEFAULT '',
  local_name      TEXT NOT NULL DEFAULT '',
  source          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  kind            TEXT NOT NULL,
  local_name      TEXT NOT NULL,
  imported_name   TEXT NOT NULL DEFAULT '',
  source          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_declarations_file ON declarations(file_id);
CREATE INDEX IF NOT EXISTS idx_declarations_parent ON declarations(parent_id);
CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(name);
CREATE INDEX IF NOT EXISTS idx_spans_declaration ON declaration_spans(declaration_id);
CREATE INDEX IF NOT EXISTS idx_exports_file ON exports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_source ON imports(source);
`

// DeleteFileData transactionally removes all extraction data for a file.
// Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT id FROM declarations WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("query declarations: %w", err)
	}
	var declIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan declaration id: %w", err)
		}
		declIDs = append(declIDs, id)
	}
	rows.Close()

	if len(declIDs) > 0 {
		placeholders := placeholderList(len(declIDs))
		if _, err := tx.Exec("DELETE FROM declaration_spans WHERE declaration_id IN ("+placeholders+")",
			int64sToArgs(declIDs)...); err != nil {
			return fmt.Errorf("delete declaration spans: %w", err)
		}
	}

	// Children first so parent_id references never dangle.
	if _, err := tx.Exec("DELETE FROM declarations WHERE file_id = ? AND parent_id IS NOT NULL", fileID); err != nil {
		return fmt.Errorf("delete member declarations: %w", err)
	}
	for _, q := range []string{
		"DELETE FROM declarations WHERE file_id = ?",
		"DELETE FROM exports WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete extraction data: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file record together with its extraction data.
func (s *Store) DeleteFile(fileID int64) error {
	if err := s.DeleteFileData(fileID); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}
