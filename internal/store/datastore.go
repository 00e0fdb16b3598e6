package store

// DataStore is the extraction-phase data access used by Risor host
// functions.
type DataStore interface {
	// Extraction inserts; each returns the assigned ID.
	InsertDeclaration(d *Declaration) (int64, error)
	InsertSpan(sp *DeclarationSpan) (int64, error)
	InsertExport(ex *Export) (int64, error)
	InsertImport(imp *Import) (int64, error)

	// Queries needed by extraction scripts.
	DeclarationsByFile(fileID int64) ([]*Declaration, error)
	DeclarationsByName(name string) ([]*Declaration, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
