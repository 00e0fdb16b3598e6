package store

import "time"

// Extraction domain types

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LastIndexed time.Time
}

// Declaration is one declaration found by an extraction script. Top-level
// declarations have no parent; members of classes, interfaces, enums and
// namespaces point at their container.
type Declaration struct {
	ID       int64
	FileID   int64
	ParentID *int64
	Name     string
	Kind     string
	// Signature is the declaration text that excerpt tokens are cut from.
	Signature   string
	ReleaseTag  string
	IsStatic    bool
	IsReadonly  bool
	IsOptional  bool
	IsExported  bool
	AliasedFrom string
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
}

// Span roles.
const (
	SpanParameter  = "parameter"
	SpanReturnType = "return"
	SpanReference  = "reference"
)

// DeclarationSpan marks a byte range of a declaration's signature.
type DeclarationSpan struct {
	ID            int64
	DeclarationID int64
	Role          string
	Ordinal       int
	StartByte     int
	EndByte       int
	Name          string
	IsOptional    bool
	// Target is the referenced identifier of a reference span.
	Target string
}

// Export kinds.
const (
	ExportNamed     = "named"
	ExportStar      = "star"
	ExportNamespace = "namespace"
)

type Export struct {
	ID           int64
	FileID       int64
	Kind         string
	ExportedName string
	LocalName    string
	Source       string
}

// Import kinds.
const (
	ImportNamed     = "named"
	ImportDefault   = "default"
	ImportNamespace = "namespace"
)

type Import struct {
	ID           int64
	FileID       int64
	Kind         string
	LocalName    string
	ImportedName string
	Source       string
}
