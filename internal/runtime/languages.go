package runtime

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is the only source language the extractor understands. Grammar
// selection between plain TypeScript and TSX happens per file.
const Language = "typescript"

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".ts":  Language,
	".tsx": Language,
	".mts": Language,
	".cts": Language,
}

// grammars maps grammar names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
// Declaration files (".d.ts") count as TypeScript.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// GrammarForFile returns the grammar a file must be parsed with: "tsx" for
// .tsx files and "typescript" otherwise.
func GrammarForFile(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".tsx") {
		return "tsx"
	}
	return "typescript"
}

// ParserForLanguage returns the tree-sitter Language for a grammar name.
// Returns (nil, false) if the grammar is not supported.
func ParserForLanguage(grammar string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := grammars[grammar]
	return l, ok
}
