// Package apisurface builds a language-neutral model of the public API of a
// TypeScript package. It parses declaration files with tree-sitter, follows
// the export graph of the package's entry module and writes the reachable
// declarations as a tree of API items to <package>.api.json.
//
// # Pipeline
//
// apisurface operates in three phases:
//
//  1. Index: for each .ts, .tsx, .d.ts, .mts or .cts file under the project
//     root, parse with tree-sitter and run the Risor extraction script, which
//     writes declarations, signature spans, exports and imports to SQLite.
//     Unchanged files are skipped by content hash.
//
//  2. Collect: load the indexed files as a program and walk the export graph
//     from the entry module, resolving re-exports, star exports and namespace
//     imports to the entities that declare them.
//
//  3. Build: turn every consumable entity into API items with tokenized
//     excerpts, release tags and canonical references, then serialize the
//     package.
//
// # Usage
//
//	e, err := apisurface.New(".apisurface/index.db", "")
//	if err != nil { ... }
//	defer e.Close()
//
//	res, err := e.Extract(ctx, apisurface.ExtractOptions{
//		Root:      "path/to/package",
//		OutputDir: "api",
//	})
//
// Saved models are loaded with [LoadModel] and queried with declaration
// references through [Resolve]:
//
//	m, err := apisurface.LoadModel("api/widgets.api.json")
//	results := apisurface.Resolve(m, []string{"@acme/widgets#Widget:class"})
//
// # Scripts
//
// The extraction script is embedded in the binary. Passing a scripts
// directory to [New], or an fs.FS through [WithScriptsFS], replaces it; the
// directory must contain extract/typescript.risor. When the scripts change,
// [Engine.ScriptsChanged] reports true and the index should be rebuilt.
package apisurface
