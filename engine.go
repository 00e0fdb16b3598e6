package apisurface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jward/apisurface/internal/builder"
	"github.com/jward/apisurface/internal/collector"
	"github.com/jward/apisurface/internal/declref"
	"github.com/jward/apisurface/internal/frontend"
	"github.com/jward/apisurface/internal/model"
	"github.com/jward/apisurface/internal/runtime"
	"github.com/jward/apisurface/internal/store"
	"github.com/jward/apisurface/scripts"
)

// scriptsHashKey is the metadata key holding the hash of the scripts that
// built the index.
const scriptsHashKey = "scripts_hash"

// Engine orchestrates the apisurface pipeline: file discovery, change
// detection, extraction via Risor scripts, export analysis and model
// generation.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS
	logger     *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithScriptsFS loads the Risor scripts from fsys instead of the scripts
// directory on disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger sets the logger for the engine and the scripts it runs.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, if scriptsDir is non-empty, use it on disk
//  3. Otherwise, use the scripts embedded in the binary
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("apisurface: create database directory: %w", err)
		}
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("apisurface: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("apisurface: migrate: %w", err)
	}

	e := &Engine{store: s, scriptsDir: scriptsDir}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.scriptsFS == nil && scriptsDir == "" {
		e.scriptsFS = scripts.FS
	}

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(s, scriptsDir, rtOpts...)
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

func (e *Engine) scriptsSource() fs.FS {
	if e.scriptsFS != nil {
		return e.scriptsFS
	}
	return os.DirFS(e.scriptsDir)
}

// scriptsHash hashes every Risor script the engine can load.
func (e *Engine) scriptsHash() (string, error) {
	return store.TreeHash(e.scriptsSource(), func(path string) bool {
		return strings.HasSuffix(path, ".risor")
	})
}

// ScriptsChanged reports whether the scripts differ from those that built
// the current database. It is true on first run. When true, the caller
// should delete the database and reindex from scratch.
func (e *Engine) ScriptsChanged() bool {
	current, err := e.scriptsHash()
	if err != nil {
		return true
	}
	stored, err := e.store.GetMetadata(scriptsHashKey)
	if err != nil || stored == "" {
		return true
	}
	return current != stored
}

func (e *Engine) storeScriptsHash() error {
	h, err := e.scriptsHash()
	if err != nil {
		return fmt.Errorf("hash scripts: %w", err)
	}
	return e.store.SetMetadata(scriptsHashKey, h)
}

// IndexFiles indexes the given file paths. For each file:
//  1. Detect language from extension, skipping unsupported files
//  2. Skip unchanged files (same content hash)
//  3. Delete stale data, insert the file record
//  4. Run the extraction script with the file's grammar
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(ctx, path); err != nil {
			e.logger.Warn("index failed", "path", path, "err", err)
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return e.storeScriptsHash()
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	lang, ok := runtime.LanguageForFile(path)
	if !ok {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		e.logger.Debug("unchanged", "path", path)
		return nil
	}
	if existing != nil {
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	extras := map[string]any{
		"file_path": path,
		"file_id":   fileID,
		"grammar":   runtime.GrammarForFile(path),
	}
	if err := e.runtime.RunScript(ctx, runtime.ExtractionScriptPath(lang), extras); err != nil {
		return fmt.Errorf("extraction script: %w", err)
	}
	e.logger.Debug("indexed", "path", path)
	return nil
}

// skipDirs are excluded from directory walks.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory indexes every TypeScript file under root and drops indexed
// files under root that no longer exist. If root is inside a git repository,
// git ls-files is used to respect .gitignore; otherwise the filesystem is
// walked, skipping hidden directories and node_modules.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("index directory: %w", err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	if err := e.pruneMissing(root); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// pruneMissing deletes indexed files under root that are gone from disk.
func (e *Engine) pruneMissing(root string) error {
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	prefix := root + string(filepath.Separator)
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if _, err := os.Stat(f.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := e.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("prune %s: %w", f.Path, err)
		}
		e.logger.Debug("pruned", "path", f.Path)
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := runtime.LanguageForFile(absPath); !ok {
			continue
		}
		// Deleted files stay listed until the deletion is staged.
		if _, err := os.Stat(absPath); err == nil {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := runtime.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Program loads the indexed files as a program.
func (e *Engine) Program() (*frontend.Program, error) {
	p, err := frontend.Load(e.store)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings() {
		e.logger.Warn(w)
	}
	return p, nil
}

// Analyze indexes root and walks the export graph of its entry module.
func (e *Engine) Analyze(ctx context.Context, root, entryPoint string) (*collector.Collector, error) {
	if err := e.IndexDirectory(ctx, root); err != nil {
		return nil, err
	}
	p, err := e.Program()
	if err != nil {
		return nil, err
	}
	entry, err := entryPath(root, entryPoint)
	if err != nil {
		return nil, err
	}
	c := collector.New()
	if err := c.Analyze(p, entry); err != nil {
		return nil, err
	}
	for _, u := range c.Unresolved() {
		e.logger.Warn("unresolved export", "detail", u)
	}
	return c, nil
}

func entryPath(root, entryPoint string) (string, error) {
	if filepath.IsAbs(entryPoint) {
		return entryPoint, nil
	}
	abs, err := filepath.Abs(filepath.Join(root, entryPoint))
	if err != nil {
		return "", fmt.Errorf("entry point: %w", err)
	}
	return abs, nil
}

// Exports lists the export names reachable from the entry module with the
// kind and declaring module of each.
func (e *Engine) Exports(ctx context.Context, root, entryPoint string) ([]ExportInfo, error) {
	c, err := e.Analyze(ctx, root, entryPoint)
	if err != nil {
		return nil, err
	}
	c.AssignEmitNames()

	var out []ExportInfo
	for _, ce := range c.SortedEntities() {
		kind, module := describe(c, ce)
		for _, name := range ce.ExportNames() {
			out = append(out, ExportInfo{
				Name:       name,
				LocalName:  ce.LocalName(),
				EmitName:   ce.NameForEmit(),
				Kind:       kind,
				Module:     module,
				Consumable: ce.Consumable(),
			})
		}
	}
	return out, nil
}

func describe(c *collector.Collector, ce *collector.Entity) (kind, module string) {
	if path, ok := c.NamespaceModule(ce); ok {
		return "namespace", path
	}
	switch ast := ce.AstEntity().(type) {
	case *SyntheticEntity:
		return "external", ast.Specifier()
	case *SymbolEntity:
		for _, d := range ast.Declarations() {
			if fd, ok := d.(*frontend.Declaration); ok {
				return fd.Kind, fd.Module()
			}
		}
	}
	return "unknown", ""
}

// Extract indexes opts.Root, builds the API model of its entry point and,
// when opts.OutputDir is set, writes it to <name>.api.json.
func (e *Engine) Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error) {
	if opts.EntryPoint == "" {
		opts.EntryPoint = DefaultEntryPoint
	}
	name := opts.PackageName
	if name == "" {
		var err error
		if name, err = packageName(opts.Root); err != nil {
			return nil, err
		}
	}

	c, err := e.Analyze(ctx, opts.Root, opts.EntryPoint)
	if err != nil {
		return nil, err
	}
	b := builder.New(c, builder.Options{PackageName: name, MinimumReleaseTag: opts.MinimumReleaseTag})
	pkg, err := b.Build()
	if err != nil {
		return nil, err
	}

	res := &ExtractResult{Package: pkg, Warnings: append(c.Unresolved(), b.Warnings()...)}
	for _, w := range b.Warnings() {
		e.logger.Warn(w)
	}
	if opts.OutputDir == "" {
		return res, nil
	}

	res.Path = filepath.Join(opts.OutputDir, FileNameForPackage(name))
	if err := writePackage(res.Path, pkg); err != nil {
		return nil, err
	}
	e.logger.Info("wrote api model", "path", res.Path, "items", len(pkg.Members()[0].Members()))
	return res, nil
}

func writePackage(path string, pkg *model.Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	meta := model.Metadata{ToolPackage: ToolPackage, ToolVersion: Version, SchemaVersion: model.SchemaVersion}
	if err := model.SavePackage(f, pkg, meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FileNameForPackage returns the model file name for a package: the unscoped
// name with ".api.json" appended.
func FileNameForPackage(name string) string {
	_, unscoped := model.ParsePackageName(name)
	return unscoped + ".api.json"
}

// packageName reads the name field of root/package.json, falling back to the
// directory name.
func packageName(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err == nil {
		var manifest struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &manifest); err != nil {
			return "", fmt.Errorf("read package.json: %w", err)
		}
		if manifest.Name != "" {
			return manifest.Name, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read package.json: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Base(abs), nil
}

// LoadModel reads persisted packages into a new model.
func LoadModel(paths ...string) (*model.Model, error) {
	m := model.NewModel()
	for _, p := range paths {
		if _, err := m.LoadPackageFile(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Resolve resolves declaration references against m. Failures are reported
// in the results, never as errors.
func Resolve(m *model.Model, refs []string) []declref.Result {
	return declref.NewResolver(m).ResolveAll(refs)
}
