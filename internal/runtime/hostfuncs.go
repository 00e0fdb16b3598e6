package runtime

import (
	"context"
	"os"
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
)

// sourceStore remembers the source text and grammar of every tree a script
// parses, keyed by the address of the tree's root node. go-tree-sitter
// nodes carry no back pointer to their tree, so lookups climb to the root.
type sourceStore struct {
	mu      sync.RWMutex
	sources map[uintptr][]byte
	langs   map[uintptr]*sitter.Language
}

func newSourceStore() *sourceStore {
	return &sourceStore{
		sources: make(map[uintptr][]byte),
		langs:   make(map[uintptr]*sitter.Language),
	}
}

func (s *sourceStore) store(tree *sitter.Tree, src []byte, lang *sitter.Language) {
	key := rootKey(tree.RootNode())
	s.mu.Lock()
	s.sources[key] = src
	s.langs[key] = lang
	s.mu.Unlock()
}

func rootKey(node *sitter.Node) uintptr {
	for node.Parent() != nil {
		node = node.Parent()
	}
	return uintptr(unsafe.Pointer(node))
}

func (s *sourceStore) sourceForNode(node *sitter.Node) ([]byte, bool) {
	key := rootKey(node)
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[key]
	return src, ok
}

func (s *sourceStore) languageForNode(node *sitter.Node) (*sitter.Language, bool) {
	key := rootKey(node)
	s.mu.RLock()
	defer s.mu.RUnlock()
	lang, ok := s.langs[key]
	return lang, ok
}

// stringArg unwraps a Risor string argument of the host function fn.
func stringArg(fn, what string, arg object.Object) (string, *object.Error) {
	s, ok := arg.(*object.String)
	if !ok {
		return "", object.Errorf("%s: %s must be a string, got %s", fn, what, arg.Type())
	}
	return s.Value(), nil
}

// nodeArg unwraps a proxied syntax node argument of the host function fn.
func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected a syntax node, got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected a syntax node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// proxyNode hands node to the script, mapping a missing node to nil.
func proxyNode(fn string, node *sitter.Node) object.Object {
	if node == nil {
		return object.Nil
	}
	p, err := object.NewProxy(node)
	if err != nil {
		return object.Errorf("%s: %v", fn, err)
	}
	return p
}

// makeParseFn builds parse(path, language), which reads a file and returns
// its syntax tree.
func makeParseFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse", 2, len(args))
		}
		path, errObj := stringArg("parse", "path", args[0])
		if errObj != nil {
			return errObj
		}
		lang, errObj := stringArg("parse", "language", args[1])
		if errObj != nil {
			return errObj
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("parse: reading %s: %v", path, err)
		}
		return parseSource(ctx, ss, src, lang)
	})
}

// makeParseSrcFn builds parse_src(source, language), which parses source
// text held by the script.
func makeParseSrcFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		src, errObj := stringArg("parse_src", "source", args[0])
		if errObj != nil {
			return errObj
		}
		lang, errObj := stringArg("parse_src", "language", args[1])
		if errObj != nil {
			return errObj
		}
		return parseSource(ctx, ss, []byte(src), lang)
	})
}

func parseSource(ctx context.Context, ss *sourceStore, src []byte, langName string) object.Object {
	lang, ok := ParserForLanguage(langName)
	if !ok {
		return object.Errorf("parse: unsupported language %q", langName)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return object.Errorf("parse: %v", err)
	}
	ss.store(tree, src, lang)

	proxy, err := object.NewProxy(tree)
	if err != nil {
		return object.Errorf("parse: %v", err)
	}
	return proxy
}

// makeNodeTextFn builds node_text(node). Scripts cannot pass a []byte to
// Node.Content, so the source is looked up here.
func makeNodeTextFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		src, ok := ss.sourceForNode(node)
		if !ok {
			return object.Errorf("node_text: node does not belong to a parsed tree")
		}
		return object.NewString(node.Content(src))
	})
}

// makeQueryFn builds query(pattern, node). It returns one map per match,
// from capture name to captured node.
func makeQueryFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, errObj := stringArg("query", "pattern", args[0])
		if errObj != nil {
			return errObj
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}
		lang, ok := ss.languageForNode(node)
		if !ok {
			return object.Errorf("query: node does not belong to a parsed tree")
		}
		src, _ := ss.sourceForNode(node)

		q, err := sitter.NewQuery([]byte(pattern), lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)

			captures := make(map[string]object.Object, len(match.Captures))
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				p, err := object.NewProxy(capture.Node)
				if err != nil {
					return object.Errorf("query: capture %q: %v", name, err)
				}
				captures[name] = p
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

// makeNodeChildFn builds node_child(node, field). An absent field yields
// nil rather than a proxy around a nil node.
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, errObj := stringArg("node_child", "field", args[1])
		if errObj != nil {
			return errObj
		}
		return proxyNode("node_child", node.ChildByFieldName(field))
	})
}

// makeNodeTextRangeFn builds node_text_range(node, start, end), the source
// bytes [start, end) of the tree node belongs to.
func makeNodeTextRangeFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("node_text_range", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("node_text_range", 3, len(args))
		}
		node, errObj := nodeArg("node_text_range", args[0])
		if errObj != nil {
			return errObj
		}
		start, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("node_text_range: start: %v", err)
		}
		end, err := toInt64(args[2])
		if err != nil {
			return object.Errorf("node_text_range: end: %v", err)
		}
		src, ok := ss.sourceForNode(node)
		if !ok {
			return object.Errorf("node_text_range: node does not belong to a parsed tree")
		}
		if start < 0 || start > end || end > int64(len(src)) {
			return object.Errorf("node_text_range: range [%d, %d) out of bounds for %d bytes", start, end, len(src))
		}
		return object.NewString(string(src[start:end]))
	})
}

// logObject is the script-facing "log" global.
type logObject struct {
	logger *log.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }
func (l *logObject) Info(msg string)  { l.logger.Info(msg) }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg) }
func (l *logObject) Error(msg string) { l.logger.Error(msg) }
