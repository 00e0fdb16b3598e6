// Package declref parses textual declaration references and resolves them
// against a loaded API model.
//
// Two notations are accepted. The short form
//
//	[@scope/]package[#member[.member...]][:selector]
//
// names members by path and puts an optional selector on any segment. The
// canonical form produced by model items
//
//	[@scope/]package!(Widget:class).(render:instance,0)
//
// is accepted as well, so every item's FullReference resolves back to it.
package declref

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/apisurface/internal/apierr"
	"github.com/jward/apisurface/internal/model"
)

// Scope values accepted by selectors.
const (
	ScopeStatic   = "static"
	ScopeInstance = "instance"
)

// meanings maps a selector meaning to the item kinds it matches.
var meanings = map[string][]model.Kind{
	"class":       {model.KindClass},
	"interface":   {model.KindInterface},
	"enum":        {model.KindEnum},
	"namespace":   {model.KindNamespace},
	"type":        {model.KindTypeAlias},
	"variable":    {model.KindVariable, model.KindProperty, model.KindPropertySignature},
	"member":      {model.KindEnumMember},
	"function":    {model.KindFunction, model.KindMethod, model.KindMethodSignature},
	"constructor": {model.KindConstructor},
	"call":        {model.KindCallSignature},
	"new":         {model.KindConstructSignature},
	"index":       {model.KindIndexSignature},
}

// Selector disambiguates members that share a name. Segments without a
// selector carry Overload -1.
type Selector struct {
	// Scope is ScopeStatic, ScopeInstance, or "".
	Scope string
	// Meaning is a kind word such as "class" or "call", or "".
	Meaning string
	// Overload is the overload index, or -1.
	Overload int
}

// IsZero reports whether s constrains nothing.
func (s Selector) IsZero() bool {
	return s.Scope == "" && s.Meaning == "" && s.Overload < 0
}

func (s Selector) String() string {
	var parts []string
	switch {
	case s.Scope != "":
		parts = append(parts, s.Scope)
	case s.Meaning != "":
		parts = append(parts, s.Meaning)
	}
	if s.Overload >= 0 {
		parts = append(parts, strconv.Itoa(s.Overload))
	}
	return strings.Join(parts, ",")
}

// Segment is one step of a member path.
type Segment struct {
	Name     string
	Selector Selector
}

func (s Segment) String() string {
	if s.Selector.IsZero() {
		return s.Name
	}
	return s.Name + ":" + s.Selector.String()
}

// Reference is a parsed declaration reference.
type Reference struct {
	Package string
	Members []Segment
}

// String formats r in the short notation.
func (r Reference) String() string {
	if len(r.Members) == 0 {
		return r.Package
	}
	segs := make([]string, len(r.Members))
	for i, m := range r.Members {
		segs[i] = m.String()
	}
	return r.Package + "#" + strings.Join(segs, ".")
}

// Parse reads a reference in either notation. Malformed input fails with
// CodeInvalidReference.
func Parse(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, invalid(s, "empty reference")
	}
	if pkg, path, ok := strings.Cut(s, "!"); ok {
		return parseCanonical(s, pkg, path)
	}
	pkg, path, hasPath := strings.Cut(s, "#")
	if !hasPath && strings.Contains(pkg, ":") {
		return Reference{}, invalid(s, "selector without member path")
	}
	if err := checkPackage(s, pkg); err != nil {
		return Reference{}, err
	}
	ref := Reference{Package: pkg}
	if !hasPath {
		return ref, nil
	}
	if path == "" {
		return Reference{}, invalid(s, "empty member path")
	}
	for _, raw := range strings.Split(path, ".") {
		seg, err := parseSegment(s, raw)
		if err != nil {
			return Reference{}, err
		}
		ref.Members = append(ref.Members, seg)
	}
	return ref, nil
}

// MustParse is Parse for references known to be valid.
func MustParse(s string) Reference {
	ref, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ref
}

func parseCanonical(s, pkg, path string) (Reference, error) {
	if err := checkPackage(s, pkg); err != nil {
		return Reference{}, err
	}
	ref := Reference{Package: pkg}
	if path == "" {
		return ref, nil
	}
	for _, raw := range strings.Split(path, ".") {
		if inner, ok := strings.CutPrefix(raw, "("); ok {
			inner, ok = strings.CutSuffix(inner, ")")
			if !ok || !strings.Contains(inner, ":") {
				return Reference{}, invalid(s, "malformed component %q", raw)
			}
			raw = inner
		}
		seg, err := parseSegment(s, raw)
		if err != nil {
			return Reference{}, err
		}
		ref.Members = append(ref.Members, seg)
	}
	return ref, nil
}

func checkPackage(s, pkg string) error {
	if pkg == "" {
		return invalid(s, "missing package name")
	}
	if strings.ContainsAny(pkg, " \t()#:!") {
		return invalid(s, "invalid package name %q", pkg)
	}
	if strings.HasPrefix(pkg, "@") {
		scope, name, ok := strings.Cut(pkg, "/")
		if !ok || scope == "@" || name == "" || strings.Contains(name, "/") {
			return invalid(s, "invalid scoped package name %q", pkg)
		}
	}
	return nil
}

func parseSegment(s, raw string) (Segment, error) {
	name, sel, hasSel := strings.Cut(raw, ":")
	if strings.ContainsAny(name, " \t()#!,") {
		return Segment{}, invalid(s, "invalid member name %q", name)
	}
	seg := Segment{Name: name, Selector: Selector{Overload: -1}}
	if !hasSel {
		if name == "" {
			return Segment{}, invalid(s, "empty member name")
		}
		return seg, nil
	}
	selector, err := parseSelector(s, sel)
	if err != nil {
		return Segment{}, err
	}
	if name == "" && selector.Meaning == "" {
		return Segment{}, invalid(s, "nameless member needs a kind selector")
	}
	seg.Selector = selector
	return seg, nil
}

func parseSelector(s, sel string) (Selector, error) {
	out := Selector{Overload: -1}
	parts := strings.Split(sel, ",")
	if len(parts) > 2 {
		return out, invalid(s, "too many selector parts in %q", sel)
	}
	if n, err := strconv.Atoi(parts[0]); err == nil {
		if len(parts) != 1 {
			return out, invalid(s, "overload index must come last in %q", sel)
		}
		if n < 0 {
			return out, invalid(s, "negative overload index %d", n)
		}
		out.Overload = n
		return out, nil
	}
	switch word := parts[0]; {
	case word == ScopeStatic || word == ScopeInstance:
		out.Scope = word
	case meanings[word] != nil:
		out.Meaning = word
	default:
		return out, invalid(s, "unknown selector %q", word)
	}
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			return out, invalid(s, "invalid overload index %q", parts[1])
		}
		out.Overload = n
	}
	return out, nil
}

func invalid(s, format string, args ...any) error {
	return apierr.New(apierr.CodeInvalidReference, "parse %q: %s", s, fmt.Sprintf(format, args...))
}
