package declref

import (
	"fmt"
	"slices"

	"github.com/jward/apisurface/internal/model"
)

// Reason classifies a resolution failure.
type Reason string

const (
	ReasonInvalidSyntax      Reason = "InvalidSyntax"
	ReasonUnknownPackage     Reason = "UnknownPackage"
	ReasonAmbiguousPackage   Reason = "AmbiguousPackage"
	ReasonNoEntryPoint       Reason = "NoEntryPoint"
	ReasonMissingMember      Reason = "MissingMember"
	ReasonAmbiguousMember    Reason = "AmbiguousMember"
	ReasonOverloadOutOfRange Reason = "OverloadOutOfRange"
)

// Failure describes why a reference did not resolve.
type Failure struct {
	Reason Reason
	// Segment is the path segment that failed, or the package name for
	// package-level failures.
	Segment string
	// Index is the position of the failing member segment, or -1 when the
	// package or the syntax failed.
	Index   int
	Message string
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s at %q: %s", f.Reason, f.Segment, f.Message)
}

// Result is the outcome of resolving one reference. Exactly one of Item and
// Failure is set.
type Result struct {
	Reference string
	Item      *model.Item
	Failure   *Failure
}

// Resolved reports whether the reference found an item.
func (r Result) Resolved() bool { return r.Item != nil }

// Resolver looks references up in a model.
type Resolver struct {
	model *model.Model
}

// NewResolver returns a resolver over m. Packages added to m later are
// visible to subsequent lookups.
func NewResolver(m *model.Model) *Resolver {
	return &Resolver{model: m}
}

// ResolveString parses and resolves s. Syntax errors are reported as an
// InvalidSyntax failure.
func (r *Resolver) ResolveString(s string) Result {
	ref, err := Parse(s)
	if err != nil {
		return Result{Reference: s, Failure: &Failure{
			Reason:  ReasonInvalidSyntax,
			Segment: s,
			Index:   -1,
			Message: err.Error(),
		}}
	}
	res := r.Resolve(ref)
	res.Reference = s
	return res
}

// ResolveAll resolves each reference independently.
func (r *Resolver) ResolveAll(refs []string) []Result {
	out := make([]Result, len(refs))
	for i, s := range refs {
		out[i] = r.ResolveString(s)
	}
	return out
}

// Resolve walks ref from its package through each member segment.
func (r *Resolver) Resolve(ref Reference) Result {
	res := Result{Reference: ref.String()}
	fail := func(reason Reason, segment string, index int, format string, args ...any) Result {
		res.Failure = &Failure{Reason: reason, Segment: segment, Index: index, Message: fmt.Sprintf(format, args...)}
		return res
	}

	pkg := r.model.TryGetPackageByName(ref.Package)
	if pkg == nil {
		if r.model.IsAmbiguousPackageName(ref.Package) {
			return fail(ReasonAmbiguousPackage, ref.Package, -1,
				"unscoped name %q matches more than one loaded package", ref.Package)
		}
		return fail(ReasonUnknownPackage, ref.Package, -1, "package %q is not loaded", ref.Package)
	}
	if len(ref.Members) == 0 {
		res.Item = pkg
		return res
	}

	members := ref.Members
	container, named := entryPoint(pkg, members[0])
	if container == nil {
		return fail(ReasonNoEntryPoint, ref.Package, -1, "package %q has no entry point", pkg.Name())
	}
	if named {
		members = members[1:]
		if len(members) == 0 {
			res.Item = container
			return res
		}
	}
	offset := len(ref.Members) - len(members)

	for i, seg := range members {
		idx := i + offset
		last := i == len(members)-1
		if !container.Kind().Has(model.TraitItemContainer) {
			return fail(ReasonMissingMember, seg.String(), idx, "%s %q has no members", container.Kind(), container.DisplayName())
		}
		candidates := container.FindMembersByName(seg.Name)
		if len(candidates) == 0 {
			return fail(ReasonMissingMember, seg.String(), idx, "%q has no member %q", container.DisplayName(), seg.Name)
		}
		matched := filter(candidates, seg.Selector, false)
		if len(matched) == 0 {
			if seg.Selector.Overload >= 0 && hasOverloads(filter(candidates, seg.Selector, true)) {
				return fail(ReasonOverloadOutOfRange, seg.String(), idx,
					"%q has no overload %d", seg.Name, seg.Selector.Overload)
			}
			return fail(ReasonMissingMember, seg.String(), idx,
				"no member of %q matches %q", container.DisplayName(), seg.String())
		}
		next := matched[0]
		if len(matched) > 1 {
			if last {
				return fail(ReasonAmbiguousMember, seg.String(), idx,
					"%q matches %d members of %q", seg.String(), len(matched), container.DisplayName())
			}
			// Merged declarations such as a class and a namespace of the same
			// name: continue in the container that has the next segment.
			next = pickContainer(matched, members[i+1].Name)
			if next == nil {
				return fail(ReasonAmbiguousMember, seg.String(), idx,
					"%q matches %d members of %q", seg.String(), len(matched), container.DisplayName())
			}
		}
		container = next
	}
	res.Item = container
	return res
}

// entryPoint picks the package's entry point named by first, reporting
// named as true, else its unnamed entry point, else its first.
func entryPoint(pkg *model.Item, first Segment) (ep *model.Item, named bool) {
	for _, m := range pkg.Members() {
		if m.Kind() != model.KindEntryPoint {
			continue
		}
		if m.Name() != "" && m.Name() == first.Name && first.Selector.IsZero() {
			return m, true
		}
		if ep == nil || (ep.Name() != "" && m.Name() == "") {
			ep = m
		}
	}
	return ep, false
}

// filter keeps the candidates sel admits. With ignoreOverload the overload
// index is not checked.
func filter(candidates []*model.Item, sel Selector, ignoreOverload bool) []*model.Item {
	var out []*model.Item
	for _, it := range candidates {
		if sel.Meaning != "" && !slices.Contains(meanings[sel.Meaning], it.Kind()) {
			continue
		}
		if sel.Scope != "" && it.Scope() != sel.Scope {
			continue
		}
		if !ignoreOverload && sel.Overload >= 0 {
			if !it.Kind().Has(model.TraitParameterList) || it.OverloadIndex() != sel.Overload {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// pickContainer returns the first container among items with a member named
// next, else the first container.
func pickContainer(items []*model.Item, next string) *model.Item {
	var first *model.Item
	for _, it := range items {
		if !it.Kind().Has(model.TraitItemContainer) {
			continue
		}
		if len(it.FindMembersByName(next)) > 0 {
			return it
		}
		if first == nil {
			first = it
		}
	}
	return first
}

func hasOverloads(items []*model.Item) bool {
	return slices.ContainsFunc(items, func(it *model.Item) bool {
		return it.Kind().Has(model.TraitParameterList)
	})
}
