package model

import "fmt"

// ReleaseTag classifies the stability of an API item.
type ReleaseTag int

const (
	ReleaseTagNone ReleaseTag = iota
	ReleaseTagInternal
	ReleaseTagAlpha
	ReleaseTagBeta
	ReleaseTagPublic
)

// DefaultReleaseTag is assigned to items constructed or loaded without an
// explicit stability classification.
const DefaultReleaseTag = ReleaseTagPublic

var releaseTagNames = [...]string{"None", "Internal", "Alpha", "Beta", "Public"}

func (r ReleaseTag) String() string {
	if r < 0 || int(r) >= len(releaseTagNames) {
		return fmt.Sprintf("ReleaseTag(%d)", int(r))
	}
	return releaseTagNames[r]
}

// DocTag returns the doc comment tag for r, e.g. "@beta".
func (r ReleaseTag) DocTag() string {
	switch r {
	case ReleaseTagInternal:
		return "@internal"
	case ReleaseTagAlpha:
		return "@alpha"
	case ReleaseTagBeta:
		return "@beta"
	case ReleaseTagPublic:
		return "@public"
	}
	return ""
}

// Compare orders release tags by visibility: Internal < Alpha < Beta < Public.
func (r ReleaseTag) Compare(other ReleaseTag) int {
	return int(r) - int(other)
}

// ParseReleaseTag accepts the serialized names ("Beta") and the lower-case
// forms used in doc comments and configuration ("beta", "@beta").
func ParseReleaseTag(s string) (ReleaseTag, error) {
	switch s {
	case "", "None", "none":
		return ReleaseTagNone, nil
	case "Internal", "internal", "@internal":
		return ReleaseTagInternal, nil
	case "Alpha", "alpha", "@alpha":
		return ReleaseTagAlpha, nil
	case "Beta", "beta", "@beta":
		return ReleaseTagBeta, nil
	case "Public", "public", "@public":
		return ReleaseTagPublic, nil
	}
	return ReleaseTagNone, fmt.Errorf("unknown release tag %q", s)
}
