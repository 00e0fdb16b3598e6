// Package excerpt models signatures as immutable slices of an opaque token
// sequence. Tokens are produced once by the front end; every excerpt that
// refers to them (the whole declaration, a parameter type, a return type)
// is a (start, end) view over the same shared sequence.
package excerpt

import (
	"slices"
	"strings"

	"github.com/jward/apisurface/internal/apierr"
)

// TokenKind classifies a token.
type TokenKind string

const (
	// Content is plain signature text.
	Content TokenKind = "Content"
	// Reference names another declaration; CanonicalReference may identify it.
	Reference TokenKind = "Reference"
)

// Token is one element of a signature's token sequence.
type Token struct {
	Kind               TokenKind `json:"kind"`
	Text               string    `json:"text"`
	CanonicalReference string    `json:"canonicalReference,omitempty"`
}

// Range is a half-open [Start, End) interval over a token sequence.
type Range struct {
	Start int `json:"startIndex"`
	End   int `json:"endIndex"`
}

// Len returns the number of tokens covered by r.
func (r Range) Len() int { return r.End - r.Start }

// Sequence is an immutable token sequence shared by excerpts.
type Sequence struct {
	tokens []Token
}

// NewSequence copies tokens into a new immutable sequence.
func NewSequence(tokens []Token) *Sequence {
	return &Sequence{tokens: slices.Clone(tokens)}
}

// Len returns the number of tokens in the sequence.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tokens)
}

// Tokens returns a copy of the sequence's tokens.
func (s *Sequence) Tokens() []Token {
	if s == nil {
		return nil
	}
	return slices.Clone(s.tokens)
}

// Excerpt is a read-only view over a range of a Sequence.
type Excerpt struct {
	seq   *Sequence
	rng   Range
	text  string
	ready bool
}

// New returns an excerpt covering r within seq. It fails when
// 0 <= r.Start <= r.End <= seq.Len() does not hold.
func New(seq *Sequence, r Range) (*Excerpt, error) {
	if r.Start < 0 || r.Start > r.End || r.End > seq.Len() {
		return nil, apierr.New(apierr.CodeInvalidExcerpt,
			"range [%d, %d) out of bounds for %d tokens", r.Start, r.End, seq.Len())
	}
	return &Excerpt{seq: seq, rng: r}, nil
}

// Whole returns an excerpt spanning the entire sequence.
func Whole(seq *Sequence) *Excerpt {
	return &Excerpt{seq: seq, rng: Range{Start: 0, End: seq.Len()}}
}

// Range returns the token range of the excerpt.
func (e *Excerpt) Range() Range { return e.rng }

// Sequence returns the shared token sequence.
func (e *Excerpt) Sequence() *Sequence { return e.seq }

// IsEmpty reports whether the excerpt covers no tokens.
func (e *Excerpt) IsEmpty() bool { return e.rng.Start == e.rng.End }

// Tokens returns a copy of the tokens covered by the excerpt.
func (e *Excerpt) Tokens() []Token {
	if e.IsEmpty() {
		return nil
	}
	return slices.Clone(e.seq.tokens[e.rng.Start:e.rng.End])
}

// Text concatenates the covered tokens. The result is computed on first use
// and cached.
func (e *Excerpt) Text() string {
	if e.ready {
		return e.text
	}
	if e.IsEmpty() {
		e.ready = true
		return ""
	}
	var b strings.Builder
	for _, tok := range e.seq.tokens[e.rng.Start:e.rng.End] {
		b.WriteString(tok.Text)
	}
	e.text = b.String()
	e.ready = true
	return e.text
}
