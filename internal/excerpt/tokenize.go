package excerpt

import (
	"sort"

	"github.com/jward/apisurface/internal/apierr"
)

// Span marks a byte range [Start, End) of signature text that must map to
// its own token range, e.g. a parameter type. A span with a
// CanonicalReference becomes a single Reference token.
type Span struct {
	Start              int
	End                int
	CanonicalReference string
}

// Tokenize splits text into tokens so that every span starts and ends on a
// token boundary. It returns the token sequence and, for each input span in
// its original order, the token range it covers. Spans must lie within text
// and may nest but not cross. A reference span must not contain the boundary
// of another span.
func Tokenize(text string, spans []Span) (*Sequence, []Range, error) {
	if err := checkSpans(text, spans); err != nil {
		return nil, nil, err
	}

	cuts := map[int]bool{0: true, len(text): true}
	for _, sp := range spans {
		cuts[sp.Start] = true
		cuts[sp.End] = true
	}
	bounds := make([]int, 0, len(cuts))
	for p := range cuts {
		bounds = append(bounds, p)
	}
	sort.Ints(bounds)

	// The token starting at bounds[i] has index i.
	index := make(map[int]int, len(bounds))
	tokens := make([]Token, 0, len(bounds))
	for i, p := range bounds {
		index[p] = i
		if i+1 < len(bounds) {
			tokens = append(tokens, Token{Kind: Content, Text: text[p:bounds[i+1]]})
		}
	}

	ranges := make([]Range, len(spans))
	for i, sp := range spans {
		r := Range{Start: index[sp.Start], End: index[sp.End]}
		ranges[i] = r
		if sp.CanonicalReference == "" {
			continue
		}
		if r.Len() != 1 {
			return nil, nil, apierr.New(apierr.CodeInvalidExcerpt,
				"reference span [%d, %d) must cover exactly one token, covers %d", sp.Start, sp.End, r.Len())
		}
		tokens[r.Start].Kind = Reference
		tokens[r.Start].CanonicalReference = sp.CanonicalReference
	}
	return &Sequence{tokens: tokens}, ranges, nil
}

func checkSpans(text string, spans []Span) error {
	order := make([]Span, len(spans))
	for i, sp := range spans {
		if sp.Start < 0 || sp.Start > sp.End || sp.End > len(text) {
			return apierr.New(apierr.CodeInvalidExcerpt,
				"span [%d, %d) out of bounds for %d bytes", sp.Start, sp.End, len(text))
		}
		order[i] = sp
	}
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].Start != order[b].Start {
			return order[a].Start < order[b].Start
		}
		return order[a].End > order[b].End
	})
	var open []Span
	for _, cur := range order {
		for len(open) > 0 && open[len(open)-1].End <= cur.Start {
			open = open[:len(open)-1]
		}
		if len(open) > 0 {
			top := open[len(open)-1]
			if cur.End > top.End {
				return apierr.New(apierr.CodeInvalidExcerpt,
					"span [%d, %d) crosses [%d, %d)", cur.Start, cur.End, top.Start, top.End)
			}
		}
		open = append(open, cur)
	}
	return nil
}
