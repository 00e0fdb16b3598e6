package excerpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisurface/internal/apierr"
)

func sampleSequence() *Sequence {
	return NewSequence([]Token{
		{Kind: Content, Text: "export declare function parse(text: "},
		{Kind: Content, Text: "string"},
		{Kind: Content, Text: "): "},
		{Kind: Reference, Text: "Document", CanonicalReference: "doc!Document:class"},
		{Kind: Content, Text: ";"},
	})
}

func TestNew_Bounds(t *testing.T) {
	t.Parallel()
	seq := sampleSequence()

	tests := []struct {
		name string
		rng  Range
		ok   bool
	}{
		{"whole", Range{0, 5}, true},
		{"middle", Range{1, 2}, true},
		{"empty at end", Range{5, 5}, true},
		{"start after end", Range{3, 2}, false},
		{"end past length", Range{0, 6}, false},
		{"negative start", Range{-1, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ex, err := New(seq, tt.rng)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.rng, ex.Range())
				return
			}
			require.Error(t, err)
			assert.Nil(t, ex)
			assert.True(t, apierr.Is(err, apierr.CodeInvalidExcerpt))
		})
	}
}

func TestExcerpt_Text(t *testing.T) {
	t.Parallel()
	seq := sampleSequence()

	ex, err := New(seq, Range{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "string", ex.Text())
	// Cached value is stable.
	assert.Equal(t, "string", ex.Text())

	whole := Whole(seq)
	assert.Equal(t, "export declare function parse(text: string): Document;", whole.Text())
}

func TestExcerpt_EmptyText(t *testing.T) {
	t.Parallel()

	ex, err := New(sampleSequence(), Range{2, 2})
	require.NoError(t, err)
	assert.True(t, ex.IsEmpty())
	assert.Equal(t, "", ex.Text())
	assert.Nil(t, ex.Tokens())

	none, err := New(nil, Range{0, 0})
	require.NoError(t, err)
	assert.Equal(t, "", none.Text())
}

func TestExcerpt_TokensAreCopies(t *testing.T) {
	t.Parallel()
	seq := sampleSequence()
	ex := Whole(seq)

	toks := ex.Tokens()
	toks[0].Text = "mutated"
	assert.Equal(t, "export declare function parse(text: ", seq.Tokens()[0].Text)
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	text := "function f(a: string, b: number): boolean;"
	// Spans given out of order: return type first.
	spans := []Span{
		{Start: 34, End: 41}, // boolean
		{Start: 14, End: 20}, // string
		{Start: 25, End: 31}, // number
	}
	seq, ranges, err := Tokenize(text, spans)
	require.NoError(t, err)
	require.Len(t, ranges, 3)

	get := func(r Range) string {
		ex, err := New(seq, r)
		require.NoError(t, err)
		return ex.Text()
	}
	assert.Equal(t, "boolean", get(ranges[0]))
	assert.Equal(t, "string", get(ranges[1]))
	assert.Equal(t, "number", get(ranges[2]))
	assert.Equal(t, text, Whole(seq).Text())
}

func TestTokenize_EmptySpan(t *testing.T) {
	t.Parallel()

	seq, ranges, err := Tokenize("abc", []Span{{Start: 1, End: 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, ranges[0].Len())
	assert.Equal(t, "abc", Whole(seq).Text())
}

func TestTokenize_Invalid(t *testing.T) {
	t.Parallel()

	_, _, err := Tokenize("abcdef", []Span{{Start: 0, End: 3}, {Start: 2, End: 4}})
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidExcerpt))

	_, _, err = Tokenize("abc", []Span{{Start: 2, End: 9}})
	require.Error(t, err)
}

func TestTokenize_NestedReference(t *testing.T) {
	t.Parallel()

	text := "function f(w: Array<Widget>): void;"
	spans := []Span{
		{Start: 14, End: 27},                                        // Array<Widget>
		{Start: 20, End: 26, CanonicalReference: "ui!Widget:class"}, // Widget
		{Start: 30, End: 34},                                        // void
	}
	seq, ranges, err := Tokenize(text, spans)
	require.NoError(t, err)

	param, err := New(seq, ranges[0])
	require.NoError(t, err)
	assert.Equal(t, "Array<Widget>", param.Text())
	assert.Equal(t, 3, ranges[0].Len())

	ref := seq.Tokens()[ranges[1].Start]
	assert.Equal(t, Reference, ref.Kind)
	assert.Equal(t, "Widget", ref.Text)
	assert.Equal(t, "ui!Widget:class", ref.CanonicalReference)
	assert.Equal(t, text, Whole(seq).Text())
}

func TestTokenize_ReferenceMustBeOneToken(t *testing.T) {
	t.Parallel()

	_, _, err := Tokenize("Map<K, V>", []Span{
		{Start: 0, End: 9, CanonicalReference: "x!Map"},
		{Start: 4, End: 5},
	})
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidExcerpt))
}

func TestTokenize_EmptyText(t *testing.T) {
	t.Parallel()

	seq, ranges, err := Tokenize("", []Span{{}})
	require.NoError(t, err)
	assert.Equal(t, 0, seq.Len())
	assert.Equal(t, Range{}, ranges[0])
}
