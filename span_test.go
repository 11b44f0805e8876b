package shell_test

import (
	"testing"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/stretchr/testify/assert"

	"github.com/shellfront/core"
)

func TestSpan_IsUnknownForZeroValue(t *testing.T) {
	t.Parallel()

	var s shell.Span
	assert.True(t, s.IsUnknown())

	s = shell.Span{Start: lexer.Position{Offset: 0}, End: lexer.Position{Offset: 1}}
	assert.False(t, s.IsUnknown())
}

func TestSpan_ContainsChecksByteOffset(t *testing.T) {
	t.Parallel()

	s := shell.Span{
		Start: lexer.Position{Offset: 5},
		End:   lexer.Position{Offset: 10},
	}

	assert.True(t, s.Contains(lexer.Position{Offset: 5}))
	assert.True(t, s.Contains(lexer.Position{Offset: 9}))
	assert.False(t, s.Contains(lexer.Position{Offset: 10}))
	assert.False(t, s.Contains(lexer.Position{Offset: 4}))

	var unknown shell.Span
	assert.False(t, unknown.Contains(lexer.Position{Offset: 0}))
}

func TestSpan_LenIsByteLength(t *testing.T) {
	t.Parallel()

	s := shell.Span{
		Start: lexer.Position{Offset: 5},
		End:   lexer.Position{Offset: 12},
	}
	assert.Equal(t, 7, s.Len())

	var unknown shell.Span
	assert.Equal(t, 0, unknown.Len())
}

func TestSpan_JoinCoversBothOperands(t *testing.T) {
	t.Parallel()

	a := shell.Span{Start: lexer.Position{Offset: 5}, End: lexer.Position{Offset: 10}}
	b := shell.Span{Start: lexer.Position{Offset: 2}, End: lexer.Position{Offset: 7}}

	joined := a.Join(b)
	assert.Equal(t, 2, joined.Start.Offset)
	assert.Equal(t, 10, joined.End.Offset)
}

func TestSpan_JoinWithUnknownReturnsOther(t *testing.T) {
	t.Parallel()

	var unknown shell.Span
	known := shell.Span{Start: lexer.Position{Offset: 1}, End: lexer.Position{Offset: 2}}

	assert.Equal(t, known, unknown.Join(known))
	assert.Equal(t, known, known.Join(unknown))
	assert.True(t, unknown.Join(unknown).IsUnknown())
}
