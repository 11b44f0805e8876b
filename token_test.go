package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shellfront/core"
)

func TestTokenKind_StringResolvesKeywordsAndPunctuation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "if", shell.KindIf.String())
	assert.Equal(t, "Bang", shell.KindBang.String())
	assert.Equal(t, "Unknown", shell.TokenKind(0).String())
}

func TestIsKeyword_TrueOnlyForStructuralKeywords(t *testing.T) {
	t.Parallel()

	assert.True(t, shell.IsKeyword(shell.KindIf))
	assert.True(t, shell.IsKeyword(shell.KindFi))
	assert.False(t, shell.IsKeyword(shell.KindIdent))
	assert.False(t, shell.IsKeyword(shell.KindEOF))
}

func TestToken_EOF(t *testing.T) {
	t.Parallel()

	assert.True(t, shell.Token{Kind: shell.KindEOF}.EOF())
	assert.False(t, shell.Token{Kind: shell.KindIdent}.EOF())
}

func TestToken_IsOpenBracketAndIsCloseBracket(t *testing.T) {
	t.Parallel()

	for _, k := range []shell.TokenKind{shell.KindLParen, shell.KindLBracket, shell.KindLBrace} {
		assert.True(t, shell.Token{Kind: k}.IsOpenBracket())
		assert.False(t, shell.Token{Kind: k}.IsCloseBracket())
	}

	for _, k := range []shell.TokenKind{shell.KindRParen, shell.KindRBracket, shell.KindRBrace} {
		assert.True(t, shell.Token{Kind: k}.IsCloseBracket())
		assert.False(t, shell.Token{Kind: k}.IsOpenBracket())
	}

	assert.False(t, shell.Token{Kind: shell.KindIdent}.IsOpenBracket())
	assert.False(t, shell.Token{Kind: shell.KindIdent}.IsCloseBracket())
}
