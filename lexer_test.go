package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
)

func tokenize(t *testing.T, src string) ([]shell.Token, []shell.Diagnostic) {
	t.Helper()

	set := shell.NewSourceSet()
	idx := set.Add("<test>", src)

	stream, diags := shell.Tokenize(idx, set)

	return stream.Tokens(), diags
}

func kinds(tokens []shell.Token) []shell.TokenKind {
	out := make([]shell.TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}

	return out
}

func TestTokenize_SimpleCommand(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, "echo hello")
	require.Empty(t, diags)
	require.Len(t, tokens, 3) // echo, hello, EOF
	assert.Equal(t, shell.KindIdent, tokens[0].Kind)
	assert.Equal(t, "echo", tokens[0].Raw)
	assert.Equal(t, shell.KindIdent, tokens[1].Kind)
	assert.True(t, tokens[2].EOF())
}

func TestTokenize_ShortFlagBundleIsOneToken(t *testing.T) {
	t.Parallel()

	// §4.2 rule (v): the lexer emits one token for a `-xyz` bundle; the
	// parser is responsible for splitting it into one flag per letter.
	tokens, diags := tokenize(t, "ls -la")
	require.Empty(t, diags)
	require.Len(t, tokens, 3)
	assert.Equal(t, shell.KindShortFlag, tokens[1].Kind)
	assert.Equal(t, "la", tokens[1].Value)
}

func TestTokenize_LongFlagWithValue(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, "grep --color=auto pattern")
	require.Empty(t, diags)
	require.Len(t, tokens, 6) // grep, --color, =, auto, pattern, EOF
	assert.Equal(t, shell.KindLongFlag, tokens[1].Kind)
	assert.Equal(t, "color", tokens[1].Value)
	assert.Equal(t, shell.KindEquals, tokens[2].Kind)
}

func TestTokenize_BareDashIsNotAFlagValue(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, "cat -")
	require.Empty(t, diags)
	require.Len(t, tokens, 3)
	assert.Equal(t, shell.KindShortFlag, tokens[1].Kind)
	assert.Equal(t, "", tokens[1].Value)
}

func TestTokenize_Strings(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, `echo 'raw $x' "interp $x"`)
	require.Empty(t, diags)
	require.Len(t, tokens, 4)
	assert.Equal(t, shell.KindStringSingle, tokens[1].Kind)
	assert.Equal(t, "raw $x", tokens[1].Value)
	assert.Equal(t, shell.KindStringDouble, tokens[2].Kind)
}

func TestTokenize_UnterminatedStringReportsDiagnostic(t *testing.T) {
	t.Parallel()

	_, diags := tokenize(t, `echo "unterminated`)
	require.NotEmpty(t, diags)
	assert.Equal(t, shell.DiagKindUnterminatedString, diags[0].Kind)
}

func TestTokenize_Numbers(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, "echo 42 3.14")
	require.Empty(t, diags)
	require.Len(t, tokens, 4)
	assert.Equal(t, shell.KindNumberInt, tokens[1].Kind)
	assert.Equal(t, shell.KindNumberFloat, tokens[2].Kind)
}

func TestTokenize_VariablesAndExpressions(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, `echo $HOME ${name} $((1+2))`)
	require.Empty(t, diags)
	require.Len(t, tokens, 5)
	assert.Equal(t, shell.KindDollarVar, tokens[1].Kind)
	assert.Equal(t, "HOME", tokens[1].Value)
	assert.Equal(t, shell.KindDollarExpr, tokens[2].Kind)
	assert.Equal(t, shell.KindArith, tokens[3].Kind)
}

func TestTokenize_Operators(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, "a | b && c || d ; e & f")
	require.Empty(t, diags)

	got := kinds(tokens)
	assert.Contains(t, got, shell.KindPipe)
	assert.Contains(t, got, shell.KindAndAnd)
	assert.Contains(t, got, shell.KindOrOr)
	assert.Contains(t, got, shell.KindSemicolon)
	assert.Contains(t, got, shell.KindAmpersand)
}

func TestTokenize_Keywords(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, "if true then echo yes else echo no fi")
	require.Empty(t, diags)
	assert.Equal(t, shell.KindIf, tokens[0].Kind)
	assert.Equal(t, shell.KindBoolean, tokens[1].Kind)
	assert.Equal(t, shell.KindThen, tokens[2].Kind)
}

func TestTokenize_IllegalCharacter(t *testing.T) {
	t.Parallel()

	_, diags := tokenize(t, "echo \x01")
	require.NotEmpty(t, diags)
	assert.Equal(t, shell.DiagKindIllegalCharacter, diags[0].Kind)
}

func TestTokenize_EmptyInputIsJustEOF(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, "")
	require.Empty(t, diags)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].EOF())
}

// TestTokenize_TokenSpansTileSourceInOrderWithoutOverlap checks the lexer's
// tiling law: successive tokens never overlap and never run backwards, so a
// span's byte range always identifies one unambiguous slice of source even
// though whitespace and comments between tokens are dropped rather than
// emitted as tokens of their own.
func TestTokenize_TokenSpansTileSourceInOrderWithoutOverlap(t *testing.T) {
	t.Parallel()

	tokens, diags := tokenize(t, `grep --color=auto 'raw $x' "interp" $HOME ${x} $((1+2)) | wc -l`)
	require.Empty(t, diags)
	require.NotEmpty(t, tokens)

	for _, tok := range tokens {
		if tok.EOF() {
			continue
		}

		assert.LessOrEqual(t, tok.Span.Start.Offset, tok.Span.End.Offset,
			"token %q has an inverted span", tok.Raw)
	}

	for i := 1; i < len(tokens); i++ {
		prev, cur := tokens[i-1], tokens[i]
		assert.LessOrEqual(t, prev.Span.End.Offset, cur.Span.Start.Offset,
			"token %q at %d overlaps preceding token %q ending at %d",
			cur.Raw, cur.Span.Start.Offset, prev.Raw, prev.Span.End.Offset)
	}
}
