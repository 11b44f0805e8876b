package shell

import "github.com/alecthomas/participle/v2/lexer"

// TokenKind is a closed enumeration of lexical token kinds, per §3. Negative
// values follow the participle convention the teacher's lexer.go uses so
// token kinds never collide with participle's reserved non-negative range.
type TokenKind lexer.TokenType

//nolint:mnd // participle convention: negative, descending from EOF
const (
	KindEOF TokenKind = TokenKind(lexer.EOF)

	KindIdent TokenKind = -(iota + 2)
	KindNumberInt
	KindNumberFloat
	KindBoolean
	KindStringSingle // single-quoted: no escape interpretation
	KindStringDouble // double-quoted: escapes interpreted
	KindDollarVar     // $NAME
	KindDollarExpr    // ${...}, inner text captured verbatim
	KindShortFlag     // -x
	KindLongFlag      // --flag
	KindPipe          // |
	KindOrOr          // ||
	KindAndAnd        // &&
	KindSemicolon     // ;
	KindAmpersand     // &
	KindRedirectIn    // <
	KindRedirectOut   // >
	KindRedirectAppend // >>
	KindHereDocStart   // <<
	KindEquals         // =
	KindLBrace
	KindRBrace
	KindLBracket
	KindRBracket
	KindLParen
	KindRParen
	KindComma
	KindDot
	KindColon
	KindBang     // !
	KindArith    // $((...)), inner text captured verbatim
	KindComment
	KindWhitespace
	KindError // illegal byte; offsets stay stable

	// Structural keywords recognized as distinct kinds so the grammar can
	// tell them apart from plain identifiers without a symbol-table lookup.
	KindIf
	KindThen
	KindElse
	KindFi
	KindFor
	KindIn
	KindWhile
	KindDo
	KindDone
	KindCase
	KindEsac
	KindFunction
	KindReturn
	KindBreak
	KindContinue
	KindExport
	KindReadonly
	KindLocal
)

var keywordKinds = map[string]TokenKind{
	"if":       KindIf,
	"then":     KindThen,
	"else":     KindElse,
	"fi":       KindFi,
	"for":      KindFor,
	"in":       KindIn,
	"while":    KindWhile,
	"do":       KindDo,
	"done":     KindDone,
	"case":     KindCase,
	"esac":     KindEsac,
	"function": KindFunction,
	"return":   KindReturn,
	"break":    KindBreak,
	"continue": KindContinue,
	"export":   KindExport,
	"readonly": KindReadonly,
	"local":    KindLocal,
}

// kindNames supplies human-readable names for diagnostics and the CLI's
// `tokens` dump, mirroring the teacher's Symbols() map in lexer.go.
var kindNames = map[TokenKind]string{
	KindEOF:            "EOF",
	KindIdent:          "Ident",
	KindNumberInt:       "Int",
	KindNumberFloat:     "Float",
	KindBoolean:         "Bool",
	KindStringSingle:    "SingleString",
	KindStringDouble:    "DoubleString",
	KindDollarVar:       "DollarVar",
	KindDollarExpr:      "DollarExpr",
	KindShortFlag:       "ShortFlag",
	KindLongFlag:        "LongFlag",
	KindPipe:            "Pipe",
	KindOrOr:            "OrOr",
	KindAndAnd:          "AndAnd",
	KindSemicolon:       "Semicolon",
	KindAmpersand:       "Ampersand",
	KindRedirectIn:      "RedirectIn",
	KindRedirectOut:     "RedirectOut",
	KindRedirectAppend:  "RedirectAppend",
	KindHereDocStart:    "HereDocStart",
	KindEquals:          "Equals",
	KindLBrace:          "LBrace",
	KindRBrace:          "RBrace",
	KindLBracket:        "LBracket",
	KindRBracket:        "RBracket",
	KindLParen:          "LParen",
	KindRParen:          "RParen",
	KindComma:           "Comma",
	KindDot:             "Dot",
	KindColon:           "Colon",
	KindBang:            "Bang",
	KindArith:           "Arith",
	KindComment:         "Comment",
	KindWhitespace:      "Whitespace",
	KindError:           "Error",
}

// tokenKindByName reverses kindNames so a persisted stats document (which
// stores kind names, not raw enum values that could shift between builds)
// can be reloaded back into a TokenKind-keyed map.
var tokenKindByName = map[string]TokenKind{}

func init() {
	for word, kind := range keywordKinds {
		kindNames[kind] = word
	}

	for kind, name := range kindNames {
		tokenKindByName[name] = kind
	}
}

// String implements fmt.Stringer for diagnostics and debugging.
func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "Unknown"
}

// IsKeyword reports whether kind is one of the structural keywords.
func IsKeyword(kind TokenKind) bool {
	for _, k := range keywordKinds {
		if k == kind {
			return true
		}
	}

	return false
}

// Token is one lexeme with its kind, exact source slice, and span. Tokens
// for quoted strings carry the unescaped content in Value; tokens for
// ${...} carry the inner text verbatim; flag tokens carry the flag name
// without leading dashes.
type Token struct {
	Kind  TokenKind
	Raw   string // exact source slice
	Value string // interpreted value (unescaped strings, bare flag name, etc.)
	Span  Span
}

// EOF reports whether t is the terminal end-of-file token.
func (t Token) EOF() bool {
	return t.Kind == KindEOF
}

// IsOpenBracket reports whether t opens a paren/bracket/brace.
func (t Token) IsOpenBracket() bool {
	return t.Kind == KindLParen || t.Kind == KindLBracket || t.Kind == KindLBrace
}

// IsCloseBracket reports whether t closes a paren/bracket/brace.
func (t Token) IsCloseBracket() bool {
	return t.Kind == KindRParen || t.Kind == KindRBracket || t.Kind == KindRBrace
}
