// Package shell implements the lexer, parser, type system, and AST optimizer
// for a shell-language front end: source text in, a validated, typed AST out.
package shell

import "github.com/alecthomas/participle/v2/lexer"

// Span is a half-open byte range [Start, End) into one source buffer. It
// never owns text; callers resolve it against a SourceSet or SourceFile.
type Span struct {
	Start lexer.Position
	End   lexer.Position
}

// unknownSpan is the zero Span. IsUnknown reports whether a Span carries no
// real position information, which is permitted wherever the grammar cannot
// attribute bytes to a node (synthetic recovery tokens, the empty program).
func (s Span) IsUnknown() bool {
	return s == Span{}
}

// Contains reports whether pos falls within [s.Start, s.End) by byte offset.
// An unknown span never contains anything.
func (s Span) Contains(pos lexer.Position) bool {
	if s.IsUnknown() {
		return false
	}

	return pos.Offset >= s.Start.Offset && pos.Offset < s.End.Offset
}

// Len returns the byte length of the span.
func (s Span) Len() int {
	if s.IsUnknown() {
		return 0
	}

	return s.End.Offset - s.Start.Offset
}

// Join returns the smallest span covering both s and other. An unknown
// operand is ignored; joining two unknown spans yields an unknown span.
func (s Span) Join(other Span) Span {
	switch {
	case s.IsUnknown():
		return other
	case other.IsUnknown():
		return s
	}

	joined := s
	if other.Start.Offset < joined.Start.Offset {
		joined.Start = other.Start
	}

	if other.End.Offset > joined.End.Offset {
		joined.End = other.End
	}

	return joined
}
