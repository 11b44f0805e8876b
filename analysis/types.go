// Package analysis implements the ten staged semantic-analysis passes of
// §4.7 over a parsed shell AST: variable resolution, path validation,
// command validation, type checking, context analysis, data-flow analysis,
// resource-use classification, parallelizability, static optimization
// hints, and security analysis.
package analysis

import (
	"github.com/shellfront/core"
)

// AnalyzedProgram holds semantic analysis results for a single parsed file,
// mirroring the teacher's analysis.AnalyzedFile shape (Path/Suite/
// ParseError/Diagnostics/Symbols) generalized from a scaf.Suite to a
// shell.Program.
type AnalyzedProgram struct {
	// Path is the source file path.
	Path string

	// Program is the parsed AST. Nil if parsing failed completely.
	Program *shell.Program

	// Diagnostics accumulates every diagnostic produced by the lexer,
	// parser, and every analysis pass that ran.
	Diagnostics []shell.Diagnostic

	// Symbols is the scope tree built by the variable-resolution pass.
	Symbols *shell.SymbolTable

	// Purity maps NodeID to whether that subtree is known side-effect-free,
	// produced by the resource-use pass and consumed by the optimizer.
	Purity map[shell.NodeID]bool

	// Parallelizable lists the NodeIDs of Pipeline stages the
	// parallelizability pass found safe to run concurrently.
	Parallelizable map[shell.NodeID]bool

	// Hints carries the static-optimization-hint pass's suggestions,
	// independent of whether the optimizer actually applied them.
	Hints []Hint

	// Contexts maps a node that opens a new §3 semantic context (Command,
	// Pipeline, If, For, While, FunctionDef, Subshell, Block, Program) to
	// that context, built by the context-analysis pass (stage 5). No later
	// pass reads it; it is exposed for callers.
	Contexts map[shell.NodeID]*SemanticContext

	// Parents is the parent-id side table for Program, built once after
	// parsing so every later pass can walk upward without re-deriving
	// ancestry from Children().
	Parents shell.ParentIndex
}

// Hint is one static-optimization suggestion from pass 9: a span and a
// short message.
type Hint struct {
	Span    shell.Span
	Message string
}

// AddDiagnostic appends d to the program's running diagnostic list.
func (p *AnalyzedProgram) AddDiagnostic(d shell.Diagnostic) {
	p.Diagnostics = append(p.Diagnostics, d)
}

// HasErrors reports whether any diagnostic reached error severity.
func (p *AnalyzedProgram) HasErrors() bool {
	return shell.HasErrors(p.Diagnostics)
}
