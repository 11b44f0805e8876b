package analysis

import "github.com/shellfront/core"

// ContextKind names the kind of construct a SemanticContext was opened for,
// per §3's semantic-context tree.
type ContextKind int

const (
	ContextScript ContextKind = iota
	ContextBlock
	ContextConditional
	ContextLoop
	ContextPipeline
	ContextCommand
	ContextFunction
	ContextSubshell
)

// String implements fmt.Stringer.
func (k ContextKind) String() string {
	switch k {
	case ContextScript:
		return "script"
	case ContextBlock:
		return "block"
	case ContextConditional:
		return "conditional"
	case ContextLoop:
		return "loop"
	case ContextPipeline:
		return "pipeline"
	case ContextCommand:
		return "command"
	case ContextFunction:
		return "function"
	case ContextSubshell:
		return "subshell"
	default:
		return "unknown"
	}
}

// SemanticContext is one node of the §3 context tree built by the
// context-analysis pass (stage 5): a kind, a nesting depth, an optional
// parent, the span of the construct that opened it, and a free-form
// property bag the context-analysis pass fills with construct details
// (a loop's variable, a pipeline's kind); no other pass writes to it. Grounded
// on shell.Scope's tree shape, repurposed from a name→symbol map to a
// kind→property bag since a semantic context tracks "what is this code
// doing" rather than "what names are visible here".
type SemanticContext struct {
	Kind       ContextKind
	Depth      int
	Parent     *SemanticContext
	Span       shell.Span
	Properties map[string]any
}

func newContext(kind ContextKind, parent *SemanticContext, span shell.Span) *SemanticContext {
	depth := 0
	if parent != nil {
		depth = parent.Depth + 1
	}

	return &SemanticContext{Kind: kind, Depth: depth, Parent: parent, Span: span, Properties: make(map[string]any)}
}

// InLoop reports whether c or any ancestor is a loop context, used by the
// context-analysis pass to flag break/continue outside a loop.
func (c *SemanticContext) InLoop() bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur.Kind == ContextLoop {
			return true
		}
	}

	return false
}

// InFunction reports whether c or any ancestor is a function context, used
// to flag a return statement outside any function body.
func (c *SemanticContext) InFunction() bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur.Kind == ContextFunction {
			return true
		}
	}

	return false
}

// contextStack is the "stack of contexts...maintained during analysis" §3
// calls for: a simple linked stack since the context tree is only ever
// walked top-down during a single pass.
type contextStack struct {
	top *SemanticContext
}

func newContextStack(root *SemanticContext) *contextStack {
	return &contextStack{top: root}
}

func (s *contextStack) push(kind ContextKind, span shell.Span) *SemanticContext {
	s.top = newContext(kind, s.top, span)

	return s.top
}

func (s *contextStack) pop() {
	if s.top != nil {
		s.top = s.top.Parent
	}
}

func (s *contextStack) current() *SemanticContext {
	return s.top
}
