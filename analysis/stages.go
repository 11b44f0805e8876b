package analysis

import (
	"fmt"

	"github.com/shellfront/core"
)

// DefaultStages returns the ten §4.7 semantic-analysis passes in their
// required order. Grounded on the teacher's analysis.DefaultRules, which
// returned a flat slice of independent checks; here the passes are
// ordered and some populate AnalyzedProgram fields other stages read
// (Symbols feeds data-flow, Purity feeds parallelizability) rather than
// only appending diagnostics.
func DefaultStages() []*Stage {
	return []*Stage{
		{
			Name: "variable-resolution",
			Doc:  "resolves every variable reference and function call against the lexical scope tree",
			Run:  stageVariableResolution,
		},
		{
			Name: "path-validation",
			Doc:  "checks literal path arguments and glob patterns against the filesystem probe",
			Run:  stagePathValidation,
		},
		{
			Name: "command-validation",
			Doc:  "checks command names, arity, and flags against the command registry",
			Run:  stageCommandValidation,
		},
		{
			Name: "type-check",
			Doc:  "runs the §4.6 constraint solver over literal and operator expressions",
			Run:  stageTypeCheck,
		},
		{
			Name: "context-analysis",
			Doc:  "builds the §3 semantic context tree and validates break/continue/return placement",
			Run:  stageContextAnalysis,
		},
		{
			Name: "data-flow",
			Doc:  "flags variables read before assignment and statements unreachable after a terminal statement",
			Run:  stageDataFlow,
		},
		{
			Name: "resource-use",
			Doc:  "classifies every subtree's purity from the command registry, for the optimizer",
			Run:  stageResourceUse,
		},
		{
			Name: "parallelizability",
			Doc:  "marks pipe pipelines whose stages have no side effects beyond I/O as safe to run concurrently",
			Run:  stageParallelizability,
		},
		{
			Name: "optimization-hints",
			Doc:  "suggests idiomatic replacements for common pipeline patterns",
			Run:  stageOptimizationHints,
		},
		{
			Name: "security-analysis",
			Doc:  "flags eval, dynamically-named commands, and unquoted path arguments",
			Run:  stageSecurityAnalysis,
		},
	}
}

// --- pass 1: variable resolution -----------------------------------------

// varResolver walks the AST once, building the scope tree and recording
// every definition and reference it sees along the way.
type varResolver struct {
	table *shell.SymbolTable
	prog  *AnalyzedProgram
	env   shell.EnvironmentResolver
}

func stageVariableResolution(a *Analyzer, p *AnalyzedProgram) {
	table := shell.NewSymbolTable()
	p.Symbols = table

	r := &varResolver{table: table, prog: p, env: a.Env}
	r.visit(p.Program, table.Root)
	r.reportUnused()
}

//nolint:cyclop // exhaustive type switch over the node sum type, same shape as ast.go's setNodeID
func (r *varResolver) visit(n shell.Node, scope *shell.Scope) {
	if n == nil {
		return
	}

	switch v := n.(type) {
	case *shell.Program:
		for _, s := range v.Statements {
			r.visit(s, scope)
		}
	case *shell.Block:
		child := r.table.Push(scope, "block", v.Span())
		for _, s := range v.Statements {
			r.visit(s, child)
		}
	case *shell.Group:
		// A Group shares its parent's scope; only Block and the constructs
		// that embed one (Subshell, loops, function bodies) open a new one.
		for _, s := range v.Body.Statements {
			r.visit(s, scope)
		}
	case *shell.Subshell:
		child := r.table.Push(scope, "subshell", v.Span())
		for _, s := range v.Body.Statements {
			r.visit(s, child)
		}
	case *shell.FunctionDef:
		scope.Define(&shell.Symbol{Name: v.Name, Kind: shell.SymbolFunction, DefSpan: v.Span(), Initialized: true})

		fnScope := r.table.Push(scope, "function:"+v.Name, v.Span())

		for _, param := range v.Parameters {
			if param.Default != nil {
				r.visit(param.Default, scope)
			}

			fnScope.Define(&shell.Symbol{Name: param.Name, Kind: shell.SymbolParameter, DefSpan: param.Span(), Initialized: true})
		}

		for _, s := range v.Body.Statements {
			r.visit(s, fnScope)
		}
	case *shell.For:
		r.visit(v.Iterable, scope)

		loopScope := r.table.Push(scope, "for", v.Span())
		loopScope.Define(&shell.Symbol{Name: v.Variable, Kind: shell.SymbolLocal, DefSpan: v.Span(), Initialized: true})

		for _, s := range v.Body.Statements {
			r.visit(s, loopScope)
		}
	case *shell.While:
		r.visit(v.Condition, scope)

		loopScope := r.table.Push(scope, "while", v.Span())
		for _, s := range v.Body.Statements {
			r.visit(s, loopScope)
		}
	case *shell.If:
		r.visit(v.Condition, scope)

		thenScope := r.table.Push(scope, "block", v.Then.Span())
		for _, s := range v.Then.Statements {
			r.visit(s, thenScope)
		}

		if v.Else != nil {
			r.visit(v.Else, scope)
		}
	case *shell.Case:
		r.visit(v.Subject, scope)

		for _, clause := range v.Clauses {
			for _, pat := range clause.Patterns {
				r.visit(pat, scope)
			}

			clauseScope := r.table.Push(scope, "case", clause.Span())
			for _, s := range clause.Body.Statements {
				r.visit(s, clauseScope)
			}
		}
	case *shell.VariableAssignment:
		if v.Value != nil {
			r.visit(v.Value, scope)
		}

		r.defineAssignment(v, scope)
	case *shell.VariableReference:
		r.resolveReference(v, scope)

		if v.Default != nil {
			r.visit(v.Default, scope)
		}
	case *shell.FunctionCall:
		if sym, _ := scope.Resolve(v.Name); sym != nil {
			sym.AddReference(v.Span())
		} else {
			r.prog.AddDiagnostic(shell.Diagnostic{
				Span: v.Span(), Severity: shell.SeverityWarning, Kind: shell.DiagKindUndefinedFunction,
				Message: fmt.Sprintf("call to undefined function %q", v.Name), Source: "variable-resolution",
			})
		}

		for _, arg := range v.Args {
			r.visit(arg, scope)
		}
	case *shell.Command:
		r.visit(v.Name, scope)

		for _, arg := range v.Args {
			r.visit(arg, scope)
		}

		for _, flag := range v.Flags {
			if flag.Value != nil {
				r.visit(flag.Value, scope)
			}
		}

		for _, redir := range v.Redirections {
			if redir.Target != nil {
				r.visit(redir.Target, scope)
			}
		}
	default:
		for _, c := range n.Children() {
			r.visit(c, scope)
		}
	}
}

func (r *varResolver) defineAssignment(v *shell.VariableAssignment, scope *shell.Scope) {
	if existing, ok := scope.DefineLocal(v.Name); ok && existing.Kind == shell.SymbolConstant {
		r.prog.AddDiagnostic(shell.Diagnostic{
			Span: v.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindReadonlyAssignment,
			Message: fmt.Sprintf("cannot reassign readonly variable %q", v.Name), Source: "variable-resolution",
		})

		return
	}

	kind := shell.SymbolGlobal

	switch {
	case v.Readonly:
		kind = shell.SymbolConstant
	case v.Exported:
		kind = shell.SymbolExported
	case v.Local:
		kind = shell.SymbolLocal
	}

	scope.Define(&shell.Symbol{Name: v.Name, Kind: kind, DefSpan: v.Span(), Initialized: v.Value != nil})
}

func (r *varResolver) resolveReference(v *shell.VariableReference, scope *shell.Scope) {
	if sym, _ := scope.Resolve(v.Name); sym != nil {
		sym.AddReference(v.Span())

		return
	}

	if r.env != nil {
		if _, ok := r.env.Lookup(v.Name); ok {
			return
		}
	}

	if v.Default != nil {
		// `${name:-default}` treats an unset name as intentional.
		return
	}

	r.prog.AddDiagnostic(shell.Diagnostic{
		Span: v.Span(), Severity: shell.SeverityWarning, Kind: shell.DiagKindUndefinedVariable,
		Message: fmt.Sprintf("%q is never defined", v.Name), Source: "variable-resolution",
	})
}

func (r *varResolver) reportUnused() {
	r.table.Walk(func(s *shell.Scope) {
		for _, sym := range s.Local() {
			switch sym.Kind {
			case shell.SymbolLocal, shell.SymbolGlobal, shell.SymbolConstant:
				if len(sym.RefSpans) == 0 {
					r.prog.AddDiagnostic(shell.Diagnostic{
						Span: sym.DefSpan, Severity: shell.SeverityWarning, Kind: shell.DiagKindUnusedVariable,
						Message: fmt.Sprintf("%q is assigned but never used", sym.Name), Source: "variable-resolution",
					})
				}
			}
		}
	})
}

// --- pass 2: path validation ----------------------------------------------

func stagePathValidation(a *Analyzer, p *AnalyzedProgram) {
	if a.FS == nil {
		return
	}

	shell.Walk(p.Program, func(n shell.Node) bool {
		cmd, ok := n.(*shell.Command)
		if !ok {
			return true
		}

		name, hasName := commandName(cmd)

		var spec *shell.CommandSpec
		if hasName && a.Commands != nil {
			spec, _ = a.Commands.Lookup(name)
		}

		for i, arg := range cmd.Args {
			checkPathArg(a, p, spec, i, arg)
		}

		return true
	})
}

func checkPathArg(a *Analyzer, p *AnalyzedProgram, spec *shell.CommandSpec, index int, arg *shell.Argument) {
	text, ok := literalText(arg)
	if !ok {
		return
	}

	if _, isGlob := arg.Value.(*shell.PathExpansion); isGlob {
		matches, err := a.FS.Glob(text)
		if err == nil && len(matches) == 0 {
			p.AddDiagnostic(shell.Diagnostic{
				Span: arg.Span(), Severity: shell.SeverityInfo, Kind: shell.DiagKindInvalidPath,
				Message: fmt.Sprintf("pattern %q matches no files", text), Source: "path-validation",
			})
		}

		return
	}

	if spec != nil && spec.ArgType(index).Kind == shell.TypePath && !a.FS.Exists(text) {
		p.AddDiagnostic(shell.Diagnostic{
			Span: arg.Span(), Severity: shell.SeverityWarning, Kind: shell.DiagKindInvalidPath,
			Message: fmt.Sprintf("path %q does not exist", text), Source: "path-validation",
		})
	}
}

// --- pass 3: command validation --------------------------------------------

func stageCommandValidation(a *Analyzer, p *AnalyzedProgram) {
	if a.Commands == nil {
		return
	}

	shell.Walk(p.Program, func(n shell.Node) bool {
		cmd, ok := n.(*shell.Command)
		if !ok {
			return true
		}

		name, ok := commandName(cmd)
		if !ok {
			// Dynamically-named command; only checkable at run time.
			return true
		}

		spec, found := a.Commands.Lookup(name)
		if !found {
			reportUnknownCommand(a, p, cmd, name)

			return true
		}

		checkArity(p, cmd, name, spec)
		checkFlags(p, cmd, name, spec)

		return true
	})
}

func reportUnknownCommand(a *Analyzer, p *AnalyzedProgram, cmd *shell.Command, name string) {
	msg := fmt.Sprintf("unknown command %q", name)

	var fixes []shell.Fix

	if best, dist := nearestName(name, a.Commands.Names()); dist >= 0 && dist <= 2 && best != name {
		msg = fmt.Sprintf("unknown command %q (did you mean %q?)", name, best)
		fixes = []shell.Fix{{Span: cmd.Name.Span(), Replacement: best, Description: fmt.Sprintf("replace with %q", best)}}
	}

	p.AddDiagnostic(shell.Diagnostic{
		Span: cmd.Name.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUndefinedCommand,
		Message: msg, Fixes: fixes, Source: "command-validation",
	})
}

func checkArity(p *AnalyzedProgram, cmd *shell.Command, name string, spec *shell.CommandSpec) {
	argc := len(cmd.Args)
	if argc >= spec.MinArgs && (spec.MaxArgs < 0 || argc <= spec.MaxArgs) {
		return
	}

	p.AddDiagnostic(shell.Diagnostic{
		Span: cmd.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUnexpectedToken,
		Message: fmt.Sprintf("%s takes %s, got %d", name, arityDescription(spec), argc), Source: "command-validation",
	})
}

func arityDescription(spec *shell.CommandSpec) string {
	switch {
	case spec.MaxArgs < 0 && spec.MinArgs == 0:
		return "any number of arguments"
	case spec.MaxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", spec.MinArgs)
	case spec.MinArgs == spec.MaxArgs:
		return fmt.Sprintf("exactly %d argument(s)", spec.MinArgs)
	default:
		return fmt.Sprintf("between %d and %d arguments", spec.MinArgs, spec.MaxArgs)
	}
}

func checkFlags(p *AnalyzedProgram, cmd *shell.Command, name string, spec *shell.CommandSpec) {
	seen := make(map[string]bool, len(cmd.Flags))

	for _, flag := range cmd.Flags {
		fs, ok := spec.FlagSpec(flag.Name, flag.Long)
		if !ok {
			p.AddDiagnostic(shell.Diagnostic{
				Span: flag.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUnexpectedToken,
				Message: fmt.Sprintf("%s: unknown flag %q", name, flagDisplay(flag)), Source: "command-validation",
			})

			continue
		}

		seen[fs.Name] = true

		if fs.TakesValue && flag.Value == nil {
			p.AddDiagnostic(shell.Diagnostic{
				Span: flag.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUnexpectedEOF,
				Message: fmt.Sprintf("%s: flag %q requires a value", name, flagDisplay(flag)), Source: "command-validation",
			})
		}
	}

	for _, fs := range spec.Flags {
		if fs.Required && !seen[fs.Name] {
			p.AddDiagnostic(shell.Diagnostic{
				Span: cmd.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUnexpectedEOF,
				Message: fmt.Sprintf("%s: missing required flag %q", name, fs.Name), Source: "command-validation",
			})
		}
	}
}

func flagDisplay(f *shell.Flag) string {
	if f.Long {
		return "--" + f.Name
	}

	return "-" + f.Name
}

// --- pass 4: type check -----------------------------------------------------

// stageTypeCheck runs the §4.6 constraint solver over literal and operator
// expressions only: it does not unify a VariableAssignment's value type
// into the symbol table, since Symbol carries no NodeID to solve back
// against. That narrower scope catches the arithmetic/comparison/logical
// misuses §8's scenarios exercise without requiring Symbol to grow a
// NodeID it would otherwise never need.
func stageTypeCheck(a *Analyzer, p *AnalyzedProgram) {
	var ids []shell.NodeID

	shell.Walk(p.Program, func(n shell.Node) bool {
		ids = append(ids, n.ID())

		return true
	})

	inf := shell.NewInference(ids)

	var constraints []shell.Constraint

	shell.Walk(p.Program, func(n shell.Node) bool {
		constraints = append(constraints, typeConstraintsFor(n)...)

		return true
	})

	for _, d := range inf.Solve(constraints) {
		p.AddDiagnostic(d)
	}
}

//nolint:cyclop // flat enumeration over node/operator shapes, not nested branching
func typeConstraintsFor(n shell.Node) []shell.Constraint {
	switch v := n.(type) {
	case *shell.StringLiteral:
		return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.String, Span: v.Span()}}
	case *shell.NumberLiteral:
		t := shell.Integer
		if v.IsFloat {
			t = shell.Float
		}

		return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: t, Span: v.Span()}}
	case *shell.BooleanLiteral:
		return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.Boolean, Span: v.Span()}}
	case *shell.PathExpansion:
		return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.Path, Span: v.Span()}}
	case *shell.ArrayLiteral:
		return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.ArrayOf(shell.Any), Span: v.Span()}}
	case *shell.MapLiteral:
		return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.MapOf(shell.Any, shell.Any), Span: v.Span()}}
	case *shell.Argument:
		if v.Value == nil {
			return nil
		}

		return []shell.Constraint{{Kind: shell.ConstraintEquals, A: v.ID(), B: v.Value.ID(), Span: v.Span()}}
	case *shell.UnaryOp:
		if v.Op == "!" {
			return []shell.Constraint{
				{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.Boolean, Span: v.Span()},
				{Kind: shell.ConstraintDirect, A: v.Operand.ID(), DirectType: shell.Boolean, Span: v.Span()},
			}
		}

		return []shell.Constraint{{Kind: shell.ConstraintEquals, A: v.ID(), B: v.Operand.ID(), Span: v.Span()}}
	case *shell.BinaryOp:
		switch v.Op {
		case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
			return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.Boolean, Span: v.Span()}}
		default:
			return []shell.Constraint{
				{Kind: shell.ConstraintEquals, A: v.LHS.ID(), B: v.RHS.ID(), Span: v.Span()},
				{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.Integer, Span: v.Span()},
			}
		}
	case *shell.FunctionCall:
		return []shell.Constraint{{Kind: shell.ConstraintDirect, A: v.ID(), DirectType: shell.Any, Span: v.Span()}}
	default:
		return nil
	}
}

// --- pass 5: context analysis -----------------------------------------------

func stageContextAnalysis(_ *Analyzer, p *AnalyzedProgram) {
	p.Contexts = make(map[shell.NodeID]*SemanticContext)

	stack := newContextStack(nil)
	buildContext(p, p.Program, stack)
}

//nolint:cyclop // exhaustive type switch over the node sum type
func buildContext(p *AnalyzedProgram, n shell.Node, stack *contextStack) {
	if n == nil {
		return
	}

	switch v := n.(type) {
	case *shell.Program:
		ctx := stack.push(ContextScript, v.Span())
		p.Contexts[v.ID()] = ctx

		for _, s := range v.Statements {
			buildContext(p, s, stack)
		}

		stack.pop()
	case *shell.Block:
		ctx := stack.push(ContextBlock, v.Span())
		p.Contexts[v.ID()] = ctx

		for _, s := range v.Statements {
			buildContext(p, s, stack)
		}

		stack.pop()
	case *shell.Subshell:
		ctx := stack.push(ContextSubshell, v.Span())
		p.Contexts[v.ID()] = ctx
		buildContext(p, v.Body, stack)
		stack.pop()
	case *shell.FunctionDef:
		ctx := stack.push(ContextFunction, v.Span())
		p.Contexts[v.ID()] = ctx
		buildContext(p, v.Body, stack)
		stack.pop()
	case *shell.If:
		ctx := stack.push(ContextConditional, v.Span())
		p.Contexts[v.ID()] = ctx
		buildContext(p, v.Condition, stack)
		buildContext(p, v.Then, stack)

		if v.Else != nil {
			buildContext(p, v.Else, stack)
		}

		stack.pop()
	case *shell.Case:
		ctx := stack.push(ContextConditional, v.Span())
		p.Contexts[v.ID()] = ctx
		buildContext(p, v.Subject, stack)

		for _, clause := range v.Clauses {
			for _, pat := range clause.Patterns {
				buildContext(p, pat, stack)
			}

			buildContext(p, clause.Body, stack)
		}

		stack.pop()
	case *shell.For:
		ctx := stack.push(ContextLoop, v.Span())
		ctx.Properties["variable"] = v.Variable
		p.Contexts[v.ID()] = ctx
		buildContext(p, v.Iterable, stack)
		buildContext(p, v.Body, stack)
		stack.pop()
	case *shell.While:
		ctx := stack.push(ContextLoop, v.Span())
		p.Contexts[v.ID()] = ctx
		buildContext(p, v.Condition, stack)
		buildContext(p, v.Body, stack)
		stack.pop()
	case *shell.Pipeline:
		ctx := stack.push(ContextPipeline, v.Span())
		ctx.Properties["kind"] = v.Kind
		p.Contexts[v.ID()] = ctx

		for _, e := range v.Elements {
			buildContext(p, e, stack)
		}

		stack.pop()
	case *shell.Command:
		ctx := stack.push(ContextCommand, v.Span())
		p.Contexts[v.ID()] = ctx
		stack.pop()
	case *shell.Break:
		if !stack.current().InLoop() {
			p.AddDiagnostic(shell.Diagnostic{
				Span: v.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUnexpectedToken,
				Message: "break outside a loop", Source: "context-analysis",
			})
		}
	case *shell.Continue:
		if !stack.current().InLoop() {
			p.AddDiagnostic(shell.Diagnostic{
				Span: v.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUnexpectedToken,
				Message: "continue outside a loop", Source: "context-analysis",
			})
		}
	case *shell.Return:
		if !stack.current().InFunction() {
			p.AddDiagnostic(shell.Diagnostic{
				Span: v.Span(), Severity: shell.SeverityError, Kind: shell.DiagKindUnexpectedToken,
				Message: "return outside a function", Source: "context-analysis",
			})
		}

		if v.Value != nil {
			buildContext(p, v.Value, stack)
		}
	default:
		for _, c := range n.Children() {
			buildContext(p, c, stack)
		}
	}
}

// --- pass 6: data-flow analysis ---------------------------------------------

// stageDataFlow is an approximate reaching-definitions check: it tracks
// variable names assigned earlier in traversal order (flat per function,
// not per-branch) and flags statements following a Return/Break/Continue
// within the same statement list. It does not build a control-flow graph:
// a variable assigned only on one branch of an `if` is treated as defined
// afterward, matching the common-case shell idiom of unconditional
// fallback assignment rather than flagging every conditional initialization.
func stageDataFlow(a *Analyzer, p *AnalyzedProgram) {
	dataFlowWalker{a: a, p: p, defined: map[string]bool{}}.walk(p.Program)
}

type dataFlowWalker struct {
	a       *Analyzer
	p       *AnalyzedProgram
	defined map[string]bool
}

func (w dataFlowWalker) visitBlock(stmts []shell.Node) {
	terminated := false

	for _, s := range stmts {
		if terminated {
			w.p.AddDiagnostic(shell.Diagnostic{
				Span: s.Span(), Severity: shell.SeverityWarning, Kind: shell.DiagKindUnreachableCode,
				Message: "unreachable statement", Source: "data-flow",
			})
		}

		w.walk(s)

		switch s.(type) {
		case *shell.Return, *shell.Break, *shell.Continue:
			terminated = true
		}
	}
}

//nolint:cyclop // exhaustive type switch over the node sum type
func (w dataFlowWalker) walk(n shell.Node) {
	if n == nil {
		return
	}

	switch v := n.(type) {
	case *shell.Program:
		w.visitBlock(v.Statements)
	case *shell.Block:
		w.visitBlock(v.Statements)
	case *shell.VariableAssignment:
		if v.Value != nil {
			w.walk(v.Value)
		}

		w.defined[v.Name] = true
	case *shell.VariableReference:
		if !w.defined[v.Name] && v.Default == nil && !w.knownToEnvironment(v.Name) {
			w.p.AddDiagnostic(shell.Diagnostic{
				Span: v.Span(), Severity: shell.SeverityInfo, Kind: shell.DiagKindUndefinedVariable,
				Message: fmt.Sprintf("%q is read before any assignment reaches this point", v.Name), Source: "data-flow",
			})
		}

		if v.Default != nil {
			w.walk(v.Default)
		}
	case *shell.For:
		w.walk(v.Iterable)
		w.defined[v.Variable] = true
		w.visitBlock(v.Body.Statements)
	case *shell.While:
		w.walk(v.Condition)
		w.visitBlock(v.Body.Statements)
	case *shell.If:
		w.walk(v.Condition)
		w.visitBlock(v.Then.Statements)

		if v.Else != nil {
			w.walk(v.Else)
		}
	case *shell.FunctionDef:
		saved := w.defined
		local := make(map[string]bool, len(saved))

		for k := range saved {
			local[k] = true
		}

		for _, param := range v.Parameters {
			local[param.Name] = true

			if param.Default != nil {
				w.walk(param.Default)
			}
		}

		inner := dataFlowWalker{a: w.a, p: w.p, defined: local}
		inner.visitBlock(v.Body.Statements)
	default:
		for _, c := range n.Children() {
			w.walk(c)
		}
	}
}

func (w dataFlowWalker) knownToEnvironment(name string) bool {
	if w.a.Env == nil {
		return false
	}

	_, ok := w.a.Env.Lookup(name)

	return ok
}

// --- pass 7: resource-use & side-effect classification ----------------------

// stageResourceUse populates p.Purity for every node reachable from the
// root, post-order: a Command is pure iff the registry says so; every
// other node is pure iff all of its children are. Absence from the map
// (e.g. a.Commands is nil, so the walk never runs) means "unknown",
// matching the documented default of the Optimizer.Purity field.
func stageResourceUse(a *Analyzer, p *AnalyzedProgram) {
	if a.Commands == nil || p.Program == nil {
		return
	}

	markPurity(p.Program, a.Commands, p.Purity)
}

func markPurity(n shell.Node, commands shell.CommandRegistry, out map[shell.NodeID]bool) bool {
	pure := true

	if cmd, ok := n.(*shell.Command); ok {
		name, hasName := commandName(cmd)

		spec, found := commands.Lookup(name)
		pure = hasName && found && spec.Purity == shell.PurityPure
	}

	for _, c := range n.Children() {
		if !markPurity(c, commands, out) {
			pure = false
		}
	}

	out[n.ID()] = pure

	return pure
}

// --- pass 8: parallelizability -----------------------------------------------

// stageParallelizability marks a `|` Pipeline's NodeID when every element
// is a Command the registry knows and none is side-effecting — I/O
// commands (cat, grep) are fine, since streaming concurrently through a
// pipe is exactly what makes a pipeline work; a side-effecting command
// (export, cd) sharing state with the rest of the script is not.
func stageParallelizability(a *Analyzer, p *AnalyzedProgram) {
	if a.Commands == nil {
		return
	}

	shell.Walk(p.Program, func(n shell.Node) bool {
		pipe, ok := n.(*shell.Pipeline)
		if !ok || pipe.Kind != shell.PipelinePipe {
			return true
		}

		if pipelineSafeToParallelize(a, pipe) {
			p.Parallelizable[pipe.ID()] = true
		}

		return true
	})
}

func pipelineSafeToParallelize(a *Analyzer, pipe *shell.Pipeline) bool {
	for _, elem := range pipe.Elements {
		cmd, ok := elem.(*shell.Command)
		if !ok {
			return false
		}

		name, hasName := commandName(cmd)
		if !hasName {
			return false
		}

		spec, found := a.Commands.Lookup(name)
		if !found || spec.Purity == shell.PuritySideEffecting {
			return false
		}
	}

	return true
}

// --- pass 9: static optimization hints ---------------------------------------

// hintPattern names one idiomatic replacement for two adjacent `|` stages.
// Grounded on the teacher's Rule{Name, Doc, ...} shape, narrowed to a plain
// data table since every hint here is the same "adjacent command pair"
// shape rather than needing a distinct Run closure per entry.
type hintPattern struct {
	first, second, message string
}

var hintPatterns = []hintPattern{
	{"cat", "grep", "pipe grep directly over the file instead of `cat file | grep pattern`"},
	{"cat", "sort", "`sort file` replaces `cat file | sort`"},
	{"sort", "uniq", "`sort -u` replaces `sort | uniq`"},
}

func stageOptimizationHints(_ *Analyzer, p *AnalyzedProgram) {
	shell.Walk(p.Program, func(n shell.Node) bool {
		pipe, ok := n.(*shell.Pipeline)
		if !ok || pipe.Kind != shell.PipelinePipe {
			return true
		}

		for i := 0; i+1 < len(pipe.Elements); i++ {
			left, lok := pipe.Elements[i].(*shell.Command)
			right, rok := pipe.Elements[i+1].(*shell.Command)

			if !lok || !rok {
				continue
			}

			ln, lok2 := commandName(left)
			rn, rok2 := commandName(right)

			if !lok2 || !rok2 {
				continue
			}

			for _, pat := range hintPatterns {
				if ln == pat.first && rn == pat.second {
					p.Hints = append(p.Hints, Hint{Span: pipe.Span(), Message: pat.message})
				}
			}
		}

		return true
	})
}

// --- pass 10: security analysis ----------------------------------------------

func stageSecurityAnalysis(a *Analyzer, p *AnalyzedProgram) {
	shell.Walk(p.Program, func(n shell.Node) bool {
		cmd, ok := n.(*shell.Command)
		if !ok {
			return true
		}

		checkSecurityRisks(a, p, cmd)

		return true
	})
}

func checkSecurityRisks(a *Analyzer, p *AnalyzedProgram, cmd *shell.Command) {
	name, hasName := commandName(cmd)

	if hasName && name == "eval" {
		p.AddDiagnostic(shell.Diagnostic{
			Span: cmd.Span(), Severity: shell.SeverityWarning, Kind: shell.DiagKindSecurityRisk,
			Message: "eval executes its argument as shell code; ensure the input is trusted", Source: "security-analysis",
		})
	}

	if cmd.Name != nil {
		if _, dynamic := cmd.Name.Value.(*shell.VariableReference); dynamic {
			p.AddDiagnostic(shell.Diagnostic{
				Span: cmd.Name.Span(), Severity: shell.SeverityWarning, Kind: shell.DiagKindSecurityRisk,
				Message: "command name comes from a variable; validate it before executing", Source: "security-analysis",
			})
		}
	}

	var spec *shell.CommandSpec
	if hasName && a.Commands != nil {
		spec, _ = a.Commands.Lookup(name)
	}

	if spec == nil {
		return
	}

	for i, arg := range cmd.Args {
		if _, bare := arg.Value.(*shell.VariableReference); bare && spec.ArgType(i).Kind == shell.TypePath {
			p.AddDiagnostic(shell.Diagnostic{
				Span: arg.Span(), Severity: shell.SeverityInfo, Kind: shell.DiagKindSecurityRisk,
				Message: "unquoted variable used as a path argument is subject to word splitting and globbing",
				Source:  "security-analysis",
			})
		}
	}
}
