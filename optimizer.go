package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// OptimizerStats counts how many rewrites each pass of §4.9 applied, plus
// the node count before and after the whole run, reported back to the
// caller per §4.9's "statistics ... are reported to the caller."
type OptimizerStats struct {
	ConstantsFolded    int
	BranchesEliminated int
	SubexprsShared     int
	CommandsMerged     int
	PipelinesOptimized int
	NodesBefore        int
	NodesAfter         int
}

// Optimizer runs the §4.9 passes over a type-checked AST: constant
// folding, dead-branch elimination, common-subexpression elimination,
// command merging, and pipeline optimization, each idempotent on its own
// output. Purity is read from the resource-use classification the §4.7
// pass 7 analyzer produces, never re-derived here, per §4.9's "no
// side-effect reordering across impure boundaries."
//
// Grounded on the teacher's format.go (a single-pass AST-to-AST rewrite
// over the same node set the parser produces) for the shape of an
// optimizer pass: a typed visitor returning a replacement node, applied
// once per pass.
type Optimizer struct {
	Purity   map[NodeID]bool // true if the node is known pure; absent means unknown/impure
	Commands CommandRegistry
}

// NewOptimizer returns an optimizer consulting purity and registry for its
// command-merging and pipeline-optimization passes.
func NewOptimizer(purity map[NodeID]bool, commands CommandRegistry) *Optimizer {
	return &Optimizer{Purity: purity, Commands: commands}
}

func (o *Optimizer) isPure(n Node) bool {
	return o.Purity[n.ID()]
}

// Optimize runs all five passes over root once each, in the order §4.9
// specifies, and returns the rewritten root plus statistics.
func (o *Optimizer) Optimize(root Node) (Node, OptimizerStats) {
	var stats OptimizerStats

	stats.NodesBefore = countNodes(root)

	root = o.foldConstants(root, &stats)
	root = o.eliminateDeadBranches(root, &stats)
	root = o.eliminateCommonSubexprs(root, &stats)
	root = o.mergeCommands(root, &stats)
	root = o.optimizePipelines(root, &stats)

	AssignIDs(root)

	stats.NodesAfter = countNodes(root)

	return root, stats
}

func countNodes(n Node) int {
	count := 0

	Walk(n, func(Node) bool {
		count++

		return true
	})

	return count
}

// --- constant folding ----------------------------------------------------

// foldConstants evaluates binary/unary arithmetic, comparison, and logical
// operators whose operands are literals, short-circuits &&/|| on a literal
// boolean left operand, and folds len/str/int/float applied to a literal
// argument.
func (o *Optimizer) foldConstants(n Node, stats *OptimizerStats) Node {
	return transform(n, func(child Node) Node {
		// transform already recurses into child's operands before invoking
		// this callback, so by the time we see child its children are
		// already folded; this callback only folds the node itself.
		switch v := child.(type) {
		case *BinaryOp:
			if folded := foldBinary(v); folded != nil {
				stats.ConstantsFolded++

				return folded
			}

			return v
		case *UnaryOp:
			if folded := foldUnary(v); folded != nil {
				stats.ConstantsFolded++

				return folded
			}

			return v
		case *FunctionCall:
			if folded := foldBuiltinCall(v); folded != nil {
				stats.ConstantsFolded++

				return folded
			}

			return v
		default:
			return child
		}
	})
}

func literalBool(n Node) (bool, bool) {
	b, ok := n.(*BooleanLiteral)
	if !ok {
		return false, false
	}

	return b.Value, true
}

func literalNumber(n Node) (float64, bool, bool) {
	num, ok := n.(*NumberLiteral)
	if !ok {
		return 0, false, false
	}

	f, err := strconv.ParseFloat(num.Text, 64)
	if err != nil {
		return 0, false, false
	}

	return f, num.IsFloat, true
}

func literalString(n Node) (string, bool) {
	s, ok := n.(*StringLiteral)
	if !ok || len(s.Interpolated) > 0 {
		return "", false
	}

	return s.Value, true
}

//nolint:cyclop // exhaustive literal-operator evaluation table
func foldBinary(n *BinaryOp) Node {
	if lb, ok := literalBool(n.LHS); ok {
		switch n.Op {
		case "&&":
			if !lb {
				return &BooleanLiteral{Value: false, base: base{SpanVal: n.Span()}}
			}

			if rb, ok := literalBool(n.RHS); ok {
				return &BooleanLiteral{Value: rb, base: base{SpanVal: n.Span()}}
			}
		case "||":
			if lb {
				return &BooleanLiteral{Value: true, base: base{SpanVal: n.Span()}}
			}

			if rb, ok := literalBool(n.RHS); ok {
				return &BooleanLiteral{Value: rb, base: base{SpanVal: n.Span()}}
			}
		}
	}

	lf, lFloat, lok := literalNumber(n.LHS)
	rf, rFloat, rok := literalNumber(n.RHS)

	if !lok || !rok {
		return nil
	}

	isFloat := lFloat || rFloat

	switch n.Op {
	case "+":
		return numberNode(lf+rf, isFloat, n.Span())
	case "-":
		return numberNode(lf-rf, isFloat, n.Span())
	case "*":
		return numberNode(lf*rf, isFloat, n.Span())
	case "/":
		if rf == 0 {
			return nil
		}

		return numberNode(lf/rf, true, n.Span())
	case "%":
		if rf == 0 {
			return nil
		}

		return numberNode(float64(int64(lf)%int64(rf)), false, n.Span())
	case "eq":
		return &BooleanLiteral{Value: lf == rf, base: base{SpanVal: n.Span()}}
	case "ne":
		return &BooleanLiteral{Value: lf != rf, base: base{SpanVal: n.Span()}}
	case "lt":
		return &BooleanLiteral{Value: lf < rf, base: base{SpanVal: n.Span()}}
	case "le":
		return &BooleanLiteral{Value: lf <= rf, base: base{SpanVal: n.Span()}}
	case "gt":
		return &BooleanLiteral{Value: lf > rf, base: base{SpanVal: n.Span()}}
	case "ge":
		return &BooleanLiteral{Value: lf >= rf, base: base{SpanVal: n.Span()}}
	default:
		return nil
	}
}

func numberNode(f float64, isFloat bool, span Span) *NumberLiteral {
	text := strconv.FormatFloat(f, 'g', -1, 64)
	if !isFloat {
		text = strconv.FormatInt(int64(f), 10)
	}

	return &NumberLiteral{Text: text, IsFloat: isFloat, base: base{SpanVal: span}}
}

func foldUnary(n *UnaryOp) Node {
	switch n.Op {
	case "!":
		if b, ok := literalBool(n.Operand); ok {
			return &BooleanLiteral{Value: !b, base: base{SpanVal: n.Span()}}
		}
	case "-":
		if f, isFloat, ok := literalNumber(n.Operand); ok {
			return numberNode(-f, isFloat, n.Span())
		}
	}

	return nil
}

func foldBuiltinCall(n *FunctionCall) Node {
	if len(n.Args) != 1 {
		return nil
	}

	arg := n.Args[0]

	switch n.Name {
	case "len":
		if s, ok := literalString(arg); ok {
			return &NumberLiteral{Text: strconv.Itoa(len(s)), base: base{SpanVal: n.Span()}}
		}
	case "str":
		if f, _, ok := literalNumber(arg); ok {
			return &StringLiteral{Value: strconv.FormatFloat(f, 'g', -1, 64), base: base{SpanVal: n.Span()}}
		}

		if b, ok := literalBool(arg); ok {
			return &StringLiteral{Value: strconv.FormatBool(b), base: base{SpanVal: n.Span()}}
		}
	case "int":
		if s, ok := literalString(arg); ok {
			if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return &NumberLiteral{Text: strconv.FormatInt(i, 10), base: base{SpanVal: n.Span()}}
			}
		}
	case "float":
		if s, ok := literalString(arg); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return &NumberLiteral{Text: strconv.FormatFloat(f, 'g', -1, 64), IsFloat: true, base: base{SpanVal: n.Span()}}
			}
		}
	}

	return nil
}

// --- dead-branch elimination ----------------------------------------------

// eliminateDeadBranches replaces `if true`/`if false` with the taken
// branch, drops `while false`, drops `for` over an empty literal iterable,
// and removes resulting empty blocks.
func (o *Optimizer) eliminateDeadBranches(n Node, stats *OptimizerStats) Node {
	return transform(n, func(child Node) Node {
		// transform already recurses into Then/Else/Body before invoking
		// this callback.
		switch v := child.(type) {
		case *If:
			if b, ok := literalBool(v.Condition); ok {
				stats.BranchesEliminated++

				if b {
					return dropEmpty(v.Then)
				}

				if v.Else != nil {
					return dropEmpty(v.Else)
				}

				return &Block{base: base{SpanVal: v.Span(), Synth: true}}
			}

			return v
		case *While:
			if b, ok := literalBool(v.Condition); ok && !b {
				stats.BranchesEliminated++

				return &Block{base: base{SpanVal: v.Span(), Synth: true}}
			}

			return v
		case *For:
			if arr, ok := v.Iterable.(*ArrayLiteral); ok && len(arr.Elements) == 0 {
				stats.BranchesEliminated++

				return &Block{base: base{SpanVal: v.Span(), Synth: true}}
			}

			return v
		default:
			return child
		}
	})
}

func asBlock(n Node) *Block {
	if b, ok := n.(*Block); ok {
		return b
	}

	return &Block{Statements: []Node{n}, base: base{SpanVal: n.Span()}}
}

func dropEmpty(n Node) Node {
	if b, ok := n.(*Block); ok && len(b.Statements) == 0 {
		return &Block{base: base{SpanVal: b.Span(), Synth: true}}
	}

	return n
}

// --- common subexpression elimination -------------------------------------

// eliminateCommonSubexprs computes a canonical signature per subtree; when
// two siblings within the same statement list share a signature, later
// occurrences are replaced by a reference to the first (the same node
// pointer, so downstream passes see identical NodeIDs after a re-run of
// AssignIDs treats them as one subtree).
func (o *Optimizer) eliminateCommonSubexprs(n Node, stats *OptimizerStats) Node {
	return transform(n, func(child Node) Node {
		stmts, ok := statementsOf(child)
		if !ok {
			return child
		}

		seen := make(map[string]Node, len(stmts))

		for i, s := range stmts {
			// Sharing a side-effecting statement would drop its repeated
			// execution, so only pure subtrees are eligible for reuse.
			if !o.isPure(s) {
				continue
			}

			sig := signature(s)
			if first, dup := seen[sig]; dup {
				stats.SubexprsShared++
				stmts[i] = first

				continue
			}

			seen[sig] = s
		}

		return child
	})
}

func statementsOf(n Node) ([]Node, bool) {
	switch v := n.(type) {
	case *Block:
		return v.Statements, true
	case *Program:
		return v.Statements, true
	default:
		return nil, false
	}
}

// signature returns a canonical string for a subtree: kind + value/flags +
// children signatures, per §4.9's "kind + value + flags + children
// signatures."
func signature(n Node) string {
	if n == nil {
		return "<nil>"
	}

	var b strings.Builder

	writeSignature(&b, n)

	return b.String()
}

//nolint:cyclop // exhaustive per-kind signature rendering
func writeSignature(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Command:
		fmt.Fprintf(b, "Command(%s", signature(v.Name))

		for _, a := range v.Args {
			fmt.Fprintf(b, ",%s", signature(a))
		}

		for _, f := range v.Flags {
			fmt.Fprintf(b, ",flag:%s:%v:%s", f.Name, f.Long, signature(f.Value))
		}

		b.WriteByte(')')
	case *StringLiteral:
		fmt.Fprintf(b, "Str(%q,%v)", v.Value, v.DoubleQuoted)
	case *NumberLiteral:
		fmt.Fprintf(b, "Num(%s,%v)", v.Text, v.IsFloat)
	case *BooleanLiteral:
		fmt.Fprintf(b, "Bool(%v)", v.Value)
	case *VariableReference:
		fmt.Fprintf(b, "Var(%s,%s)", v.Name, signature(v.Default))
	case *BinaryOp:
		fmt.Fprintf(b, "Bin(%s,%s,%s)", v.Op, signature(v.LHS), signature(v.RHS))
	case *UnaryOp:
		fmt.Fprintf(b, "Un(%s,%s)", v.Op, signature(v.Operand))
	case *Argument:
		fmt.Fprintf(b, "Arg(%s)", signature(v.Value))
	case *PathExpansion:
		fmt.Fprintf(b, "Path(%s)", v.Pattern)
	default:
		fmt.Fprintf(b, "%T", n)

		for _, c := range n.Children() {
			fmt.Fprintf(b, "|%s", signature(c))
		}
	}
}

// --- command merging -------------------------------------------------------

// mergeCommands rewrites `cat F | grep P` to `grep P F` and `find ... |
// xargs CMD` to `find ... -exec CMD {} \;`.
func (o *Optimizer) mergeCommands(n Node, stats *OptimizerStats) Node {
	return transform(n, func(child Node) Node {
		pipe, ok := child.(*Pipeline)
		if !ok || pipe.Kind != PipelinePipe {
			return child
		}

		merged := o.mergeAdjacentStages(pipe.Elements, stats)
		if len(merged) == 1 {
			return merged[0]
		}

		pipe.Elements = merged

		return pipe
	})
}

func (o *Optimizer) mergeAdjacentStages(stages []Node, stats *OptimizerStats) []Node {
	out := make([]Node, 0, len(stages))

	for i := 0; i < len(stages); i++ {
		if i+1 < len(stages) {
			if merged, ok := mergeCatGrep(stages[i], stages[i+1], o.Commands); ok {
				stats.CommandsMerged++
				out = append(out, merged)
				i++

				continue
			}

			if merged, ok := mergeFindXargs(stages[i], stages[i+1], o.Commands); ok {
				stats.CommandsMerged++
				out = append(out, merged)
				i++

				continue
			}
		}

		out = append(out, stages[i])
	}

	return out
}

func commandName(n Node) (*Command, string, bool) {
	cmd, ok := n.(*Command)
	if !ok {
		return nil, "", false
	}

	s, ok := literalString(cmd.Name.Value)
	if !ok {
		return nil, "", false
	}

	return cmd, s, true
}

// isKnownBuiltin reports whether reg (if any) still recognizes name with
// its expected built-in shape, guarding the idiom rewrites below against a
// script-defined function shadowing a name like "cat" or "grep".
func isKnownBuiltin(reg CommandRegistry, name string) bool {
	if reg == nil {
		return true
	}

	_, ok := reg.Lookup(name)

	return ok
}

// mergeCatGrep rewrites `cat F | grep P` to `grep P F`.
func mergeCatGrep(a, b Node, reg CommandRegistry) (Node, bool) {
	catCmd, catName, ok := commandName(a)
	if !ok || catName != "cat" || len(catCmd.Args) != 1 || !isKnownBuiltin(reg, catName) {
		return nil, false
	}

	grepCmd, grepName, ok := commandName(b)
	if !ok || grepName != "grep" || !isKnownBuiltin(reg, grepName) {
		return nil, false
	}

	merged := &Command{
		Name:         grepCmd.Name,
		Flags:        grepCmd.Flags,
		Args:         append(append([]*Argument{}, grepCmd.Args...), catCmd.Args...),
		Redirections: grepCmd.Redirections,
		base:         base{SpanVal: a.Span().Join(b.Span())},
	}

	return merged, true
}

// mergeFindXargs rewrites `find ... | xargs CMD` to `find ... -exec CMD {} \;`.
func mergeFindXargs(a, b Node, reg CommandRegistry) (Node, bool) {
	findCmd, findName, ok := commandName(a)
	if !ok || findName != "find" || !isKnownBuiltin(reg, findName) {
		return nil, false
	}

	xargsCmd, xargsName, ok := commandName(b)
	if !ok || xargsName != "xargs" || len(xargsCmd.Args) == 0 || !isKnownBuiltin(reg, xargsName) {
		return nil, false
	}

	execArgs := append([]*Argument{}, findCmd.Args...)
	execArgs = append(execArgs,
		&Argument{Value: &StringLiteral{Value: "-exec"}},
	)
	execArgs = append(execArgs, xargsCmd.Args...)
	execArgs = append(execArgs,
		&Argument{Value: &StringLiteral{Value: "{}"}},
		&Argument{Value: &StringLiteral{Value: `\;`}},
	)

	merged := &Command{
		Name:         findCmd.Name,
		Flags:        findCmd.Flags,
		Args:         execArgs,
		Redirections: xargsCmd.Redirections,
		base:         base{SpanVal: a.Span().Join(b.Span())},
	}

	return merged, true
}

// --- pipeline optimization --------------------------------------------------

// optimizePipelines drops degenerate single-command pipelines (already
// handled by parsePipeline's collapse, kept here for pipelines the other
// passes produced), rewrites `sort | uniq` to `sort -u`, and coalesces
// `grep A | grep B` to `grep -e A -e B`, de-duplicating patterns.
func (o *Optimizer) optimizePipelines(n Node, stats *OptimizerStats) Node {
	return transform(n, func(child Node) Node {
		pipe, ok := child.(*Pipeline)
		if !ok || pipe.Kind != PipelinePipe {
			return child
		}

		stages := coalesceSortUniq(pipe.Elements, stats, o.Commands)
		stages = coalesceGrepGrep(stages, stats, o.Commands)

		if len(stages) == 1 {
			return stages[0]
		}

		pipe.Elements = stages

		return pipe
	})
}

func coalesceSortUniq(stages []Node, stats *OptimizerStats, reg CommandRegistry) []Node {
	out := make([]Node, 0, len(stages))

	for i := 0; i < len(stages); i++ {
		if i+1 < len(stages) {
			sortCmd, sortName, ok := commandName(stages[i])
			uniqCmd, uniqName, ok2 := commandName(stages[i+1])

			if ok && ok2 && sortName == "sort" && uniqName == "uniq" &&
				isKnownBuiltin(reg, sortName) && isKnownBuiltin(reg, uniqName) {
				stats.PipelinesOptimized++

				merged := &Command{
					Name:         sortCmd.Name,
					Args:         sortCmd.Args,
					Flags:        append(append([]*Flag{}, sortCmd.Flags...), &Flag{Name: "u"}),
					Redirections: uniqCmd.Redirections,
					base:         base{SpanVal: stages[i].Span().Join(stages[i+1].Span())},
				}
				out = append(out, merged)
				i++

				continue
			}
		}

		out = append(out, stages[i])
	}

	return out
}

func coalesceGrepGrep(stages []Node, stats *OptimizerStats, reg CommandRegistry) []Node {
	out := make([]Node, 0, len(stages))

	for i := 0; i < len(stages); i++ {
		if i+1 < len(stages) {
			aCmd, aName, ok := commandName(stages[i])
			bCmd, bName, ok2 := commandName(stages[i+1])

			if ok && ok2 && aName == "grep" && bName == "grep" && isKnownBuiltin(reg, aName) {
				stats.PipelinesOptimized++
				out = append(out, mergeGrepPatterns(aCmd, bCmd))
				i++

				continue
			}
		}

		out = append(out, stages[i])
	}

	return out
}

func mergeGrepPatterns(a, b *Command) Node {
	seen := make(map[string]bool)
	flags := make([]*Flag, 0, len(a.Flags)+len(b.Flags)+2)

	addPattern := func(text string, src []*Argument) []*Argument {
		if seen[text] {
			return src
		}

		seen[text] = true
		flags = append(flags, &Flag{Name: "e", Value: &StringLiteral{Value: text}})

		return src
	}

	var remainingA, remainingB []*Argument

	for _, arg := range a.Args {
		if s, ok := literalString(arg.Value); ok {
			remainingA = addPattern(s, remainingA)

			continue
		}

		remainingA = append(remainingA, arg)
	}

	for _, arg := range b.Args {
		if s, ok := literalString(arg.Value); ok {
			remainingB = addPattern(s, remainingB)

			continue
		}

		remainingB = append(remainingB, arg)
	}

	for _, f := range a.Flags {
		flags = append(flags, f)
	}

	for _, f := range b.Flags {
		flags = append(flags, f)
	}

	return &Command{
		Name:         a.Name,
		Flags:        flags,
		Args:         append(remainingA, remainingB...),
		Redirections: b.Redirections,
		base:         base{SpanVal: a.Span().Join(b.Span())},
	}
}

// --- generic bottom-up rewrite helper ---------------------------------------

// transform applies fn to every node of tree in post-order (children
// first), so each pass only has to handle the node kinds it cares about
// and can assume descendants are already rewritten.
func transform(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}

	switch v := n.(type) {
	case *Program:
		for i, s := range v.Statements {
			v.Statements[i] = transform(s, fn)
		}
	case *Block:
		for i, s := range v.Statements {
			v.Statements[i] = transform(s, fn)
		}
	case *If:
		v.Condition = transform(v.Condition, fn)

		if v.Then != nil {
			if then := transform(v.Then, fn); then != nil {
				v.Then, _ = then.(*Block)
				if v.Then == nil {
					v.Then = asBlock(then)
				}
			}
		}

		if v.Else != nil {
			v.Else = transform(v.Else, fn)
		}
	case *For:
		v.Iterable = transform(v.Iterable, fn)

		if v.Body != nil {
			v.Body = asBlock(transform(v.Body, fn))
		}
	case *While:
		v.Condition = transform(v.Condition, fn)

		if v.Body != nil {
			v.Body = asBlock(transform(v.Body, fn))
		}
	case *Case:
		v.Subject = transform(v.Subject, fn)

		for _, c := range v.Clauses {
			for i, p := range c.Patterns {
				c.Patterns[i] = transform(p, fn)
			}

			if c.Body != nil {
				c.Body = asBlock(transform(c.Body, fn))
			}
		}
	case *FunctionDef:
		if v.Body != nil {
			v.Body = asBlock(transform(v.Body, fn))
		}
	case *Subshell:
		if v.Body != nil {
			v.Body = asBlock(transform(v.Body, fn))
		}
	case *Group:
		if v.Body != nil {
			v.Body = asBlock(transform(v.Body, fn))
		}
	case *Pipeline:
		for i, e := range v.Elements {
			v.Elements[i] = transform(e, fn)
		}
	case *Command:
		if v.Name != nil {
			v.Name.Value = transform(v.Name.Value, fn)
		}

		for i, a := range v.Args {
			if a != nil {
				a.Value = transform(a.Value, fn)
			}

			v.Args[i] = a
		}

		for _, f := range v.Flags {
			if f.Value != nil {
				f.Value = transform(f.Value, fn)
			}
		}
	case *VariableAssignment:
		v.Value = transform(v.Value, fn)
	case *Return:
		v.Value = transform(v.Value, fn)
	case *BinaryOp:
		v.LHS = transform(v.LHS, fn)
		v.RHS = transform(v.RHS, fn)
	case *UnaryOp:
		v.Operand = transform(v.Operand, fn)
	case *FunctionCall:
		for i, a := range v.Args {
			v.Args[i] = transform(a, fn)
		}
	case *ArrayLiteral:
		for i, e := range v.Elements {
			v.Elements[i] = transform(e, fn)
		}
	case *MapLiteral:
		for _, e := range v.Entries {
			e.Key = transform(e.Key, fn)
			e.Value = transform(e.Value, fn)
		}
	}

	return fn(n)
}
