package shell

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// Doc is the §6 "structured document (JSON-like: object/array/string/
// number/boolean/null)" the AST and its diagnostics serialize to. It is
// built by ExportNode/ExportDiagnostic as plain Go values (map[string]any,
// []any, string, int, float64, bool, nil) so that encoding/json.Marshal renders
// it directly, the way the teacher's cmd/schema/main.go encodes its
// extracted schema with a plain json.Encoder and no intermediate DTO
// package.
type Doc = map[string]any

// ExportNode renders n and its descendants into the §6 document shape:
// kind, span, value (variant-specific scalar payload, omitted when a node
// carries none), flags (variant-specific booleans), attributes (anything
// that doesn't fit value/flags), and children in traversal order.
//
//nolint:cyclop,gocyclo // exhaustive type switch over the closed Node sum type, mirrors setNodeID
func ExportNode(n Node) Doc {
	if n == nil {
		return nil
	}

	doc := Doc{
		"kind": NodeKind(n),
		"span": ExportSpan(n.Span()),
	}

	if n.ID() != 0 {
		doc["id"] = int(n.ID())
	}

	if n.Synthesized() {
		doc["synthesized"] = true
	}

	switch v := n.(type) {
	case *Command:
		doc["value"] = ExportNode(v.Name)
	case *Flag:
		doc["value"] = v.Name
		doc["flags"] = Doc{"long": v.Long}
	case *Pipeline:
		doc["attributes"] = Doc{"pipelineKind": pipelineKindName(v.Kind)}
	case *Redirection:
		attrs := Doc{"redirectionKind": redirectionKindName(v.Kind)}
		if v.FD != nil {
			attrs["fd"] = *v.FD
		}

		doc["attributes"] = attrs
	case *StringLiteral:
		doc["value"] = v.Value
		doc["flags"] = Doc{"doubleQuoted": v.DoubleQuoted}
	case *NumberLiteral:
		doc["value"] = v.Text
		doc["flags"] = Doc{"isFloat": v.IsFloat}
	case *BooleanLiteral:
		doc["value"] = v.Value
	case *VariableReference:
		doc["value"] = v.Name
	case *VariableAssignment:
		doc["value"] = v.Name
		doc["flags"] = Doc{"exported": v.Exported, "readonly": v.Readonly, "local": v.Local}
	case *For:
		doc["value"] = v.Variable
	case *Parameter:
		doc["value"] = v.Name
	case *FunctionDef:
		doc["value"] = v.Name
	case *PathExpansion:
		doc["value"] = v.Pattern
	case *BinaryOp:
		doc["value"] = v.Op
	case *UnaryOp:
		doc["value"] = v.Op
	case *FunctionCall:
		doc["value"] = v.Name
	case *ErrorNode:
		doc["value"] = v.Message
	}

	children := n.Children()
	if len(children) > 0 {
		exported := make([]any, 0, len(children))

		for _, c := range children {
			if c == nil {
				continue
			}

			exported = append(exported, ExportNode(c))
		}

		doc["children"] = exported
	}

	return doc
}

// NodeKind returns a stable lowercase tag identifying n's concrete variant,
// used as the exported document's "kind" field and in diagnostic Source
// tagging.
//
//nolint:cyclop,gocyclo // exhaustive type switch over the closed Node sum type
func NodeKind(n Node) string {
	switch n.(type) {
	case *Program:
		return "program"
	case *Command:
		return "command"
	case *Flag:
		return "flag"
	case *Pipeline:
		return "pipeline"
	case *Redirection:
		return "redirection"
	case *Argument:
		return "argument"
	case *StringLiteral:
		return "string"
	case *NumberLiteral:
		return "number"
	case *BooleanLiteral:
		return "boolean"
	case *NullLiteral:
		return "null"
	case *VariableReference:
		return "variable_reference"
	case *VariableAssignment:
		return "variable_assignment"
	case *Block:
		return "block"
	case *If:
		return "if"
	case *For:
		return "for"
	case *While:
		return "while"
	case *CaseClause:
		return "case_clause"
	case *Case:
		return "case"
	case *Parameter:
		return "parameter"
	case *FunctionDef:
		return "function_def"
	case *Return:
		return "return"
	case *Break:
		return "break"
	case *Continue:
		return "continue"
	case *Subshell:
		return "subshell"
	case *Group:
		return "group"
	case *ArrayLiteral:
		return "array"
	case *MapEntry:
		return "map_entry"
	case *MapLiteral:
		return "map"
	case *PathExpansion:
		return "path_expansion"
	case *BinaryOp:
		return "binary_op"
	case *UnaryOp:
		return "unary_op"
	case *FunctionCall:
		return "function_call"
	case *ErrorNode:
		return "error"
	default:
		return "unknown"
	}
}

func pipelineKindName(k PipelineKind) string {
	switch k {
	case PipelineSequential:
		return "sequential"
	case PipelinePipe:
		return "pipe"
	case PipelineAnd:
		return "and"
	case PipelineOr:
		return "or"
	case PipelineBackground:
		return "background"
	default:
		return "unknown"
	}
}

func redirectionKindName(k RedirectionKind) string {
	switch k {
	case RedirectIn:
		return "in"
	case RedirectOut:
		return "out"
	case RedirectAppend:
		return "append"
	case RedirectHereDoc:
		return "heredoc"
	default:
		return "unknown"
	}
}

// ExportSpan renders a Span into its §6 document shape.
func ExportSpan(s Span) Doc {
	if s.IsUnknown() {
		return Doc{"unknown": true}
	}

	return Doc{
		"start": ExportPosition(s.Start),
		"end":   ExportPosition(s.End),
	}
}

// ExportPosition renders a participle lexer.Position into its §6 document
// shape.
func ExportPosition(p lexer.Position) Doc {
	return Doc{
		"offset":   p.Offset,
		"line":     p.Line,
		"column":   p.Column,
		"filename": p.Filename,
	}
}

// ExportDiagnostic renders a Diagnostic into the §6 document shape used
// alongside ExportNode for the "AST and its diagnostics" export.
func ExportDiagnostic(d Diagnostic) Doc {
	doc := Doc{
		"severity": d.Severity.String(),
		"message":  d.Message,
		"span":     ExportSpan(d.Span),
		"source":   d.Source,
	}

	if len(d.RelatedSpans) > 0 {
		related := make([]any, len(d.RelatedSpans))
		for i, s := range d.RelatedSpans {
			related[i] = ExportSpan(s)
		}

		doc["relatedSpans"] = related
	}

	if len(d.Fixes) > 0 {
		fixes := make([]any, len(d.Fixes))
		for i, f := range d.Fixes {
			fixes[i] = Doc{
				"span":        ExportSpan(f.Span),
				"replacement": f.Replacement,
				"description": f.Description,
			}
		}

		doc["fixes"] = fixes
	}

	return doc
}

// ImportNode is ExportNode's inverse: given a document produced by
// ExportNode (directly, or round-tripped through encoding/json.Unmarshal,
// which decodes nested objects as map[string]any and so still satisfies
// Doc), it reconstructs the node it describes, including every descendant.
// Node identity survives the round trip via the "id" field; AssignIDs need
// not be re-run on the result.
//
//nolint:cyclop,gocyclo // exhaustive type switch mirroring ExportNode/NodeKind
func ImportNode(doc Doc) (Node, error) {
	if doc == nil {
		return nil, nil
	}

	kind := asString(doc["kind"])

	children, err := importChildren(doc)
	if err != nil {
		return nil, fmt.Errorf("shell: importing children of %s node: %w", kind, err)
	}

	b := importBase(doc)

	switch kind {
	case "program":
		return &Program{base: b, Statements: children}, nil

	case "command":
		name, err := importChildDoc(doc["value"])
		if err != nil {
			return nil, fmt.Errorf("shell: importing command name: %w", err)
		}

		rest := children
		if name != nil && len(rest) > 0 {
			rest = rest[1:]
		}

		cmd := &Command{base: b}

		if name != nil {
			arg, ok := name.(*Argument)
			if !ok {
				return nil, fmt.Errorf("shell: command name imported as %T, want *Argument", name)
			}

			cmd.Name = arg
		}

		for _, c := range rest {
			switch v := c.(type) {
			case *Argument:
				cmd.Args = append(cmd.Args, v)
			case *Flag:
				cmd.Flags = append(cmd.Flags, v)
			case *Redirection:
				cmd.Redirections = append(cmd.Redirections, v)
			default:
				return nil, fmt.Errorf("shell: command child imported as unexpected %T", c)
			}
		}

		return cmd, nil

	case "flag":
		flag := &Flag{base: b, Name: asString(doc["value"])}
		if f, ok := doc["flags"].(Doc); ok {
			flag.Long = asBool(f["long"])
		}

		if len(children) > 0 {
			flag.Value = children[0]
		}

		return flag, nil

	case "pipeline":
		pipeline := &Pipeline{base: b, Elements: children}
		if a, ok := doc["attributes"].(Doc); ok {
			pipeline.Kind = pipelineKindFromName(asString(a["pipelineKind"]))
		}

		return pipeline, nil

	case "redirection":
		redir := &Redirection{base: b}
		if a, ok := doc["attributes"].(Doc); ok {
			redir.Kind = redirectionKindFromName(asString(a["redirectionKind"]))

			if raw, ok := a["fd"]; ok {
				fd := toInt(raw)
				redir.FD = &fd
			}
		}

		if len(children) > 0 {
			target, ok := children[0].(*Argument)
			if !ok {
				return nil, fmt.Errorf("shell: redirection target imported as %T, want *Argument", children[0])
			}

			redir.Target = target
		}

		return redir, nil

	case "argument":
		arg := &Argument{base: b}
		if len(children) > 0 {
			arg.Value = children[0]
		}

		return arg, nil

	case "string":
		str := &StringLiteral{base: b, Value: asString(doc["value"]), Interpolated: children}
		if f, ok := doc["flags"].(Doc); ok {
			str.DoubleQuoted = asBool(f["doubleQuoted"])
		}

		return str, nil

	case "number":
		num := &NumberLiteral{base: b, Text: asString(doc["value"])}
		if f, ok := doc["flags"].(Doc); ok {
			num.IsFloat = asBool(f["isFloat"])
		}

		return num, nil

	case "boolean":
		return &BooleanLiteral{base: b, Value: asBool(doc["value"])}, nil

	case "null":
		return &NullLiteral{base: b}, nil

	case "variable_reference":
		ref := &VariableReference{base: b, Name: asString(doc["value"])}
		if len(children) > 0 {
			ref.Default = children[0]
		}

		return ref, nil

	case "variable_assignment":
		asg := &VariableAssignment{base: b, Name: asString(doc["value"])}
		if f, ok := doc["flags"].(Doc); ok {
			asg.Exported = asBool(f["exported"])
			asg.Readonly = asBool(f["readonly"])
			asg.Local = asBool(f["local"])
		}

		if len(children) > 0 {
			asg.Value = children[0]
		}

		return asg, nil

	case "block":
		return &Block{base: b, Statements: children}, nil

	case "if":
		stmt := &If{base: b}
		if len(children) > 0 {
			stmt.Condition = children[0]
		}

		if len(children) > 1 {
			then, ok := children[1].(*Block)
			if !ok {
				return nil, fmt.Errorf("shell: if-then imported as %T, want *Block", children[1])
			}

			stmt.Then = then
		}

		if len(children) > 2 {
			stmt.Else = children[2]
		}

		return stmt, nil

	case "for":
		loop := &For{base: b, Variable: asString(doc["value"])}
		if len(children) > 0 {
			loop.Iterable = children[0]
		}

		if len(children) > 1 {
			body, ok := children[1].(*Block)
			if !ok {
				return nil, fmt.Errorf("shell: for-body imported as %T, want *Block", children[1])
			}

			loop.Body = body
		}

		return loop, nil

	case "while":
		loop := &While{base: b}
		if len(children) > 0 {
			loop.Condition = children[0]
		}

		if len(children) > 1 {
			body, ok := children[1].(*Block)
			if !ok {
				return nil, fmt.Errorf("shell: while-body imported as %T, want *Block", children[1])
			}

			loop.Body = body
		}

		return loop, nil

	case "case_clause":
		clause := &CaseClause{base: b}
		if len(children) == 0 {
			return clause, nil
		}

		clause.Patterns = children[:len(children)-1]

		body, ok := children[len(children)-1].(*Block)
		if !ok {
			return nil, fmt.Errorf("shell: case-clause body imported as %T, want *Block", children[len(children)-1])
		}

		clause.Body = body

		return clause, nil

	case "case":
		cs := &Case{base: b}
		if len(children) > 0 {
			cs.Subject = children[0]
		}

		for _, c := range children[min(1, len(children)):] {
			clause, ok := c.(*CaseClause)
			if !ok {
				return nil, fmt.Errorf("shell: case clause imported as %T, want *CaseClause", c)
			}

			cs.Clauses = append(cs.Clauses, clause)
		}

		return cs, nil

	case "parameter":
		param := &Parameter{base: b, Name: asString(doc["value"])}
		if len(children) > 0 {
			param.Default = children[0]
		}

		return param, nil

	case "function_def":
		fn := &FunctionDef{base: b, Name: asString(doc["value"])}
		if len(children) > 0 {
			body, ok := children[len(children)-1].(*Block)
			if !ok {
				return nil, fmt.Errorf("shell: function body imported as %T, want *Block", children[len(children)-1])
			}

			fn.Body = body

			for _, c := range children[:len(children)-1] {
				param, ok := c.(*Parameter)
				if !ok {
					return nil, fmt.Errorf("shell: function parameter imported as %T, want *Parameter", c)
				}

				fn.Parameters = append(fn.Parameters, param)
			}
		}

		return fn, nil

	case "return":
		ret := &Return{base: b}
		if len(children) > 0 {
			ret.Value = children[0]
		}

		return ret, nil

	case "break":
		return &Break{base: b}, nil

	case "continue":
		return &Continue{base: b}, nil

	case "subshell":
		sub := &Subshell{base: b}
		if len(children) > 0 {
			body, ok := children[0].(*Block)
			if !ok {
				return nil, fmt.Errorf("shell: subshell body imported as %T, want *Block", children[0])
			}

			sub.Body = body
		}

		return sub, nil

	case "group":
		grp := &Group{base: b}
		if len(children) > 0 {
			body, ok := children[0].(*Block)
			if !ok {
				return nil, fmt.Errorf("shell: group body imported as %T, want *Block", children[0])
			}

			grp.Body = body
		}

		return grp, nil

	case "array":
		return &ArrayLiteral{base: b, Elements: children}, nil

	case "map_entry":
		entry := &MapEntry{base: b}
		if len(children) > 0 {
			entry.Key = children[0]
		}

		if len(children) > 1 {
			entry.Value = children[1]
		}

		return entry, nil

	case "map":
		m := &MapLiteral{base: b}

		for _, c := range children {
			entry, ok := c.(*MapEntry)
			if !ok {
				return nil, fmt.Errorf("shell: map entry imported as %T, want *MapEntry", c)
			}

			m.Entries = append(m.Entries, entry)
		}

		return m, nil

	case "path_expansion":
		return &PathExpansion{base: b, Pattern: asString(doc["value"])}, nil

	case "binary_op":
		op := &BinaryOp{base: b, Op: asString(doc["value"])}
		if len(children) > 0 {
			op.LHS = children[0]
		}

		if len(children) > 1 {
			op.RHS = children[1]
		}

		return op, nil

	case "unary_op":
		op := &UnaryOp{base: b, Op: asString(doc["value"])}
		if len(children) > 0 {
			op.Operand = children[0]
		}

		return op, nil

	case "function_call":
		return &FunctionCall{base: b, Name: asString(doc["value"]), Args: children}, nil

	case "error":
		return &ErrorNode{base: b, Message: asString(doc["value"])}, nil

	default:
		return nil, fmt.Errorf("shell: unknown node kind %q", kind)
	}
}

// importChildDoc decodes a single nested document value, such as Command's
// "value" field (the exported Name node), returning nil without error when
// v is nil (e.g. a Command with no Name).
func importChildDoc(v any) (Node, error) {
	d, ok := asDocOrNil(v)
	if !ok {
		return nil, nil
	}

	return ImportNode(d)
}

// importChildren decodes doc's "children" array, if present, into Nodes in
// the same order ExportNode wrote them.
func importChildren(doc Doc) ([]Node, error) {
	raw, ok := doc["children"].([]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}

	out := make([]Node, 0, len(raw))

	for i, c := range raw {
		cd, ok := asDocOrNil(c)
		if !ok {
			return nil, fmt.Errorf("shell: child %d is not a document", i)
		}

		n, err := ImportNode(cd)
		if err != nil {
			return nil, err
		}

		out = append(out, n)
	}

	return out, nil
}

// importBase reconstructs the span/id/synthesized fields every node carries.
func importBase(doc Doc) base {
	var b base

	if sp, ok := doc["span"].(Doc); ok {
		b.SpanVal = ImportSpan(sp)
	}

	if id, ok := doc["id"]; ok {
		b.IDVal = NodeID(toInt(id))
	}

	b.Synth = asBool(doc["synthesized"])

	return b
}

// ImportSpan is ExportSpan's inverse.
func ImportSpan(doc Doc) Span {
	if doc == nil || asBool(doc["unknown"]) {
		return Span{}
	}

	start, _ := doc["start"].(Doc)
	end, _ := doc["end"].(Doc)

	return Span{Start: ImportPosition(start), End: ImportPosition(end)}
}

// ImportPosition is ExportPosition's inverse.
func ImportPosition(doc Doc) lexer.Position {
	if doc == nil {
		return lexer.Position{}
	}

	return lexer.Position{
		Offset:   toInt(doc["offset"]),
		Line:     toInt(doc["line"]),
		Column:   toInt(doc["column"]),
		Filename: asString(doc["filename"]),
	}
}

func pipelineKindFromName(name string) PipelineKind {
	switch name {
	case "pipe":
		return PipelinePipe
	case "and":
		return PipelineAnd
	case "or":
		return PipelineOr
	case "background":
		return PipelineBackground
	default:
		return PipelineSequential
	}
}

func redirectionKindFromName(name string) RedirectionKind {
	switch name {
	case "out":
		return RedirectOut
	case "append":
		return RedirectAppend
	case "heredoc":
		return RedirectHereDoc
	default:
		return RedirectIn
	}
}

func asDocOrNil(v any) (Doc, bool) {
	if v == nil {
		return nil, false
	}

	d, ok := v.(Doc)

	return d, ok
}

func asString(v any) string {
	s, _ := v.(string)

	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)

	return b
}

func toInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return 0
	}
}
