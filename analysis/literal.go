package analysis

import "github.com/shellfront/core"

// literalText extracts the source text of n if n is (or wraps) a literal
// the analyzer can reason about statically: an Argument's Value, an
// unquoted/single-quoted StringLiteral, or a PathExpansion's pattern. A
// double-quoted string carrying interpolation, a variable reference, or
// any other expression node returns ok=false — its value is only known at
// run time.
func literalText(n shell.Node) (string, bool) {
	switch v := n.(type) {
	case *shell.Argument:
		if v.Value == nil {
			return "", false
		}

		return literalText(v.Value)
	case *shell.StringLiteral:
		if v.DoubleQuoted && len(v.Interpolated) > 0 {
			return "", false
		}

		return v.Value, true
	case *shell.PathExpansion:
		return v.Pattern, true
	default:
		return "", false
	}
}

// commandName returns cmd's literal name, or ok=false if the name is
// computed at run time (e.g. `$CMD arg` — a dynamic dispatch flagged
// separately by the security-analysis stage).
func commandName(cmd *shell.Command) (string, bool) {
	if cmd == nil || cmd.Name == nil {
		return "", false
	}

	return literalText(cmd.Name)
}
