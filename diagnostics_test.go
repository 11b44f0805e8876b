package shell_test

import (
	"testing"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/stretchr/testify/assert"

	"github.com/shellfront/core"
)

func TestSeverity_StringsAreHumanReadable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "info", shell.SeverityInfo.String())
	assert.Equal(t, "warning", shell.SeverityWarning.String())
	assert.Equal(t, "error", shell.SeverityError.String())
	assert.Equal(t, "fatal", shell.SeverityFatal.String())
}

func span(start, end int) shell.Span {
	return shell.Span{Start: lexer.Position{Offset: start}, End: lexer.Position{Offset: end}}
}

func TestSortDiagnostics_OrdersBySpanThenDescendingSeverity(t *testing.T) {
	t.Parallel()

	diags := []shell.Diagnostic{
		{Span: span(10, 12), Severity: shell.SeverityError, Message: "b"},
		{Span: span(0, 5), Severity: shell.SeverityWarning, Message: "a-warn"},
		{Span: span(0, 5), Severity: shell.SeverityError, Message: "a-err"},
	}

	shell.SortDiagnostics(diags)

	assert.Equal(t, "a-err", diags[0].Message)
	assert.Equal(t, "a-warn", diags[1].Message)
	assert.Equal(t, "b", diags[2].Message)
}

func TestHasErrors_TrueOnlyAtErrorOrFatalSeverity(t *testing.T) {
	t.Parallel()

	assert.False(t, shell.HasErrors(nil))
	assert.False(t, shell.HasErrors([]shell.Diagnostic{{Severity: shell.SeverityWarning}}))
	assert.True(t, shell.HasErrors([]shell.Diagnostic{{Severity: shell.SeverityError}}))
	assert.True(t, shell.HasErrors([]shell.Diagnostic{{Severity: shell.SeverityFatal}}))
}

func TestDedupe_CollapsesSameSpanAndMessage(t *testing.T) {
	t.Parallel()

	diags := []shell.Diagnostic{
		{Span: span(0, 5), Message: "dup", Severity: shell.SeverityError},
		{Span: span(0, 5), Message: "dup", Severity: shell.SeverityWarning},
		{Span: span(0, 5), Message: "other", Severity: shell.SeverityError},
		{Span: span(5, 9), Message: "dup", Severity: shell.SeverityError},
	}

	out := shell.Dedupe(diags)
	assert.Len(t, out, 3)
	assert.Equal(t, shell.SeverityError, out[0].Severity)
}

func TestDedupe_EmptyInputReturnsEmptyOutput(t *testing.T) {
	t.Parallel()

	out := shell.Dedupe(nil)
	assert.Empty(t, out)
}
