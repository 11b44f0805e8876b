package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
	"github.com/shellfront/core/analysis"
)

type fakeFS struct {
	existing map[string]bool
	globs    map[string][]string
}

func (f fakeFS) Exists(path string) bool { return f.existing[path] }
func (f fakeFS) IsDir(path string) bool  { return false }

func (f fakeFS) Glob(pattern string) ([]string, error) {
	return f.globs[pattern], nil
}

type fakeEnv struct {
	vars map[string]string
}

func (e fakeEnv) Lookup(name string) (string, bool) {
	v, ok := e.vars[name]

	return v, ok
}

func (e fakeEnv) Names() []string {
	out := make([]string, 0, len(e.vars))
	for k := range e.vars {
		out = append(out, k)
	}

	return out
}

func newAnalyzer(fs shell.FilesystemProbe, env shell.EnvironmentResolver) *analysis.Analyzer {
	return analysis.NewAnalyzer(shell.NewStaticCommandRegistry(), fs, env, nil, nil)
}

func hasDiag(diags []shell.Diagnostic, source string, kind shell.DiagKind) bool {
	for _, d := range diags {
		if d.Source == source && d.Kind == kind {
			return true
		}
	}

	return false
}

func TestDefaultStages_OrderAndNames(t *testing.T) {
	t.Parallel()

	stages := analysis.DefaultStages()
	require.Len(t, stages, 10)

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}

	assert.Equal(t, []string{
		"variable-resolution", "path-validation", "command-validation", "type-check",
		"context-analysis", "data-flow", "resource-use", "parallelizability",
		"optimization-hints", "security-analysis",
	}, names)
}

func TestAnalyze_UndefinedVariableWarning(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "echo $MISSING")

	assert.True(t, hasDiag(result.Diagnostics, "variable-resolution", shell.DiagKindUndefinedVariable))
}

func TestAnalyze_UnusedVariableWarning(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "x=5")

	assert.True(t, hasDiag(result.Diagnostics, "variable-resolution", shell.DiagKindUnusedVariable))
}

func TestAnalyze_ReadonlyReassignmentIsAnError(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "readonly X=1; X=2")

	assert.True(t, hasDiag(result.Diagnostics, "variable-resolution", shell.DiagKindReadonlyAssignment))
}

func TestAnalyze_PathDoesNotExistWarning(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{existing: map[string]bool{}}, fakeEnv{})
	result := az.Analyze("<test>", "cd /nowhere")

	assert.True(t, hasDiag(result.Diagnostics, "path-validation", shell.DiagKindInvalidPath))
}

func TestAnalyze_PathExistsProducesNoWarning(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{existing: map[string]bool{"/tmp": true}}, fakeEnv{})
	result := az.Analyze("<test>", "cd /tmp")

	assert.False(t, hasDiag(result.Diagnostics, "path-validation", shell.DiagKindInvalidPath))
}

func TestAnalyze_GlobWithNoMatchesIsInfo(t *testing.T) {
	t.Parallel()

	fs := fakeFS{globs: map[string][]string{"*.log": nil}}
	az := newAnalyzer(fs, fakeEnv{})
	result := az.Analyze("<test>", "cat *.log")

	var found bool

	for _, d := range result.Diagnostics {
		if d.Source == "path-validation" && d.Kind == shell.DiagKindInvalidPath && d.Severity == shell.SeverityInfo {
			found = true
		}
	}

	assert.True(t, found)
}

func TestAnalyze_UnknownCommandSuggestsNearest(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "grpe file.txt")

	var msg string

	for _, d := range result.Diagnostics {
		if d.Source == "command-validation" && d.Kind == shell.DiagKindUndefinedCommand {
			msg = d.Message
		}
	}

	assert.Contains(t, msg, "grep")
}

func TestAnalyze_ArityViolation(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "cd one two")

	assert.True(t, hasDiag(result.Diagnostics, "command-validation", shell.DiagKindUnexpectedToken))
}

func TestAnalyze_UnknownFlag(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "ls --bogus")

	var msg string

	for _, d := range result.Diagnostics {
		if d.Source == "command-validation" && d.Kind == shell.DiagKindUnexpectedToken {
			msg = d.Message
		}
	}

	assert.Contains(t, msg, "bogus")
}

func TestAnalyze_TypeMismatchInArithmetic(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "echo $((1+true))")

	var found bool

	for _, d := range result.Diagnostics {
		if d.Kind == shell.DiagKindTypeMismatch {
			found = true
		}
	}

	assert.True(t, found)
}

func TestAnalyze_BreakOutsideLoopIsAnError(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "break")

	assert.True(t, hasDiag(result.Diagnostics, "context-analysis", shell.DiagKindUnexpectedToken))
}

func TestAnalyze_ReturnOutsideFunctionIsAnError(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "return 1")

	assert.True(t, hasDiag(result.Diagnostics, "context-analysis", shell.DiagKindUnexpectedToken))
}

func TestAnalyze_BreakInsideLoopIsFine(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "for x in a do break done")

	assert.False(t, hasDiag(result.Diagnostics, "context-analysis", shell.DiagKindUnexpectedToken))
}

func TestAnalyze_UnreachableCodeAfterReturn(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "function f() { return 1; echo after }")

	assert.True(t, hasDiag(result.Diagnostics, "data-flow", shell.DiagKindUnreachableCode))
}

func TestAnalyze_ReadBeforeAssignmentIsFlagged(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "echo $y; y=5")

	var found bool

	for _, d := range result.Diagnostics {
		if d.Source == "data-flow" && d.Kind == shell.DiagKindUndefinedVariable {
			found = true
		}
	}

	assert.True(t, found)
}

func TestAnalyze_PureCommandIsMarkedPure(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "echo hello")
	require.NotNil(t, result.Program)

	cmd, ok := result.Program.Statements[0].(*shell.Command)
	require.True(t, ok)
	assert.True(t, result.Purity[cmd.ID()])
}

func TestAnalyze_PipelineOfIOCommandsIsParallelizable(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "cat file.txt | grep pattern")
	require.NotNil(t, result.Program)

	pipe, ok := result.Program.Statements[0].(*shell.Pipeline)
	require.True(t, ok)
	assert.True(t, result.Parallelizable[pipe.ID()])
}

func TestAnalyze_PipelineWithSideEffectingStageIsNotParallelizable(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "ls | xargs echo")
	require.NotNil(t, result.Program)

	pipe, ok := result.Program.Statements[0].(*shell.Pipeline)
	require.True(t, ok)
	assert.False(t, result.Parallelizable[pipe.ID()])
}

func TestAnalyze_OptimizationHintForCatGrep(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "cat file.txt | grep pattern")

	require.Len(t, result.Hints, 1)
	assert.Contains(t, result.Hints[0].Message, "grep")
}

func TestAnalyze_EvalIsFlaggedAsSecurityRisk(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{})
	result := az.Analyze("<test>", "eval $cmd")

	assert.True(t, hasDiag(result.Diagnostics, "security-analysis", shell.DiagKindSecurityRisk))
}

func TestAnalyze_DynamicCommandNameIsFlagged(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{vars: map[string]string{"RUNNER": "echo"}})
	result := az.Analyze("<test>", "$RUNNER start")

	assert.True(t, hasDiag(result.Diagnostics, "security-analysis", shell.DiagKindSecurityRisk))
}

func TestAnalyze_UnquotedVariableAsPathArgument(t *testing.T) {
	t.Parallel()

	az := newAnalyzer(fakeFS{}, fakeEnv{vars: map[string]string{"file": "a.txt"}})
	result := az.Analyze("<test>", "cat $file")

	assert.True(t, hasDiag(result.Diagnostics, "security-analysis", shell.DiagKindSecurityRisk))
}

func TestAnalyze_StrictModePromotesWarningsToErrors(t *testing.T) {
	t.Parallel()

	cfg := &shell.Config{Strict: true}
	az := analysis.NewAnalyzer(shell.NewStaticCommandRegistry(), fakeFS{}, fakeEnv{}, cfg, nil)
	result := az.Analyze("<test>", "echo $MISSING")

	for _, d := range result.Diagnostics {
		if d.Source == "variable-resolution" && d.Kind == shell.DiagKindUndefinedVariable {
			assert.Equal(t, shell.SeverityError, d.Severity)
		}
	}
}
