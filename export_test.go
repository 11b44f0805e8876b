package shell_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
)

func TestNodeKind_ReturnsStableLowercaseTags(t *testing.T) {
	t.Parallel()

	stmt := parseOneStmt(t, "echo hello")
	assert.Equal(t, "command", shell.NodeKind(stmt))

	prog, diags := parse(t, "echo hello")
	require.Empty(t, diags)
	assert.Equal(t, "program", shell.NodeKind(prog))
}

func TestExportNode_NilReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, shell.ExportNode(nil))
}

func TestExportNode_CommandIncludesKindSpanAndChildren(t *testing.T) {
	t.Parallel()

	stmt := parseOneStmt(t, "echo hello world")
	doc := shell.ExportNode(stmt)

	assert.Equal(t, "command", doc["kind"])
	require.Contains(t, doc, "span")
	require.Contains(t, doc, "children")

	children, ok := doc["children"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, children)
}

func TestExportNode_VariableAssignmentIncludesFlags(t *testing.T) {
	t.Parallel()

	stmt := parseOneStmt(t, "export FOO=bar")
	doc := shell.ExportNode(stmt)

	flags, ok := doc["flags"].(shell.Doc)
	require.True(t, ok)
	assert.Equal(t, true, flags["exported"])
}

func TestExportSpan_UnknownSpanMarksUnknown(t *testing.T) {
	t.Parallel()

	doc := shell.ExportSpan(shell.Span{})
	assert.Equal(t, true, doc["unknown"])
}

func TestExportSpan_KnownSpanRendersStartAndEnd(t *testing.T) {
	t.Parallel()

	s := span(3, 8)
	doc := shell.ExportSpan(s)

	start, ok := doc["start"].(shell.Doc)
	require.True(t, ok)
	assert.Equal(t, 3, start["offset"])

	end, ok := doc["end"].(shell.Doc)
	require.True(t, ok)
	assert.Equal(t, 8, end["offset"])
}

func TestExportDiagnostic_IncludesFixesAndRelatedSpans(t *testing.T) {
	t.Parallel()

	diag := shell.Diagnostic{
		Span:         span(0, 1),
		Severity:     shell.SeverityError,
		Message:      "boom",
		Source:       "parser",
		RelatedSpans: []shell.Span{span(2, 3)},
		Fixes: []shell.Fix{
			{Span: span(0, 1), Replacement: "x", Description: "replace"},
		},
	}

	doc := shell.ExportDiagnostic(diag)
	assert.Equal(t, "error", doc["severity"])
	assert.Equal(t, "boom", doc["message"])
	assert.Equal(t, "parser", doc["source"])

	related, ok := doc["relatedSpans"].([]any)
	require.True(t, ok)
	assert.Len(t, related, 1)

	fixes, ok := doc["fixes"].([]any)
	require.True(t, ok)
	require.Len(t, fixes, 1)

	fix, ok := fixes[0].(shell.Doc)
	require.True(t, ok)
	assert.Equal(t, "x", fix["replacement"])
}

func TestExportDiagnostic_WithoutFixesOmitsKey(t *testing.T) {
	t.Parallel()

	doc := shell.ExportDiagnostic(shell.Diagnostic{Span: span(0, 1), Message: "m"})
	assert.NotContains(t, doc, "fixes")
	assert.NotContains(t, doc, "relatedSpans")
}

func TestImportNode_RoundTripsCommandWithArgsFlagsAndRedirection(t *testing.T) {
	t.Parallel()

	stmt := parseOneStmt(t, `grep --color=auto foo.txt > out.txt`)

	doc := shell.ExportNode(stmt)

	got, err := shell.ImportNode(doc)
	require.NoError(t, err)

	if diff := cmp.Diff(stmt, got); diff != "" {
		t.Fatalf("ImportNode(ExportNode(stmt)) mismatch (-want +got):\n%s", diff)
	}
}

func TestImportNode_RoundTripsIfElseAndPipeline(t *testing.T) {
	t.Parallel()

	prog, diags := parse(t, "if true then cat file.txt | grep foo else echo no fi")
	require.Empty(t, diags)

	doc := shell.ExportNode(prog)

	got, err := shell.ImportNode(doc)
	require.NoError(t, err)

	if diff := cmp.Diff(prog, got); diff != "" {
		t.Fatalf("ImportNode(ExportNode(prog)) mismatch (-want +got):\n%s", diff)
	}
}

func TestImportNode_RoundTripsThroughJSONMarshalling(t *testing.T) {
	t.Parallel()

	stmt := parseOneStmt(t, `export FOO=bar`)
	doc := shell.ExportNode(stmt)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var reDoc shell.Doc
	require.NoError(t, json.Unmarshal(raw, &reDoc))

	got, err := shell.ImportNode(reDoc)
	require.NoError(t, err)

	if diff := cmp.Diff(stmt, got); diff != "" {
		t.Fatalf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImportNode_NilDocReturnsNilNode(t *testing.T) {
	t.Parallel()

	got, err := shell.ImportNode(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestImportNode_UnknownKindReturnsError(t *testing.T) {
	t.Parallel()

	_, err := shell.ImportNode(shell.Doc{"kind": "not-a-real-kind"})
	assert.Error(t, err)
}
