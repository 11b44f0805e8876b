package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
)

func TestLearningStats_ExportRendersNamesNotRawEnums(t *testing.T) {
	t.Parallel()

	eng := shell.NewEngine(shell.DefaultRecoveryConfig(), nil)

	tokens := []shell.Token{
		{Kind: shell.KindIf, Raw: "if"},
		{Kind: shell.KindIdent, Raw: "true"},
		{Kind: shell.KindEOF},
	}
	perr := shell.ParseError{
		Shape:    shell.ShapeExpectedTokenFound,
		Expected: []shell.TokenKind{shell.KindThen},
		Found:    tokens[1],
	}

	eng.Recover(tokens, 1, perr, nil)

	export := eng.Stats.Export("2026-08-01T00:00:00Z")

	assert.Equal(t, "2026-08-01T00:00:00Z", export.Timestamp)
	assert.NotEmpty(t, export.RunID)
	assert.Positive(t, export.SuccessRate)

	kindStats, ok := export.PerErrorKind["expected-token-found"]
	require.True(t, ok)
	assert.Equal(t, 1, kindStats.Occurrences)
	assert.Contains(t, kindStats.StrategySuccess, "token-insertion")
}

func TestRecoveryStatsExport_MarshalYAMLProducesParseableDocument(t *testing.T) {
	t.Parallel()

	eng := shell.NewEngine(shell.DefaultRecoveryConfig(), nil)
	tokens := []shell.Token{
		{Kind: shell.KindIf, Raw: "if"},
		{Kind: shell.KindIdent, Raw: "true"},
		{Kind: shell.KindEOF},
	}
	perr := shell.ParseError{
		Shape:    shell.ShapeExpectedTokenFound,
		Expected: []shell.TokenKind{shell.KindThen},
		Found:    tokens[1],
	}
	eng.Recover(tokens, 1, perr, nil)

	export := eng.Stats.Export("2026-08-01T00:00:00Z")
	text, err := export.MarshalYAML()
	require.NoError(t, err)
	assert.Contains(t, text, "format_version")
	assert.Contains(t, text, "expected-token-found")
}

func TestImportStats_RoundTripsThroughExport(t *testing.T) {
	t.Parallel()

	eng := shell.NewEngine(shell.DefaultRecoveryConfig(), nil)
	tokens := []shell.Token{
		{Kind: shell.KindIf, Raw: "if"},
		{Kind: shell.KindIdent, Raw: "true"},
		{Kind: shell.KindEOF},
	}
	perr := shell.ParseError{
		Shape:    shell.ShapeExpectedTokenFound,
		Expected: []shell.TokenKind{shell.KindThen},
		Found:    tokens[1],
	}
	eng.Recover(tokens, 1, perr, nil)

	export := eng.Stats.Export("2026-08-01T00:00:00Z")
	data, err := export.MarshalYAML()
	require.NoError(t, err)

	imported, skipped, err := shell.ImportStats([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Positive(t, imported.SuccessRate())
}

func TestImportStats_RoundTripsTokenFrequencyAndCommandArgPatterns(t *testing.T) {
	t.Parallel()

	eng := shell.NewEngine(shell.DefaultRecoveryConfig(), nil)
	tokens := []shell.Token{
		{Kind: shell.KindIdent, Raw: "mycommand"},
		{Kind: shell.KindIdent, Raw: "true"},
		{Kind: shell.KindEOF},
	}
	perr := shell.ParseError{
		Shape:    shell.ShapeExpectedTokenFound,
		Expected: []shell.TokenKind{shell.KindThen},
		Found:    tokens[1],
	}
	eng.Recover(tokens, 1, perr, nil)

	require.NotEmpty(t, eng.Stats.TokenFrequency)
	require.NotEmpty(t, eng.Stats.CommandArgPatterns)

	export := eng.Stats.Export("2026-08-01T00:00:00Z")
	assert.Contains(t, export.TokenFrequency, "Ident")
	assert.Contains(t, export.TokenFrequency, "then")

	data, err := export.MarshalYAML()
	require.NoError(t, err)

	imported, skipped, err := shell.ImportStats([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, eng.Stats.TokenFrequency, imported.TokenFrequency)
	assert.Equal(t, eng.Stats.CommandArgPatterns, imported.CommandArgPatterns)
}

func TestImportStats_UnknownTokenNamesAreSkippedNotErrored(t *testing.T) {
	t.Parallel()

	doc := `
format_version: "1"
run_id: test
timestamp: now
success_rate: 1
per_error_kind: {}
token_frequency:
  not-a-real-token: 4
`
	imported, skipped, err := shell.ImportStats([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Empty(t, imported.TokenFrequency)
}

func TestImportStats_UnknownNamesAreSkippedNotErrored(t *testing.T) {
	t.Parallel()

	doc := `
format_version: "1"
run_id: test
timestamp: now
success_rate: 1
per_error_kind:
  some-unknown-shape:
    occurrences: 3
    average_cost: 1
`
	imported, skipped, err := shell.ImportStats([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Empty(t, imported.PerErrorKind)
}

func TestImportStats_InvalidYAMLReturnsError(t *testing.T) {
	t.Parallel()

	_, _, err := shell.ImportStats([]byte("not: [valid: yaml"))
	assert.Error(t, err)
}
