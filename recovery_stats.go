package shell

import (
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// statsFormatVersion is bumped whenever the exported shape changes
// incompatibly; importers ignore fields/strategies/kinds they don't
// recognize rather than failing, per §6.
const statsFormatVersion = "1"

// errorKindStatsExport and recoveryStatsExport mirror LearningStats in a
// YAML-friendly shape keyed by name instead of the internal int
// enumerations, per §6: "per-error-kind statistics (occurrence count,
// per-strategy success/failure counts, average cost)".
type errorKindStatsExport struct {
	Occurrences     int            `yaml:"occurrences"`
	StrategySuccess map[string]int `yaml:"strategy_success,omitempty"`
	StrategyFailure map[string]int `yaml:"strategy_failure,omitempty"`
	AverageCost     float64        `yaml:"average_cost"`
}

// RecoveryStatsExport is the §6 "Recovery-state export" document: repair
// success rate, per-error-kind statistics, per-token transition
// probabilities, command argument patterns, a token-frequency table, a
// format version, a run identifier, and an ISO-8601 timestamp supplied by
// the caller (the engine itself never calls a wall-clock API, per §9's "no
// global state"). Export leaves Transitions empty and ImportStats does not
// read it: LearningStats holds no transition data, and the engine's
// TransitionTable is neither exported nor restored through this document.
type RecoveryStatsExport struct {
	FormatVersion      string                          `yaml:"format_version"`
	RunID              string                          `yaml:"run_id"`
	Timestamp          string                          `yaml:"timestamp"`
	SuccessRate        float64                         `yaml:"success_rate"`
	PerErrorKind       map[string]errorKindStatsExport  `yaml:"per_error_kind"`
	Transitions        map[string]map[string]float64    `yaml:"transitions,omitempty"`
	CommandArgPatterns map[string]int                   `yaml:"command_arg_patterns,omitempty"`
	TokenFrequency     map[string]int                   `yaml:"token_frequency,omitempty"`
}

var errorShapeNames = map[ErrorShape]string{
	ShapeExpectedTokenFound:  "expected-token-found",
	ShapeOneOfExpected:       "one-of-expected",
	ShapeUnexpectedToken:     "unexpected-token",
	ShapeUnexpectedEOF:       "unexpected-eof",
	ShapeMismatchedDelimiter: "mismatched-delimiter",
	ShapeInvalidRedirection:  "invalid-redirection",
	ShapeUndefinedSymbol:     "undefined-symbol",
}

var errorShapeByName = reverseStringMap(errorShapeNames)

var strategyNames = map[StrategyTag]string{
	StrategyTokenSkip:         "token-skip",
	StrategyTokenInsertion:    "token-insertion",
	StrategySubstitution:      "substitution",
	StrategySyntacticFragment: "syntactic-fragment",
	StrategyPanicMode:         "panic-mode",
	StrategyPhraseLevel:       "phrase-level",
	StrategySemanticAssisted:  "semantic-assisted",
	StrategyMLAssisted:        "ml-assisted",
}

var strategyByName = reverseStringMapStrategy(strategyNames)

func reverseStringMap(m map[ErrorShape]string) map[string]ErrorShape {
	out := make(map[string]ErrorShape, len(m))
	for k, v := range m {
		out[v] = k
	}

	return out
}

func reverseStringMapStrategy(m map[StrategyTag]string) map[string]StrategyTag {
	out := make(map[string]StrategyTag, len(m))
	for k, v := range m {
		out[v] = k
	}

	return out
}

// Export snapshots s into the §6 wire document. timestamp is caller-supplied
// (e.g. time.Now().UTC().Format(time.RFC3339)); a fresh RunID is minted
// per export via github.com/google/uuid, matching the teacher's use of
// uuid for stable per-process identifiers.
func (s *LearningStats) Export(timestamp string) RecoveryStatsExport {
	out := RecoveryStatsExport{
		FormatVersion:      statsFormatVersion,
		RunID:              uuid.NewString(),
		Timestamp:          timestamp,
		SuccessRate:        s.SuccessRate(),
		PerErrorKind:       make(map[string]errorKindStatsExport, len(s.PerErrorKind)),
		CommandArgPatterns: s.CommandArgPatterns,
		TokenFrequency:     make(map[string]int, len(s.TokenFrequency)),
	}

	for shape, k := range s.PerErrorKind {
		name, ok := errorShapeNames[shape]
		if !ok {
			continue
		}

		success := make(map[string]int, len(k.StrategySuccess))
		for strat, n := range k.StrategySuccess {
			success[strategyNames[strat]] = n
		}

		failure := make(map[string]int, len(k.StrategyFailure))
		for strat, n := range k.StrategyFailure {
			failure[strategyNames[strat]] = n
		}

		out.PerErrorKind[name] = errorKindStatsExport{
			Occurrences:     k.Occurrences,
			StrategySuccess: success,
			StrategyFailure: failure,
			AverageCost:     k.AverageCost(),
		}
	}

	for kind, n := range s.TokenFrequency {
		out.TokenFrequency[kind.String()] = n
	}

	return out
}

// MarshalYAML renders the export document the way the teacher's
// config.go uses gopkg.in/yaml.v3 for its own config file format.
func (e RecoveryStatsExport) MarshalYAML() (string, error) {
	data, err := yaml.Marshal(e)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ImportStats parses a previously exported YAML document and fills a fresh
// LearningStats. Unknown strategy or error-kind names are ignored with no
// error, per §6 ("unknown strategy or token names are ignored with a
// warning"); the warning itself is the caller's concern (it holds the
// logger), so Import just returns how many entries it skipped.
func ImportStats(data []byte) (*LearningStats, int, error) {
	var doc RecoveryStatsExport

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, 0, err
	}

	stats := NewLearningStats()
	skipped := 0

	for name, k := range doc.PerErrorKind {
		shape, ok := errorShapeByName[name]
		if !ok {
			skipped++

			continue
		}

		entry := &ErrorKindStats{
			Occurrences:     k.Occurrences,
			StrategySuccess: make(map[StrategyTag]int),
			StrategyFailure: make(map[StrategyTag]int),
			totalAttempts:   k.Occurrences,
			totalCost:       int(k.AverageCost * float64(k.Occurrences)),
		}

		for strat, n := range k.StrategySuccess {
			tag, ok := strategyByName[strat]
			if !ok {
				skipped++

				continue
			}

			entry.StrategySuccess[tag] = n
		}

		for strat, n := range k.StrategyFailure {
			tag, ok := strategyByName[strat]
			if !ok {
				skipped++

				continue
			}

			entry.StrategyFailure[tag] = n
		}

		stats.PerErrorKind[shape] = entry
	}

	for name, n := range doc.CommandArgPatterns {
		stats.CommandArgPatterns[name] = n
	}

	for name, n := range doc.TokenFrequency {
		kind, ok := tokenKindByName[name]
		if !ok {
			skipped++

			continue
		}

		stats.TokenFrequency[kind] = n
	}

	return stats, skipped, nil
}
