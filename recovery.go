package shell

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// RecoveryState is the state machine of §4.8: Idle -> Repairing ->
// {Success, Partial, Failure, Panic}.
type RecoveryState int

const (
	RecoveryIdle RecoveryState = iota
	RecoveryRepairing
	RecoverySuccess
	RecoveryPartial
	RecoveryFailure
	RecoveryPanic
)

// String implements fmt.Stringer.
func (s RecoveryState) String() string {
	switch s {
	case RecoveryIdle:
		return "idle"
	case RecoveryRepairing:
		return "repairing"
	case RecoverySuccess:
		return "success"
	case RecoveryPartial:
		return "partial"
	case RecoveryFailure:
		return "failure"
	case RecoveryPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// SyncKind classifies a synchronization point, per §4.8.
type SyncKind int

const (
	SyncStatementEnd SyncKind = iota
	SyncBlockStart
	SyncBlockEnd
	SyncCommandEnd
	SyncPipelineEnd
	SyncControlBoundary
	SyncScriptEnd
)

// SyncPoint is a token position the parser derives from its lookahead over
// the tokens ahead of the cursor (see parser.syncPoints), along with a priority the recovery engine uses to pick the nearest-and-highest
// point ahead of the cursor when entering panic mode.
type SyncPoint struct {
	Kind       SyncKind
	Priority   int
	TokenIndex int
}

// RepairOpKind enumerates the edit primitives a RepairCandidate applies.
type RepairOpKind int

const (
	OpInsert RepairOpKind = iota
	OpDelete
	OpReplace
	OpSwap
	OpReplacePhrase
)

// RepairOp is one edit: Tokens holds the replacement/insertion content (one
// token for Insert/Delete/Replace, two for Swap, a phrase for
// ReplacePhrase).
type RepairOp struct {
	Kind     RepairOpKind
	Position int
	Tokens   []Token
}

// StrategyTag names which of §4.8's three candidate-generation families (or
// which sub-mode within rule-based) produced a RepairCandidate.
type StrategyTag int

const (
	StrategyTokenSkip StrategyTag = iota
	StrategyTokenInsertion
	StrategySubstitution
	StrategySyntacticFragment
	StrategyPanicMode
	StrategyPhraseLevel
	StrategySemanticAssisted
	StrategyMLAssisted
)

// String implements fmt.Stringer, used by the learning hook's stats export.
func (s StrategyTag) String() string {
	switch s {
	case StrategyTokenSkip:
		return "token-skip"
	case StrategyTokenInsertion:
		return "token-insertion"
	case StrategySubstitution:
		return "substitution"
	case StrategySyntacticFragment:
		return "syntactic-fragment"
	case StrategyPanicMode:
		return "panic-mode"
	case StrategyPhraseLevel:
		return "phrase-level"
	case StrategySemanticAssisted:
		return "semantic-assisted"
	case StrategyMLAssisted:
		return "ml-assisted"
	default:
		return "unknown"
	}
}

// RepairCandidate is one proposed edit to the token stream, per §3.
type RepairCandidate struct {
	Before        []Token
	After         []Token
	Operations    []RepairOp
	Description   string
	Strategy      StrategyTag
	Confidence    float64 // [0.0, 1.0]
	Cost          int     // edit count
	Rule          string  // originating rule name, if rule-based
	PriorityBonus int     // rule-specific bonus added atop the scoring law
}

// priority implements §4.8's ranking formula: round(confidence*100) -
// 10*cost, plus any rule-specific bonus.
func (c RepairCandidate) priority() int {
	return int(c.Confidence*100+0.5) - 10*c.Cost + c.PriorityBonus
}

func (c RepairCandidate) firstPosition() int {
	if len(c.Operations) == 0 {
		return 1 << 30
	}

	pos := c.Operations[0].Position
	for _, op := range c.Operations[1:] {
		if op.Position < pos {
			pos = op.Position
		}
	}

	return pos
}

// Outcome tags what happened when a RepairCandidate was applied.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFailure
	OutcomePanic
)

// RepairResult wraps the chosen candidate with its outcome.
type RepairResult struct {
	Candidate RepairCandidate
	Outcome   Outcome
}

// ErrorShape classifies the structured shape of a parse error, per §4.8's
// rule-pattern vocabulary.
type ErrorShape int

const (
	ShapeExpectedTokenFound ErrorShape = iota
	ShapeOneOfExpected
	ShapeUnexpectedToken
	ShapeUnexpectedEOF
	ShapeMismatchedDelimiter
	ShapeInvalidRedirection
	ShapeUndefinedSymbol
)

// ParseError is the structured error the parser hands to the recovery
// engine, carrying enough shape information for rule matching.
type ParseError struct {
	Shape    ErrorShape
	Expected []TokenKind
	Found    Token
	Span     Span
	Message  string
}

// RecoveryContext is everything a Rule, the statistical strategy, or a
// Predictor needs to propose a repair: the full token stream, the error
// cursor, any open-delimiter stack, and the triggering error.
type RecoveryContext struct {
	Tokens     []Token
	Pos        int
	OpenDelims []Token
	Err        ParseError
}

// Rule is one rule-based repair strategy, per §4.8.
type Rule struct {
	Name            string
	Pattern         ErrorShape
	Predicate       func(ctx *RecoveryContext) bool
	Action          func(ctx *RecoveryContext) *RepairCandidate
	Priority        int
	Confidence      float64
	MaxApplications int // 0 means unlimited

	applied int
}

// Predictor is the optional ML/model-assisted collaborator of §6: given a
// cursor position and bounded token context, it returns ranked suggestions.
// The engine trusts only the returned confidence and description.
type Predictor interface {
	Predict(ctx *RecoveryContext) []PredictorSuggestion
}

// PredictorSuggestion is one suggestion a Predictor returns.
type PredictorSuggestion struct {
	Text       string
	Confidence float64
	Reason     string
	Kind       TokenKind
}

// TransitionTable maps a previous token kind to a probability distribution
// over next-token kinds, consulted by the statistical strategy.
type TransitionTable map[TokenKind]map[TokenKind]float64

// DefaultTransitionTable seeds plausible shell-grammar transitions so the
// statistical strategy has something to rank even before any caller-supplied
// corpus statistics are loaded via ImportStats.
func DefaultTransitionTable() TransitionTable {
	return TransitionTable{
		KindIf:        {KindLBracket: 0.4, KindIdent: 0.3, KindDollarVar: 0.3},
		KindThen:      {KindIdent: 0.5, KindLBrace: 0.2, KindDollarVar: 0.3},
		KindFor:       {KindIdent: 1.0},
		KindWhile:     {KindLBracket: 0.5, KindIdent: 0.5},
		KindDo:        {KindIdent: 0.6, KindDollarVar: 0.4},
		KindFunction:  {KindIdent: 1.0},
		KindEquals:    {KindIdent: 0.3, KindStringDouble: 0.3, KindNumberInt: 0.2, KindDollarVar: 0.2},
		KindPipe:      {KindIdent: 1.0},
		KindSemicolon: {KindIdent: 0.5, KindFi: 0.2, KindDone: 0.2, KindEsac: 0.1},
		KindIdent:     {KindSemicolon: 0.3, KindPipe: 0.2, KindShortFlag: 0.2, KindIdent: 0.3},
	}
}

// ErrorKindStats accumulates the learning hook's per-error-kind counters.
type ErrorKindStats struct {
	Occurrences     int
	StrategySuccess map[StrategyTag]int
	StrategyFailure map[StrategyTag]int
	totalCost       int
	totalAttempts   int
}

// AverageCost returns the running average repair cost for this error kind.
func (s *ErrorKindStats) AverageCost() float64 {
	if s.totalAttempts == 0 {
		return 0
	}

	return float64(s.totalCost) / float64(s.totalAttempts)
}

// LearningStats is the recovery engine's learning hook state, per §4.8 and
// its §6 export contract. The engine never persists this itself; callers
// serialize/deserialize it.
type LearningStats struct {
	PerErrorKind   map[ErrorShape]*ErrorKindStats
	TokenFrequency map[TokenKind]int
	CommandArgPatterns map[string]int
}

// NewLearningStats returns an empty stats table.
func NewLearningStats() *LearningStats {
	return &LearningStats{
		PerErrorKind:       make(map[ErrorShape]*ErrorKindStats),
		TokenFrequency:     make(map[TokenKind]int),
		CommandArgPatterns: make(map[string]int),
	}
}

func (s *LearningStats) record(shape ErrorShape, strategy StrategyTag, outcome Outcome, cost int) {
	k, ok := s.PerErrorKind[shape]
	if !ok {
		k = &ErrorKindStats{
			StrategySuccess: make(map[StrategyTag]int),
			StrategyFailure: make(map[StrategyTag]int),
		}
		s.PerErrorKind[shape] = k
	}

	k.Occurrences++
	k.totalAttempts++
	k.totalCost += cost

	if outcome == OutcomeSuccess || outcome == OutcomePartial {
		k.StrategySuccess[strategy]++
	} else {
		k.StrategyFailure[strategy]++
	}
}

// SuccessRate returns the overall fraction of recorded attempts that ended
// in Success or Partial, for the §6 "repair success rate" export field.
func (s *LearningStats) SuccessRate() float64 {
	var success, total int

	for _, k := range s.PerErrorKind {
		total += k.totalAttempts

		for _, n := range k.StrategySuccess {
			success += n
		}
	}

	if total == 0 {
		return 0
	}

	return float64(success) / float64(total)
}

// RecoveryConfig bounds the engine's effort, per §4.8's defaults.
type RecoveryConfig struct {
	PanicThreshold      int // default 3: consecutive errors before panic mode
	MaxAttemptsPerError int // default 5
	MaxCostPerRepair    int // default 20 edits
	TotalCostBudget     int // default 20 edits per cycle
	TopKStatistical     int // default 3
}

// DefaultRecoveryConfig returns §4.8's stated defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		PanicThreshold:      3,
		MaxAttemptsPerError: 5,
		MaxCostPerRepair:    20,
		TotalCostBudget:     20,
		TopKStatistical:     3,
	}
}

// Engine is the error-recovery subsystem of §4.8: it owns the rule
// registry, the transition table, an optional Predictor, the learning-hook
// stats, and the panic-mode consecutive-error counter. One Engine is
// created per parse cycle (§5: "nothing inside the core is shared mutable
// state across cycles").
type Engine struct {
	Config      RecoveryConfig
	Rules       []*Rule
	Transitions TransitionTable
	Predictor   Predictor
	Stats       *LearningStats

	state             RecoveryState
	consecutiveErrors int
	totalCostSpent    int
	logger            *zap.Logger
}

// NewEngine builds a recovery engine with the default rule-based strategies
// of defaultRules(), the seeded transition table, and an optional zap
// logger (a nop logger is used if nil, per the ambient-logging stack).
func NewEngine(cfg RecoveryConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		Config:      cfg,
		Rules:       defaultRules(),
		Transitions: DefaultTransitionTable(),
		Stats:       NewLearningStats(),
		state:       RecoveryIdle,
		logger:      logger,
	}
}

// State returns the engine's current state-machine value.
func (e *Engine) State() RecoveryState { return e.state }

// RecoveryOutcome is what Recover returns: the chosen repair (if any), the
// full ranked candidate list for user presentation, and the resulting
// token stream and cursor.
type RecoveryOutcome struct {
	Result     RepairResult
	Candidates []RepairCandidate
	Tokens     []Token
	Pos        int
}

// Recover is the parser's single entry point into the engine. It
// implements the full §4.8 flow: panic-mode escalation after
// Config.PanicThreshold consecutive errors, up to Config.MaxAttemptsPerError
// candidate-generation/ranking/application attempts otherwise, and the
// learning hook after the outcome is known.
func (e *Engine) Recover(tokens []Token, pos int, perr ParseError, syncPoints []SyncPoint) RecoveryOutcome {
	e.state = RecoveryRepairing
	e.consecutiveErrors++

	if e.consecutiveErrors > e.Config.PanicThreshold {
		return e.panicRecover(tokens, pos, perr, syncPoints)
	}

	ctx := &RecoveryContext{Tokens: tokens, Pos: pos, OpenDelims: openDelimiters(tokens, pos), Err: perr}

	candidates := e.generateCandidates(ctx)
	if len(candidates) == 0 {
		return e.panicRecover(tokens, pos, perr, syncPoints)
	}

	rank(candidates)

	for i := 0; i < e.Config.MaxAttemptsPerError && i < len(candidates); i++ {
		c := candidates[i]
		if c.Cost > e.Config.MaxCostPerRepair || e.totalCostSpent+c.Cost > e.Config.TotalCostBudget {
			continue
		}

		newTokens, newPos := applyCandidate(tokens, pos, c)
		e.totalCostSpent += c.Cost
		e.consecutiveErrors = 0

		outcome := OutcomeSuccess
		if c.Confidence < 0.5 {
			outcome = OutcomePartial
		}

		e.state = stateFor(outcome)
		e.recordOutcome(ctx, c, outcome)
		e.logger.Debug("recovery applied", zap.String("rule", c.Rule), zap.String("strategy", c.Strategy.String()), zap.Int("cost", c.Cost))

		return RecoveryOutcome{Result: RepairResult{Candidate: c, Outcome: outcome}, Candidates: candidates, Tokens: newTokens, Pos: newPos}
	}

	return e.panicRecover(tokens, pos, perr, syncPoints)
}

func stateFor(o Outcome) RecoveryState {
	switch o {
	case OutcomeSuccess:
		return RecoverySuccess
	case OutcomePartial:
		return RecoveryPartial
	case OutcomeFailure:
		return RecoveryFailure
	default:
		return RecoveryPanic
	}
}

// panicRecover skips to the nearest registered synchronization point ahead
// of pos with the highest priority, per §4.8. If no sync point lies ahead,
// it skips to end of stream.
func (e *Engine) panicRecover(tokens []Token, pos int, perr ParseError, syncPoints []SyncPoint) RecoveryOutcome {
	target := len(tokens) - 1

	best := -1
	bestPriority := -1

	for _, sp := range syncPoints {
		if sp.TokenIndex < pos {
			continue
		}

		if sp.Priority > bestPriority || (sp.Priority == bestPriority && sp.TokenIndex < best) {
			bestPriority = sp.Priority
			best = sp.TokenIndex
		}
	}

	if best >= 0 {
		target = best
	}

	skipped := tokens[pos:target]
	cand := RepairCandidate{
		Before:      skipped,
		Operations:  []RepairOp{{Kind: OpDelete, Position: pos, Tokens: skipped}},
		Description: "panic-mode skip to synchronization point",
		Strategy:    StrategyPanicMode,
		Confidence:  0.1,
		Cost:        len(skipped),
	}

	e.consecutiveErrors = 0
	e.state = RecoveryPanic
	e.recordOutcome(&RecoveryContext{Tokens: tokens, Pos: pos, Err: perr}, cand, OutcomePanic)
	e.logger.Warn("recovery entered panic mode", zap.Int("skipped", len(skipped)), zap.String("error", perr.Message))

	return RecoveryOutcome{
		Result:     RepairResult{Candidate: cand, Outcome: OutcomePanic},
		Candidates: []RepairCandidate{cand},
		Tokens:     tokens,
		Pos:        target,
	}
}

// recordOutcome feeds the learning hook: it tallies the outcome under the
// error's shape and strategy, counts every token kind the repair touched
// (the token that triggered the error plus every token an operation
// inserted or deleted) into TokenFrequency, and when the error followed an
// identifier records a CommandArgPatterns entry keyed by that identifier's
// raw text and the strategy that repaired it.
func (e *Engine) recordOutcome(ctx *RecoveryContext, c RepairCandidate, outcome Outcome) {
	e.Stats.record(ctx.Err.Shape, c.Strategy, outcome, c.Cost)

	e.Stats.TokenFrequency[ctx.Err.Found.Kind]++

	for _, op := range c.Operations {
		for _, t := range op.Tokens {
			e.Stats.TokenFrequency[t.Kind]++
		}
	}

	if ctx.Pos > 0 && ctx.Pos-1 < len(ctx.Tokens) {
		if prev := ctx.Tokens[ctx.Pos-1]; prev.Kind == KindIdent {
			e.Stats.CommandArgPatterns[prev.Raw+":"+c.Strategy.String()]++
		}
	}
}

// generateCandidates runs all three strategies of §4.8 and concatenates
// their output for ranking.
func (e *Engine) generateCandidates(ctx *RecoveryContext) []RepairCandidate {
	var out []RepairCandidate

	out = append(out, e.generateRuleCandidates(ctx)...)
	out = append(out, e.generateStatisticalCandidates(ctx)...)
	out = append(out, e.generateMLCandidates(ctx)...)

	return out
}

func (e *Engine) generateRuleCandidates(ctx *RecoveryContext) []RepairCandidate {
	var out []RepairCandidate

	for _, r := range e.Rules {
		if r.Pattern != ctx.Err.Shape {
			continue
		}

		if r.MaxApplications > 0 && r.applied >= r.MaxApplications {
			continue
		}

		if r.Predicate != nil && !r.Predicate(ctx) {
			continue
		}

		c := r.Action(ctx)
		if c == nil {
			continue
		}

		c.Rule = r.Name
		c.Confidence = r.Confidence
		c.PriorityBonus = r.Priority
		r.applied++
		out = append(out, *c)
	}

	return out
}

// generateStatisticalCandidates consults the transition table for the
// top-k predicted next-token kinds and proposes them as insertions, plus a
// missing-closer candidate when the open-delimiter stack is unbalanced.
func (e *Engine) generateStatisticalCandidates(ctx *RecoveryContext) []RepairCandidate {
	var out []RepairCandidate

	if len(ctx.OpenDelims) > 0 && (ctx.Err.Shape == ShapeUnexpectedEOF || ctx.Err.Shape == ShapeMismatchedDelimiter) {
		last := ctx.OpenDelims[len(ctx.OpenDelims)-1]
		closer := closingFor(last.Kind)

		out = append(out, RepairCandidate{
			Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: closer, Raw: closerText(closer)}}}},
			Description: fmt.Sprintf("insert missing %s to balance %s", closerText(closer), last.Raw),
			Strategy:    StrategyTokenInsertion,
			Confidence:  0.7,
			Cost:        1,
		})
	}

	var prevKind TokenKind

	if ctx.Pos > 0 {
		prevKind = ctx.Tokens[ctx.Pos-1].Kind
	}

	dist := e.Transitions[prevKind]
	if len(dist) == 0 {
		return out
	}

	type scored struct {
		kind TokenKind
		prob float64
	}

	ranked := make([]scored, 0, len(dist))
	for k, p := range dist {
		ranked = append(ranked, scored{k, p})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].prob > ranked[j].prob })

	k := e.Config.TopKStatistical
	if k > len(ranked) {
		k = len(ranked)
	}

	for rank, s := range ranked[:k] {
		discount := 1.0 / float64(rank+1)
		out = append(out, RepairCandidate{
			Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: s.kind}}}},
			Description: fmt.Sprintf("insert predicted token kind %s", s.kind),
			Strategy:    StrategyTokenInsertion,
			Confidence:  s.prob * discount,
			Cost:        1,
		})
	}

	return out
}

func (e *Engine) generateMLCandidates(ctx *RecoveryContext) []RepairCandidate {
	if e.Predictor == nil {
		return nil
	}

	suggestions := e.Predictor.Predict(ctx)
	out := make([]RepairCandidate, 0, len(suggestions))

	for _, s := range suggestions {
		out = append(out, RepairCandidate{
			Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: s.Kind, Raw: s.Text, Value: s.Text}}}},
			Description: s.Reason,
			Strategy:    StrategyMLAssisted,
			Confidence:  s.Confidence,
			Cost:        1,
		})
	}

	return out
}

// rank sorts candidates by §4.8's priority formula, descending, breaking
// ties by lower cost then earlier position.
func rank(candidates []RepairCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].priority(), candidates[j].priority()
		if pi != pj {
			return pi > pj
		}

		if candidates[i].Cost != candidates[j].Cost {
			return candidates[i].Cost < candidates[j].Cost
		}

		return candidates[i].firstPosition() < candidates[j].firstPosition()
	})
}

// applyCandidate applies c's operations to tokens, per §4.8's defined
// order: replacements and deletions first (highest position first, so
// earlier indices stay valid), then insertions (highest position first).
// The returned cursor is adjusted by the net length delta relative to pos.
func applyCandidate(tokens []Token, pos int, c RepairCandidate) ([]Token, int) {
	out := make([]Token, len(tokens))
	copy(out, tokens)

	var deletions, insertions []RepairOp

	for _, op := range c.Operations {
		switch op.Kind {
		case OpInsert:
			insertions = append(insertions, op)
		default:
			deletions = append(deletions, op)
		}
	}

	sort.Slice(deletions, func(i, j int) bool { return deletions[i].Position > deletions[j].Position })

	delta := 0

	for _, op := range deletions {
		switch op.Kind {
		case OpDelete:
			n := len(op.Tokens)
			if n == 0 {
				n = 1
			}

			end := op.Position + n
			if end > len(out) {
				end = len(out)
			}

			if op.Position <= pos {
				delta -= (end - op.Position)
			}

			out = append(out[:op.Position], out[end:]...)
		case OpReplace, OpReplacePhrase:
			end := op.Position + 1
			if end > len(out) {
				end = len(out)
			}

			if op.Position <= pos {
				delta += len(op.Tokens) - (end - op.Position)
			}

			replacement := append([]Token{}, out[:op.Position]...)
			replacement = append(replacement, op.Tokens...)
			replacement = append(replacement, out[end:]...)
			out = replacement
		case OpSwap:
			if op.Position+1 < len(out) {
				out[op.Position], out[op.Position+1] = out[op.Position+1], out[op.Position]
			}
		}
	}

	sort.Slice(insertions, func(i, j int) bool { return insertions[i].Position > insertions[j].Position })

	for _, op := range insertions {
		if op.Position <= pos {
			delta += len(op.Tokens)
		}

		insertAt := op.Position
		if insertAt > len(out) {
			insertAt = len(out)
		}

		merged := append([]Token{}, out[:insertAt]...)
		merged = append(merged, op.Tokens...)
		merged = append(merged, out[insertAt:]...)
		out = merged
	}

	newPos := pos + delta
	if newPos < 0 {
		newPos = 0
	}

	if newPos > len(out) {
		newPos = len(out)
	}

	return out, newPos
}

// openDelimiters scans tokens[:pos] and returns the stack of still-open
// bracket/paren/brace tokens, used by the statistical strategy's
// delimiter-balance check.
func openDelimiters(tokens []Token, pos int) []Token {
	var stack []Token

	for i := 0; i < pos && i < len(tokens); i++ {
		t := tokens[i]

		switch {
		case t.IsOpenBracket():
			stack = append(stack, t)
		case t.IsCloseBracket():
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	return stack
}

func closingFor(open TokenKind) TokenKind {
	switch open {
	case KindLParen:
		return KindRParen
	case KindLBracket:
		return KindRBracket
	case KindLBrace:
		return KindRBrace
	default:
		return KindRParen
	}
}

func closerText(kind TokenKind) string {
	switch kind {
	case KindRParen:
		return ")"
	case KindRBracket:
		return "]"
	case KindRBrace:
		return "}"
	default:
		return ""
	}
}

// defaultRules returns the built-in rule-based strategies of §4.8,
// covering the error shapes §4.8 names: expected-token-found,
// one-of-expected, unexpected-token, unexpected-EOF, mismatched-delimiter,
// invalid-redirection, undefined-symbol.
func defaultRules() []*Rule {
	return []*Rule{
		{
			Name:       "insert-expected-token",
			Pattern:    ShapeExpectedTokenFound,
			Priority:   5,
			Confidence: 0.8,
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				if len(ctx.Err.Expected) == 0 {
					return nil
				}

				want := ctx.Err.Expected[0]

				return &RepairCandidate{
					Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: want}}}},
					Description: fmt.Sprintf("insert missing %s before %q", want, ctx.Err.Found.Raw),
					Strategy:    StrategyTokenInsertion,
					Cost:        1,
				}
			},
		},
		{
			Name:       "insert-one-of-expected",
			Pattern:    ShapeOneOfExpected,
			Priority:   3,
			Confidence: 0.6,
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				if len(ctx.Err.Expected) == 0 {
					return nil
				}

				want := ctx.Err.Expected[0]

				return &RepairCandidate{
					Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: want}}}},
					Description: fmt.Sprintf("insert %s (one of %d expected kinds)", want, len(ctx.Err.Expected)),
					Strategy:    StrategyTokenInsertion,
					Cost:        1,
				}
			},
		},
		{
			Name:       "skip-unexpected-token",
			Pattern:    ShapeUnexpectedToken,
			Priority:   0,
			Confidence: 0.5,
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				return &RepairCandidate{
					Operations:  []RepairOp{{Kind: OpDelete, Position: ctx.Pos, Tokens: []Token{ctx.Err.Found}}},
					Description: fmt.Sprintf("skip unexpected token %q", ctx.Err.Found.Raw),
					Strategy:    StrategyTokenSkip,
					Cost:        1,
				}
			},
		},
		{
			Name:       "skip-to-semicolon",
			Pattern:    ShapeUnexpectedToken,
			Priority:   -2,
			Confidence: 0.4,
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				end := ctx.Pos

				for end < len(ctx.Tokens) && ctx.Tokens[end].Kind != KindSemicolon && !ctx.Tokens[end].EOF() {
					end++
				}

				return &RepairCandidate{
					Operations:  []RepairOp{{Kind: OpDelete, Position: ctx.Pos, Tokens: ctx.Tokens[ctx.Pos:end]}},
					Description: "skip to next statement terminator",
					Strategy:    StrategySyntacticFragment,
					Cost:        end - ctx.Pos,
				}
			},
		},
		{
			Name:       "insert-closing-delimiter",
			Pattern:    ShapeMismatchedDelimiter,
			Priority:   8,
			Confidence: 0.75,
			Predicate:  func(ctx *RecoveryContext) bool { return len(ctx.OpenDelims) > 0 },
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				last := ctx.OpenDelims[len(ctx.OpenDelims)-1]
				closer := closingFor(last.Kind)

				return &RepairCandidate{
					Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: closer, Raw: closerText(closer)}}}},
					Description: "insert matching closing delimiter",
					Strategy:    StrategyTokenInsertion,
					Cost:        1,
				}
			},
		},
		{
			Name:       "insert-redirect-target",
			Pattern:    ShapeInvalidRedirection,
			Priority:   2,
			Confidence: 0.5,
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				return &RepairCandidate{
					Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: KindIdent, Raw: "_"}}}},
					Description: "insert placeholder redirection target",
					Strategy:    StrategyTokenInsertion,
					Cost:        1,
				}
			},
		},
		{
			Name:       "synthesize-undefined-symbol",
			Pattern:    ShapeUndefinedSymbol,
			Priority:   -5,
			Confidence: 0.3,
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				return &RepairCandidate{
					Description: fmt.Sprintf("treat %q as a forward reference", ctx.Err.Found.Raw),
					Strategy:    StrategySemanticAssisted,
					Cost:        0,
				}
			},
		},
		{
			Name:       "insert-eof-closer",
			Pattern:    ShapeUnexpectedEOF,
			Priority:   6,
			Confidence: 0.65,
			Predicate:  func(ctx *RecoveryContext) bool { return len(ctx.OpenDelims) > 0 },
			Action: func(ctx *RecoveryContext) *RepairCandidate {
				last := ctx.OpenDelims[len(ctx.OpenDelims)-1]
				closer := closingFor(last.Kind)

				return &RepairCandidate{
					Operations:  []RepairOp{{Kind: OpInsert, Position: ctx.Pos, Tokens: []Token{{Kind: closer, Raw: closerText(closer)}}}},
					Description: "insert closer before end of file",
					Strategy:    StrategyTokenInsertion,
					Cost:        1,
				}
			},
		},
	}
}
