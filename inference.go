package shell

import "fmt"

// maxInferenceRounds bounds the constraint solver's fixed-point iteration,
// per §4.6 ("bounded at 100 rounds") and the termination invariant in §8.
const maxInferenceRounds = 100

// ConstraintKind distinguishes the four constraint shapes §4.6 defines.
type ConstraintKind int

const (
	ConstraintDirect ConstraintKind = iota
	ConstraintEquals
	ConstraintSubtype
	ConstraintConvert
)

// Constraint is one fact the semantic analyzer's type-check stage emits
// about a node's inferred type. A/B are NodeIDs except for Direct, whose B
// field is unused and whose DirectType is authoritative.
type Constraint struct {
	Kind       ConstraintKind
	A, B       NodeID
	DirectType Type
	Target     NodeID // Convert only: the node receiving the converted type
	Span       Span   // for error reporting if the constraint can't be solved
}

// Inference holds the solver's running type assignment, keyed by NodeID.
type Inference struct {
	types map[NodeID]Type
}

// NewInference seeds every id in ids with Unknown, per §4.6 ("Each node
// gets an integer id and an initial Unknown").
func NewInference(ids []NodeID) *Inference {
	types := make(map[NodeID]Type, len(ids))
	for _, id := range ids {
		types[id] = Unknown
	}

	return &Inference{types: types}
}

// TypeOf returns the current best type for id, or Unknown if id was never
// registered.
func (inf *Inference) TypeOf(id NodeID) Type {
	if t, ok := inf.types[id]; ok {
		return t
	}

	return Unknown
}

func (inf *Inference) set(id NodeID, t Type) {
	inf.types[id] = t
}

// Solve runs the fixed-point loop of §4.6 over constraints and returns any
// diagnostics produced by incompatible Equals/Subtype constraints. After
// the loop, every residual Unknown node is lifted to Any, so TypeOf never
// returns Unknown once Solve has run.
func (inf *Inference) Solve(constraints []Constraint) []Diagnostic {
	var diags []Diagnostic

	for round := 0; round < maxInferenceRounds; round++ {
		changed := false

		for _, c := range constraints {
			if inf.applyOnce(c, &diags) {
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	for id, t := range inf.types {
		if t.Kind == TypeUnknown {
			inf.types[id] = Any
		}
	}

	return diags
}

func (inf *Inference) applyOnce(c Constraint, diags *[]Diagnostic) bool {
	switch c.Kind {
	case ConstraintDirect:
		return inf.applyDirect(c)
	case ConstraintEquals:
		return inf.applyEquals(c, diags)
	case ConstraintSubtype:
		return inf.applySubtype(c, diags)
	case ConstraintConvert:
		return inf.applyConvert(c, diags)
	default:
		panic(fmt.Sprintf("shell: unknown constraint kind %d", c.Kind))
	}
}

func (inf *Inference) applyDirect(c Constraint) bool {
	cur := inf.TypeOf(c.A)
	next := Generalize(cur, c.DirectType)

	if cur.Kind == TypeUnknown {
		next = c.DirectType
	}

	if next.Equal(cur) {
		return false
	}

	inf.set(c.A, next)

	return true
}

func (inf *Inference) applyEquals(c Constraint, diags *[]Diagnostic) bool {
	a, b := inf.TypeOf(c.A), inf.TypeOf(c.B)

	switch {
	case a.Kind == TypeUnknown && b.Kind != TypeUnknown:
		inf.set(c.A, b)

		return true
	case b.Kind == TypeUnknown && a.Kind != TypeUnknown:
		inf.set(c.B, a)

		return true
	case a.Kind != TypeUnknown && b.Kind != TypeUnknown && !a.Equal(b):
		if !Compatible(a, b) {
			*diags = append(*diags, Diagnostic{
				Span:     c.Span,
				Severity: SeverityError,
				Kind:     DiagKindTypeMismatch,
				Message:  fmt.Sprintf("incompatible types %s and %s", a, b),
				Source:   "analyzer",
			})

			return false
		}

		merged := Generalize(a, b)
		inf.set(c.A, merged)
		inf.set(c.B, merged)

		return true
	default:
		return false
	}
}

func (inf *Inference) applySubtype(c Constraint, diags *[]Diagnostic) bool {
	sub, super := inf.TypeOf(c.A), inf.TypeOf(c.B)
	if sub.Kind == TypeUnknown || super.Kind == TypeUnknown {
		return false
	}

	if !Compatible(sub, super) {
		*diags = append(*diags, Diagnostic{
			Span:     c.Span,
			Severity: SeverityError,
			Kind:     DiagKindTypeMismatch,
			Message:  fmt.Sprintf("%s is not compatible with %s", sub, super),
			Source:   "analyzer",
		})
	}

	return false // a Subtype constraint never refines a type, only checks it
}

func (inf *Inference) applyConvert(c Constraint, diags *[]Diagnostic) bool {
	from, to := inf.TypeOf(c.A), inf.TypeOf(c.B)
	if from.Kind == TypeUnknown || to.Kind == TypeUnknown {
		return false
	}

	if !ConvertibleTo(from, to) {
		*diags = append(*diags, Diagnostic{
			Span:     c.Span,
			Severity: SeverityError,
			Kind:     DiagKindTypeMismatch,
			Message:  fmt.Sprintf("cannot convert %s to %s", from, to),
			Source:   "analyzer",
		})

		return false
	}

	cur := inf.TypeOf(c.Target)
	if cur.Equal(to) {
		return false
	}

	inf.set(c.Target, to)

	return true
}
