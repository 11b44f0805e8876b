package shell

import (
	"fmt"
	"sort"
	"strings"
)

// TypeKind is the closed set of type constructors in the shell value
// lattice of §4.6. Parameterized kinds carry their parameters in Type.Params
// (and Type.Return for Function).
type TypeKind int

const (
	TypeUnknown TypeKind = iota // inference bottom
	TypeAny                     // inference top
	TypeString
	TypeInteger
	TypeFloat
	TypeBoolean
	TypePath
	TypeCommand
	TypeFileDescriptor
	TypeProcessID
	TypeJobID
	TypeRegex
	TypeDateTime
	TypeArray
	TypeMap
	TypeStream
	TypeFunction
	TypeOption
	TypeResult
	TypeUnion
)

// Type is one value in the lattice. Scalar kinds use no Params; Array and
// Stream use Params[0] as the element type; Map uses Params[0]/Params[1] as
// key/value; Option uses Params[0]; Result uses Params[0] (Ok) and
// Params[1] (Err); Function uses Params as parameter types and Return as
// the return type; Union uses Params as its (deduplicated) members.
type Type struct {
	Kind   TypeKind
	Params []Type
	Return *Type
}

func scalar(k TypeKind) Type { return Type{Kind: k} }

// Scalar type constants, reused across the package instead of reallocating
// a Type literal at every call site.
var (
	String         = scalar(TypeString)
	Integer        = scalar(TypeInteger)
	Float          = scalar(TypeFloat)
	Boolean        = scalar(TypeBoolean)
	Path           = scalar(TypePath)
	Command        = scalar(TypeCommand)
	FileDescriptor = scalar(TypeFileDescriptor)
	ProcessID      = scalar(TypeProcessID)
	JobID          = scalar(TypeJobID)
	Regex          = scalar(TypeRegex)
	DateTime       = scalar(TypeDateTime)
	Any            = scalar(TypeAny)
	Unknown        = scalar(TypeUnknown)
)

// ArrayOf, MapOf, StreamOf, OptionOf, ResultOf, and FuncOf build the
// parameterized type constructors.
func ArrayOf(elem Type) Type   { return Type{Kind: TypeArray, Params: []Type{elem}} }
func MapOf(k, v Type) Type     { return Type{Kind: TypeMap, Params: []Type{k, v}} }
func StreamOf(elem Type) Type  { return Type{Kind: TypeStream, Params: []Type{elem}} }
func OptionOf(elem Type) Type  { return Type{Kind: TypeOption, Params: []Type{elem}} }
func ResultOf(ok, err Type) Type {
	return Type{Kind: TypeResult, Params: []Type{ok, err}}
}

// FuncOf builds a Function(params) -> ret type.
func FuncOf(params []Type, ret Type) Type {
	return Type{Kind: TypeFunction, Params: params, Return: &ret}
}

// UnionOf builds a Union<Ts>, flattening nested unions and removing
// duplicates per §3 ("Union flattens on construction; duplicates are
// removed"). A single-member union collapses to that member.
func UnionOf(members ...Type) Type {
	var flat []Type

	var flatten func(Type)

	flatten = func(t Type) {
		if t.Kind == TypeUnion {
			for _, m := range t.Params {
				flatten(m)
			}

			return
		}

		for _, existing := range flat {
			if existing.Equal(t) {
				return
			}
		}

		flat = append(flat, t)
	}

	for _, m := range members {
		flatten(m)
	}

	if len(flat) == 1 {
		return flat[0]
	}

	return Type{Kind: TypeUnion, Params: flat}
}

// Equal reports structural equality.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind || len(t.Params) != len(other.Params) {
		return false
	}

	for i := range t.Params {
		if !t.Params[i].Equal(other.Params[i]) {
			return false
		}
	}

	if (t.Return == nil) != (other.Return == nil) {
		return false
	}

	if t.Return != nil && !t.Return.Equal(*other.Return) {
		return false
	}

	return true
}

// String renders t in a form suitable for diagnostic messages.
func (t Type) String() string {
	switch t.Kind {
	case TypeUnknown:
		return "Unknown"
	case TypeAny:
		return "Any"
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeFloat:
		return "Float"
	case TypeBoolean:
		return "Boolean"
	case TypePath:
		return "Path"
	case TypeCommand:
		return "Command"
	case TypeFileDescriptor:
		return "FileDescriptor"
	case TypeProcessID:
		return "ProcessId"
	case TypeJobID:
		return "JobId"
	case TypeRegex:
		return "Regex"
	case TypeDateTime:
		return "DateTime"
	case TypeArray:
		return fmt.Sprintf("Array<%s>", t.Params[0])
	case TypeMap:
		return fmt.Sprintf("Map<%s,%s>", t.Params[0], t.Params[1])
	case TypeStream:
		return fmt.Sprintf("Stream<%s>", t.Params[0])
	case TypeOption:
		return fmt.Sprintf("Option<%s>", t.Params[0])
	case TypeResult:
		return fmt.Sprintf("Result<%s,%s>", t.Params[0], t.Params[1])
	case TypeFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}

		ret := "Unknown"
		if t.Return != nil {
			ret = t.Return.String()
		}

		return fmt.Sprintf("Function(%s)->%s", strings.Join(parts, ","), ret)
	case TypeUnion:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}

		sort.Strings(parts)

		return fmt.Sprintf("Union<%s>", strings.Join(parts, "|"))
	default:
		return "?"
	}
}

// Compatible implements §4.6's compatibility relation. It is commutative
// except where noted (it is not, in fact, noted anywhere as asymmetric, so
// every branch here is written to hold both ways).
//
//nolint:cyclop // the relation is a flat enumeration of lattice rules, not nested logic
func Compatible(a, b Type) bool {
	if a.Kind == TypeAny || b.Kind == TypeAny {
		return true
	}

	if a.Kind == TypeUnknown || b.Kind == TypeUnknown {
		return false
	}

	if a.Kind == TypeUnion {
		return unionCompatible(a, b)
	}

	if b.Kind == TypeUnion {
		return unionCompatible(b, a)
	}

	if a.Kind == b.Kind {
		return compatibleSameKind(a, b)
	}

	if (a.Kind == TypeInteger && b.Kind == TypeFloat) || (a.Kind == TypeFloat && b.Kind == TypeInteger) {
		return true
	}

	if (a.Kind == TypeString && b.Kind == TypePath) || (a.Kind == TypePath && b.Kind == TypeString) {
		return true
	}

	return false
}

func unionCompatible(u, other Type) bool {
	for _, member := range u.Params {
		if Compatible(member, other) {
			return true
		}
	}

	return false
}

func compatibleSameKind(a, b Type) bool {
	switch a.Kind {
	case TypeArray, TypeStream, TypeOption:
		return Compatible(a.Params[0], b.Params[0])
	case TypeMap, TypeResult:
		return Compatible(a.Params[0], b.Params[0]) && Compatible(a.Params[1], b.Params[1])
	case TypeFunction:
		if len(a.Params) != len(b.Params) {
			return false
		}

		for i := range a.Params {
			if !Compatible(a.Params[i], b.Params[i]) {
				return false
			}
		}

		if a.Return == nil || b.Return == nil {
			return a.Return == b.Return
		}

		return Compatible(*a.Return, *b.Return)
	default:
		return true // equal scalar kinds are always compatible
	}
}

// Generalize returns the smallest type containing both a and b, per §4.6.
func Generalize(a, b Type) Type {
	if a.Kind == TypeAny || b.Kind == TypeAny {
		return Any
	}

	if a.Equal(b) {
		return a
	}

	if (a.Kind == TypeInteger && b.Kind == TypeFloat) || (a.Kind == TypeFloat && b.Kind == TypeInteger) {
		return Float
	}

	if (a.Kind == TypeString && b.Kind == TypePath) || (a.Kind == TypePath && b.Kind == TypeString) {
		return String
	}

	if a.Kind == b.Kind {
		switch a.Kind {
		case TypeArray:
			return ArrayOf(Generalize(a.Params[0], b.Params[0]))
		case TypeStream:
			return StreamOf(Generalize(a.Params[0], b.Params[0]))
		case TypeOption:
			return OptionOf(Generalize(a.Params[0], b.Params[0]))
		case TypeMap:
			return MapOf(Generalize(a.Params[0], b.Params[0]), Generalize(a.Params[1], b.Params[1]))
		case TypeResult:
			return ResultOf(Generalize(a.Params[0], b.Params[0]), Generalize(a.Params[1], b.Params[1]))
		}
	}

	return UnionOf(a, b)
}

// Concretize picks a representative concrete type for inference, per §4.6.
func Concretize(t Type) Type {
	switch t.Kind {
	case TypeAny:
		return String
	case TypeUnion:
		if len(t.Params) > 0 {
			return t.Params[0]
		}

		return Any
	case TypeOption:
		return t.Params[0]
	case TypeResult:
		return t.Params[0]
	default:
		return t
	}
}

// conversionTable lists the (from, to) pairs a Convert constraint may name,
// taken verbatim from §4.6's conversion table.
var conversionTable = map[TypeKind]map[TypeKind]bool{
	TypeString:  {TypeInteger: true, TypeFloat: true, TypeBoolean: true, TypePath: true, TypeRegex: true, TypeDateTime: true},
	TypeInteger: {TypeString: true, TypeFloat: true, TypeBoolean: true},
	TypeFloat:   {TypeString: true, TypeInteger: true},
	TypeBoolean: {TypeString: true, TypeInteger: true},
	TypePath:    {TypeString: true},
	TypeDateTime: {TypeString: true},
	TypeArray:   {TypeString: true},
	TypeMap:     {TypeString: true},
}

// ConvertibleTo reports whether conversionTable permits from -> to.
func ConvertibleTo(from, to Type) bool {
	if from.Equal(to) || to.Kind == TypeAny {
		return true
	}

	if table, ok := conversionTable[from.Kind]; ok {
		return table[to.Kind]
	}

	return false
}
