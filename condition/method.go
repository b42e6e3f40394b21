package condition

// Method is the closed set of predicate methods the evaluator understands.
// Names are resolved to a Method exactly once, at parse time, so evaluation
// dispatches on an exhaustively matched enum instead of a string.
type Method int

const (
	MethodUnsupported Method = iota
	MethodExists
	MethodEmpty
	MethodNull
	MethodIn
	MethodContains
	MethodStartsWith
	MethodEndsWith
	MethodBetween
)

var methodNames = map[string]Method{
	"exists":     MethodExists,
	"empty":      MethodEmpty,
	"null":       MethodNull,
	"in":         MethodIn,
	"contains":   MethodContains,
	"startsWith": MethodStartsWith,
	"endsWith":   MethodEndsWith,
	"between":    MethodBetween,
}

// MethodByName resolves a source-level method name. The second result is
// false for unknown names, which map to MethodUnsupported.
func MethodByName(name string) (Method, bool) {
	m, ok := methodNames[name]
	if !ok {
		return MethodUnsupported, false
	}
	return m, true
}

func (m Method) String() string {
	switch m {
	case MethodExists:
		return "exists"
	case MethodEmpty:
		return "empty"
	case MethodNull:
		return "null"
	case MethodIn:
		return "in"
	case MethodContains:
		return "contains"
	case MethodStartsWith:
		return "startsWith"
	case MethodEndsWith:
		return "endsWith"
	case MethodBetween:
		return "between"
	default:
		return "unsupported"
	}
}

// Negatable reports whether the method has defined negated semantics.
// between has none; write the bound checks with ordering operators instead.
func (m Method) Negatable() bool {
	switch m {
	case MethodExists, MethodEmpty, MethodNull, MethodIn,
		MethodContains, MethodStartsWith, MethodEndsWith:
		return true
	default:
		return false
	}
}

// arity bounds per method; -1 means unbounded.
func (m Method) arity() (min, max int) {
	switch m {
	case MethodExists, MethodEmpty, MethodNull:
		return 0, 0
	case MethodIn:
		return 1, -1
	case MethodContains, MethodStartsWith, MethodEndsWith:
		return 1, 1
	case MethodBetween:
		return 2, 2
	default:
		return 0, -1
	}
}

// legacyMethods are the bare, no-parenthesis predicates accepted after a
// field path without the '$' marker.
var legacyMethods = map[string]Method{
	"exists": MethodExists,
	"empty":  MethodEmpty,
	"null":   MethodNull,
}
