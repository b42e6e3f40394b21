package condition

import (
	"fmt"
	"strings"

	"github.com/strema/strema/internal/value"
)

// DataContext is the data a conditional is evaluated against: the record
// under validation plus any ambient runtime-only properties the host record
// carries outside the declared schema. Both sides are read through the same
// path resolver.
type DataContext struct {
	// Record is the record under validation.
	Record map[string]any
	// Runtime holds runtime-only properties, readable by $method() calls
	// when the path is absent from Record.
	Runtime map[string]any
	// Declared is the set of schema-declared top-level fields. When non-nil,
	// legacy bare predicates refuse paths rooted outside it. A nil set means
	// every field counts as declared.
	Declared map[string]struct{}
	// Fingerprint keys the optional shared lookup cache. Leave empty to keep
	// memoization local to one evaluation.
	Fingerprint string
}

// Accessor resolves a field path against a record. EvalOptions takes one to
// let tests observe or stub field reads; the default is Resolve.
type Accessor func(root map[string]any, segments []string) (any, bool)

// EvalOptions bundles evaluation options.
type EvalOptions struct {
	// Debug records the ordered evaluation path. It never influences the
	// outcome.
	Debug bool
	// Cache is the optional shared lookup cache; nil disables it.
	Cache ValueCache
	// Accessor overrides field resolution; nil means Resolve.
	Accessor Accessor
}

// DebugStep is one evaluated sub-expression in source order.
type DebugStep struct {
	Expr    string
	Outcome bool
	Note    string
}

// DebugInfo is the evaluation trace collected when EvalOptions.Debug is set.
type DebugInfo struct {
	Steps     []DebugStep
	Condition bool
	// Branch is the then/else trail through nested conditionals, for
	// example "then.else".
	Branch string
}

// Result is the outcome of evaluating one conditional against one record.
type Result struct {
	// OK is false when an evaluation anomaly occurred (a method on an
	// incompatible kind, an unsupported negation). Anomalies resolve the
	// affected sub-expression to false; evaluation still completes.
	OK bool
	// Branch is the selected leaf: a *TypeBranch or a Literal default.
	Branch Branch
	// Matched is the boolean outcome of the innermost condition evaluated.
	Matched bool
	// Issues records evaluation anomalies; they are advisory, never fatal.
	Issues Diagnostics
	// Debug is non-nil when requested via EvalOptions.
	Debug *DebugInfo
}

// Descriptor returns the resolved type descriptor when the selected branch
// is one.
func (r Result) Descriptor() (string, bool) {
	tb, ok := r.Branch.(*TypeBranch)
	if !ok {
		return "", false
	}
	return tb.Descriptor, true
}

// Default returns the resolved literal default when the selected branch is
// one. The literal overrides whatever the caller supplied for the field.
func (r Result) Default() (any, bool) {
	lit, ok := r.Branch.(Literal)
	if !ok {
		return nil, false
	}
	return lit.Value, true
}

// Evaluate walks a parsed conditional against data and selects a branch.
// The AST is never mutated, so one tree serves concurrent evaluations.
// Nested conditionals are followed iteratively; the parse-time nesting
// limit bounds the walk, and the loop avoids stacking a frame per level.
func Evaluate(ast *Conditional, data DataContext, opts EvalOptions) Result {
	ev := &evaluator{data: data, opts: opts}
	if opts.Debug {
		ev.debug = &DebugInfo{}
	}
	if ev.opts.Accessor == nil {
		ev.opts.Accessor = Resolve
	}

	var trail []string
	node := ast
	for {
		outcome := ev.expr(node.Cond)
		var next Branch
		if outcome {
			next, trail = node.Then, append(trail, "then")
		} else {
			next, trail = node.Else, append(trail, "else")
		}
		if nested, ok := next.(*Conditional); ok {
			node = nested
			continue
		}
		res := Result{
			OK:      len(ev.issues) == 0,
			Branch:  next,
			Matched: outcome,
			Issues:  ev.issues,
		}
		if ev.debug != nil {
			ev.debug.Condition = outcome
			ev.debug.Branch = strings.Join(trail, ".")
			res.Debug = ev.debug
		}
		return res
	}
}

type evaluator struct {
	data   DataContext
	opts   EvalOptions
	memo   map[string]CacheEntry
	issues Diagnostics
	debug  *DebugInfo
}

func (ev *evaluator) step(expr string, outcome bool, note string) {
	if ev.debug == nil {
		return
	}
	ev.debug.Steps = append(ev.debug.Steps, DebugStep{Expr: expr, Outcome: outcome, Note: note})
}

func (ev *evaluator) anomaly(typ DiagnosticType, pos int, format string, args ...any) {
	ev.issues = append(ev.issues, Diagnostic{Type: typ, Message: fmt.Sprintf(format, args...), Position: pos})
}

func (ev *evaluator) expr(e Expr) bool {
	switch n := e.(type) {
	case *Logical:
		return ev.logical(n)
	case *Comparison:
		out := ev.comparison(n)
		ev.step(exprString(n), out, "")
		return out
	case *MethodCall:
		return ev.method(n)
	default:
		ev.anomaly(DiagUnsupportedMethod, e.Pos(), "unknown expression node")
		return false
	}
}

// logical evaluates with left-to-right short-circuiting: the right operand
// of a decided && / || is never evaluated and never touches field lookups.
func (ev *evaluator) logical(n *Logical) bool {
	left := ev.expr(n.Left)
	if n.Op == OpAnd && !left {
		ev.step(exprString(n), false, "short-circuit")
		return false
	}
	if n.Op == OpOr && left {
		ev.step(exprString(n), true, "short-circuit")
		return true
	}
	right := ev.expr(n.Right)
	ev.step(exprString(n), right, "")
	return right
}

// lookup resolves a path with per-evaluation memoization, consulting the
// shared cache when one is configured and the context carries a
// fingerprint. runtime lookups fall back to the Runtime side of the
// context when the record misses.
func (ev *evaluator) lookup(path *FieldPath, runtime bool) (any, bool) {
	key := path.String()
	if runtime {
		key = "$" + key
	}
	if e, ok := ev.memo[key]; ok {
		return e.Value, e.Found
	}
	if ev.opts.Cache != nil && ev.data.Fingerprint != "" {
		if e, ok := ev.opts.Cache.Get(ev.data.Fingerprint + "|" + key); ok {
			ev.remember(key, e)
			return e.Value, e.Found
		}
	}
	v, found := ev.opts.Accessor(ev.data.Record, path.Segments)
	if !found && runtime && ev.data.Runtime != nil {
		v, found = ev.opts.Accessor(ev.data.Runtime, path.Segments)
	}
	e := CacheEntry{Value: v, Found: found}
	ev.remember(key, e)
	if ev.opts.Cache != nil && ev.data.Fingerprint != "" {
		ev.opts.Cache.Add(ev.data.Fingerprint+"|"+key, e)
	}
	return v, found
}

func (ev *evaluator) remember(key string, e CacheEntry) {
	if ev.memo == nil {
		ev.memo = map[string]CacheEntry{}
	}
	ev.memo[key] = e
}

func (ev *evaluator) comparison(n *Comparison) bool {
	v, found := ev.lookup(n.Path, false)
	switch n.Op {
	case CmpEq:
		return found && value.Equal(v, n.Operand.Value)
	case CmpNeq:
		return !(found && value.Equal(v, n.Operand.Value))
	case CmpGt, CmpGte, CmpLt, CmpLte:
		// ordering requires both sides numeric; anything else is false,
		// not an error
		if !found {
			return false
		}
		fv, ok := value.Num(v)
		if !ok {
			return false
		}
		ov, ok := value.Num(n.Operand.Value)
		if !ok {
			return false
		}
		switch n.Op {
		case CmpGt:
			return fv > ov
		case CmpGte:
			return fv >= ov
		case CmpLt:
			return fv < ov
		default:
			return fv <= ov
		}
	case CmpMatch, CmpNotMatch:
		// regex requires a string field value; non-strings are false for
		// both forms
		s, ok := v.(string)
		if !found || !ok {
			return false
		}
		m := n.Pattern.MatchString(s)
		if n.Op == CmpNotMatch {
			return !m
		}
		return m
	default:
		return false
	}
}

func (ev *evaluator) method(n *MethodCall) bool {
	label := exprString(n)

	if n.Method == MethodUnsupported {
		ev.anomaly(DiagUnsupportedMethod, n.At, "method '%s' is not supported", n.Name)
		ev.step(label, false, "unsupported method")
		return false
	}
	if n.Negated && !n.Method.Negatable() {
		ev.anomaly(DiagUnsupportedNegation, n.At, "method '%s' has no negated form", n.Name)
		ev.step(label, false, "unsupported negation")
		return false
	}
	if !n.Runtime && ev.data.Declared != nil && len(n.Path.Segments) > 0 {
		if _, ok := ev.data.Declared[n.Path.Segments[0]]; !ok {
			ev.anomaly(DiagUndeclaredField, n.Path.At,
				"field '%s' is not declared; use the $%s() form for runtime properties", n.Path.Segments[0], n.Name)
			ev.step(label, false, "undeclared field")
			return false
		}
	}

	v, found := ev.lookup(n.Path, n.Runtime)
	out, note := ev.dispatch(n, v, found)
	if n.Negated {
		out = !out
	}
	ev.step(label, out, note)
	return out
}

// dispatch applies the method's positive semantics. Anomalies resolve to
// false with the reason recorded; existence asymmetry is deliberate: only
// null and absence count as "does not exist", while 0, false, "" and empty
// containers all exist.
func (ev *evaluator) dispatch(n *MethodCall, v any, found bool) (bool, string) {
	switch n.Method {
	case MethodExists:
		return found && v != nil, ""
	case MethodNull:
		return found && v == nil, ""
	case MethodEmpty:
		if !found || v == nil {
			return false, "value absent"
		}
		empty, ok := value.IsEmpty(v)
		if !ok {
			ev.anomaly(DiagTypeMismatch, n.At, "empty() is undefined for this value kind")
			return false, "no emptiness semantics"
		}
		return empty, ""
	case MethodIn:
		if !found {
			return false, "value absent"
		}
		for _, arg := range n.Args {
			if value.Equal(v, arg.Value) {
				return true, ""
			}
		}
		return false, ""
	case MethodContains:
		if !found {
			return false, "value absent"
		}
		got, ok := value.Contains(v, n.Args[0].Value)
		if !ok {
			ev.anomaly(DiagTypeMismatch, n.At, "contains() needs a string or array value")
			return false, "no containment semantics"
		}
		return got, ""
	case MethodStartsWith, MethodEndsWith:
		s, okS := v.(string)
		arg, okA := n.Args[0].Value.(string)
		if !found || !okS || !okA {
			if found && !okS {
				ev.anomaly(DiagTypeMismatch, n.At, "%s() needs a string value", n.Method)
			}
			return false, "not a string"
		}
		if n.Method == MethodStartsWith {
			return strings.HasPrefix(s, arg), ""
		}
		return strings.HasSuffix(s, arg), ""
	case MethodBetween:
		if !found {
			return false, "value absent"
		}
		fv, ok := value.Num(v)
		if !ok {
			ev.anomaly(DiagTypeMismatch, n.At, "between() needs a numeric value")
			return false, "not numeric"
		}
		lo, okLo := value.Num(n.Args[0].Value)
		hi, okHi := value.Num(n.Args[1].Value)
		if !okLo || !okHi {
			ev.anomaly(DiagTypeMismatch, n.At, "between() bounds must be numeric")
			return false, "bounds not numeric"
		}
		return fv >= lo && fv <= hi, ""
	default:
		return false, "unsupported"
	}
}

// exprString renders a sub-expression roughly in source notation for debug
// traces and diagnostics.
func exprString(e Expr) string {
	switch n := e.(type) {
	case *Logical:
		return fmt.Sprintf("(%s %s %s)", exprString(n.Left), n.Op, exprString(n.Right))
	case *Comparison:
		return fmt.Sprintf("%s %s %s", n.Path, n.Op, literalString(n.Operand))
	case *MethodCall:
		b := &strings.Builder{}
		b.WriteString(n.Path.String())
		b.WriteByte('.')
		if n.Negated {
			b.WriteByte('!')
		}
		if n.Runtime {
			b.WriteByte('$')
		}
		b.WriteString(n.Name)
		if n.Runtime || len(n.Args) > 0 {
			b.WriteByte('(')
			for i, a := range n.Args {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(literalString(a))
			}
			b.WriteByte(')')
		}
		return b.String()
	default:
		return "?"
	}
}

func literalString(l Literal) string {
	switch l.Kind {
	case LitString:
		return fmt.Sprintf("%q", l.Value)
	case LitNull:
		return "null"
	default:
		return fmt.Sprint(l.Value)
	}
}
