package condition

import (
	"regexp"
	"strings"
)

// Node is implemented by every AST node. Nodes are built once by Parse and
// never mutated afterwards, so a parsed tree is safe to share across
// concurrent evaluations.
type Node interface {
	// Pos returns the byte offset of the node in the expression source.
	Pos() int
}

// Expr is a boolean sub-expression usable inside a condition. Conditional is
// deliberately not an Expr: conditionals nest in branch positions only,
// never inside their own condition.
type Expr interface {
	Node
	exprNode()
}

// Branch is the then/else side of a conditional: another conditional, a type
// descriptor, or a literal default.
type Branch interface {
	Node
	branchNode()
}

// LogicalOp is the operator of a Logical expression.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (op LogicalOp) String() string {
	if op == OpAnd {
		return "&&"
	}
	return "||"
}

// CompareOp is the operator of a Comparison.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNeq
	CmpGt
	CmpGte
	CmpLt
	CmpLte
	CmpMatch
	CmpNotMatch
)

func (op CompareOp) String() string {
	switch op {
	case CmpEq:
		return "="
	case CmpNeq:
		return "!="
	case CmpGt:
		return ">"
	case CmpGte:
		return ">="
	case CmpLt:
		return "<"
	case CmpLte:
		return "<="
	case CmpMatch:
		return "~"
	default:
		return "!~"
	}
}

// LiteralKind classifies a Literal value.
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
	LitArray
	LitObject
	LitNull
)

// Literal is a constant value: a comparison operand, a method argument, or a
// default branch written "=value". Array and object literals carry decoded
// []any / map[string]any values.
type Literal struct {
	Kind  LiteralKind
	Value any
	At    int
}

func (l Literal) Pos() int { return l.At }
func (Literal) branchNode() {}

// FieldPath is an ordered list of property-access segments. Segments that
// came from bracket notation may contain arbitrary unicode, including
// characters not valid as bare identifiers.
type FieldPath struct {
	Segments []string
	At       int
}

func (p *FieldPath) Pos() int { return p.At }

// String renders the path in source notation, falling back to bracket form
// for segments that would not survive dot notation.
func (p *FieldPath) String() string {
	b := &strings.Builder{}
	for i, seg := range p.Segments {
		if strings.ContainsAny(seg, ".-[ ]\"'") {
			b.WriteString(`["` + seg + `"]`)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// Comparison applies a comparison operator to a field value and a literal
// operand. For regex operators the pattern is compiled once at parse time.
type Comparison struct {
	Path    *FieldPath
	Op      CompareOp
	Operand Literal
	Pattern *regexp.Regexp
	At      int
}

func (c *Comparison) Pos() int { return c.At }
func (*Comparison) exprNode() {}

// Logical combines two sub-expressions. Chains are left-deep binary trees in
// source order; '&&' binds tighter than '||'.
type Logical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
	At    int
}

func (l *Logical) Pos() int { return l.At }
func (*Logical) exprNode() {}

// MethodCall invokes a predicate method on a field. Runtime marks the
// $method() form, which may reference fields absent from the declared
// schema; the legacy bare form reads declared fields only. Method is
// resolved from Name once at parse time; unknown names become
// MethodUnsupported with Name preserved for tooling.
type MethodCall struct {
	Path    *FieldPath
	Method  Method
	Name    string
	Args    []Literal
	Negated bool
	Runtime bool
	At      int
}

func (m *MethodCall) Pos() int { return m.At }
func (*MethodCall) exprNode() {}

// Conditional is the root production: when <cond> *? <then> : <else>.
type Conditional struct {
	Cond Expr
	Then Branch
	Else Branch
	At   int
}

func (c *Conditional) Pos() int { return c.At }
func (*Conditional) branchNode() {}

// TypeBranch is a branch that resolves to a compact type descriptor
// (for example "string[]?" or "number(0,120)"), handed back to the schema
// layer for structural validation.
type TypeBranch struct {
	Descriptor string
	At         int
}

func (t *TypeBranch) Pos() int { return t.At }
func (*TypeBranch) branchNode() {}
