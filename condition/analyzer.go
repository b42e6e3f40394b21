package condition

import "sort"

// The analyzer is read-only tooling over a parsed AST. Nothing here runs on
// the validation hot path.

// FieldReferences collects every field path reachable from comparisons and
// method calls, including inside nested branches. Paths are rendered in
// source notation, deduplicated, and sorted.
func FieldReferences(ast *Conditional) []string {
	set := map[string]struct{}{}
	walkConditional(ast, func(e Expr) {
		switch n := e.(type) {
		case *Comparison:
			set[n.Path.String()] = struct{}{}
		case *MethodCall:
			set[n.Path.String()] = struct{}{}
		}
	})
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ComplexityScore is an advisory weighted count: one point per comparison,
// method call, and logical operator, two per nested conditional.
func ComplexityScore(ast *Conditional) int {
	score := 0
	var walk func(c *Conditional, nested bool)
	walk = func(c *Conditional, nested bool) {
		if c == nil {
			return
		}
		if nested {
			score += 2
		}
		walkExpr(c.Cond, func(e Expr) {
			score++
		})
		for _, br := range []Branch{c.Then, c.Else} {
			if sub, ok := br.(*Conditional); ok {
				walk(sub, true)
			}
		}
	}
	walk(ast, false)
	return score
}

// HasNestedConditionals reports whether any branch is itself a conditional.
func HasNestedConditionals(ast *Conditional) bool {
	if ast == nil {
		return false
	}
	for _, br := range []Branch{ast.Then, ast.Else} {
		if _, ok := br.(*Conditional); ok {
			return true
		}
	}
	return false
}

// ValidateAST runs structural sanity checks independent of parsing. Parse
// never produces a tree that fails these; the checks guard trees built or
// transformed by tooling.
func ValidateAST(ast *Conditional) Diagnostics {
	var ds Diagnostics
	var walk func(c *Conditional)
	walk = func(c *Conditional) {
		if c == nil {
			return
		}
		if c.Cond == nil {
			ds = append(ds, Diagnostic{Type: DiagMissingValue, Message: "conditional has no condition", Position: c.At})
		}
		walkExpr(c.Cond, func(e Expr) {
			switch n := e.(type) {
			case *Comparison:
				ds = append(ds, checkPath(n.Path)...)
			case *MethodCall:
				ds = append(ds, checkPath(n.Path)...)
				if n.Method == MethodUnsupported {
					ds = append(ds, Diagnostic{
						Type:     DiagUnsupportedMethod,
						Message:  "method '" + n.Name + "' is not supported",
						Position: n.At,
					})
				}
				if n.Negated && !n.Method.Negatable() {
					ds = append(ds, Diagnostic{
						Type:     DiagUnsupportedNegation,
						Message:  "method '" + n.Name + "' has no negated form",
						Position: n.At,
					})
				}
			case *Logical:
				if n.Left == nil || n.Right == nil {
					ds = append(ds, Diagnostic{Type: DiagMissingValue, Message: "logical expression missing an operand", Position: n.At})
				}
			}
		})
		for _, br := range []Branch{c.Then, c.Else} {
			switch b := br.(type) {
			case nil:
				ds = append(ds, Diagnostic{Type: DiagMissingBranch, Message: "conditional has a missing branch", Position: c.At})
			case *Conditional:
				walk(b)
			}
		}
	}
	walk(ast)
	return ds
}

func checkPath(p *FieldPath) Diagnostics {
	if p == nil || len(p.Segments) == 0 {
		return Diagnostics{{Type: DiagEmptyFieldPath, Message: "field path has no segments"}}
	}
	for _, s := range p.Segments {
		if s == "" {
			return Diagnostics{{Type: DiagEmptyFieldPath, Message: "field path has an empty segment", Position: p.At}}
		}
	}
	return nil
}

func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	if l, ok := e.(*Logical); ok {
		walkExpr(l.Left, fn)
		walkExpr(l.Right, fn)
	}
}

func walkConditional(c *Conditional, fn func(Expr)) {
	if c == nil {
		return
	}
	walkExpr(c.Cond, fn)
	for _, br := range []Branch{c.Then, c.Else} {
		if sub, ok := br.(*Conditional); ok {
			walkConditional(sub, fn)
		}
	}
}
