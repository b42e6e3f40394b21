package condition_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/strema/strema/condition"
)

func mustParse(t *testing.T, src string) *condition.Conditional {
	t.Helper()
	ast, diags := condition.Parse(src, condition.DefaultConfig())
	if diags.HasErrors() {
		t.Fatalf("parse(%q) failed: %v", src, diags)
	}
	if ast == nil {
		t.Fatalf("parse(%q) returned nil AST without diagnostics", src)
	}
	return ast
}

func parseErr(t *testing.T, src string, cfg condition.Config) condition.Diagnostics {
	t.Helper()
	ast, diags := condition.Parse(src, cfg)
	if ast != nil {
		t.Fatalf("parse(%q): expected nil AST on error, got %+v", src, ast)
	}
	if !diags.HasErrors() {
		t.Fatalf("parse(%q): expected diagnostics", src)
	}
	return diags
}

func TestParse_SimpleComparison(t *testing.T) {
	ast := mustParse(t, "when role=admin *? string[] : string[]?")
	cmp, ok := ast.Cond.(*condition.Comparison)
	if !ok {
		t.Fatalf("condition is %T, want *Comparison", ast.Cond)
	}
	if cmp.Path.String() != "role" || cmp.Op != condition.CmpEq {
		t.Fatalf("comparison = %s %s", cmp.Path, cmp.Op)
	}
	if cmp.Operand.Kind != condition.LitString || cmp.Operand.Value != "admin" {
		t.Fatalf("operand = %+v, want bare string admin", cmp.Operand)
	}
	then, ok := ast.Then.(*condition.TypeBranch)
	if !ok || then.Descriptor != "string[]" {
		t.Fatalf("then branch = %+v", ast.Then)
	}
	els, ok := ast.Else.(*condition.TypeBranch)
	if !ok || els.Descriptor != "string[]?" {
		t.Fatalf("else branch = %+v", ast.Else)
	}
}

func TestParse_PrecedenceAndBindsTighterThanOr(t *testing.T) {
	ast := mustParse(t, "when a=1 && b=2 || c=3 *? =x : =y")
	or, ok := ast.Cond.(*condition.Logical)
	if !ok || or.Op != condition.OpOr {
		t.Fatalf("root operator = %+v, want ||", ast.Cond)
	}
	and, ok := or.Left.(*condition.Logical)
	if !ok || and.Op != condition.OpAnd {
		t.Fatalf("left of || = %+v, want &&", or.Left)
	}
	if _, ok := or.Right.(*condition.Comparison); !ok {
		t.Fatalf("right of || = %T, want comparison", or.Right)
	}
}

func TestParse_LeftDeepLogicalChains(t *testing.T) {
	ast := mustParse(t, "when a=1 && b=2 && c=3 *? =x : =y")
	outer, ok := ast.Cond.(*condition.Logical)
	if !ok || outer.Op != condition.OpAnd {
		t.Fatalf("root = %+v", ast.Cond)
	}
	inner, ok := outer.Left.(*condition.Logical)
	if !ok || inner.Op != condition.OpAnd {
		t.Fatalf("chains must be left-deep, left = %T", outer.Left)
	}
}

func TestParse_ParenthesesGroup(t *testing.T) {
	ast := mustParse(t, "when a=1 && (b=2 || c=3) *? =x : =y")
	and, ok := ast.Cond.(*condition.Logical)
	if !ok || and.Op != condition.OpAnd {
		t.Fatalf("root = %+v", ast.Cond)
	}
	if or, ok := and.Right.(*condition.Logical); !ok || or.Op != condition.OpOr {
		t.Fatalf("right of && = %+v, want grouped ||", and.Right)
	}
}

func TestParse_NestedConditionalInThenPosition(t *testing.T) {
	ast := mustParse(t, "when status=active *? when role=admin *? =full : =limited : =none")
	nested, ok := ast.Then.(*condition.Conditional)
	if !ok {
		t.Fatalf("then branch = %T, want nested conditional", ast.Then)
	}
	if lit, ok := nested.Else.(condition.Literal); !ok || lit.Value != "limited" {
		t.Fatalf("nested else = %+v", nested.Else)
	}
	if lit, ok := ast.Else.(condition.Literal); !ok || lit.Value != "none" {
		t.Fatalf("outer else = %+v", ast.Else)
	}
}

func TestParse_NestingAtLimitSucceedsOnePastFails(t *testing.T) {
	cfg := condition.DefaultConfig()
	cfg.MaxNestingDepth = 2

	build := func(depth int) string {
		// depth counts nested conditionals under the root
		src := "=deep"
		for i := 0; i < depth; i++ {
			src = "when a=1 *? " + src + " : =flat"
		}
		return src
	}
	if _, diags := condition.Parse(build(3), cfg); diags.HasErrors() {
		t.Fatalf("nesting at the limit should parse: %v", diags)
	}
	diags := parseErr(t, build(4), cfg)
	if diags[0].Type != condition.DiagNestingLimitExceeded {
		t.Fatalf("diag = %+v, want NestingLimitExceeded", diags[0])
	}
	if diags[0].Position == 0 {
		t.Fatalf("expected the offending nested position, got offset 0")
	}
}

func TestParse_NestedDisabled(t *testing.T) {
	cfg := condition.DefaultConfig()
	cfg.AllowNestedConditionals = false
	diags := parseErr(t, "when a=1 *? when b=2 *? =x : =y : =z", cfg)
	if diags[0].Type != condition.DiagNestedNotAllowed {
		t.Fatalf("diag = %+v", diags[0])
	}
}

func TestParse_NegativeDefaultLiteral(t *testing.T) {
	ast := mustParse(t, "when x.$exists() *? number : =-1")
	lit, ok := ast.Else.(condition.Literal)
	if !ok || lit.Kind != condition.LitNumber {
		t.Fatalf("else branch = %+v, want number literal", ast.Else)
	}
	if lit.Value != json.Number("-1") {
		t.Fatalf("literal = %v, want -1", lit.Value)
	}
}

func TestParse_ArrayLiteralDefaults(t *testing.T) {
	ast := mustParse(t, `when x.$exists() *? string[] : =["default"]`)
	lit, ok := ast.Else.(condition.Literal)
	if !ok || lit.Kind != condition.LitArray {
		t.Fatalf("else branch = %+v", ast.Else)
	}
	arr, ok := lit.Value.([]any)
	if !ok || len(arr) != 1 || arr[0] != "default" {
		t.Fatalf("array = %#v", lit.Value)
	}

	ast = mustParse(t, `when x.$exists() *? number[] : =[1,2,3]`)
	arr = ast.Else.(condition.Literal).Value.([]any)
	if len(arr) != 3 || arr[0] != json.Number("1") || arr[2] != json.Number("3") {
		t.Fatalf("array = %#v", arr)
	}
}

func TestParse_ObjectLiteralDefault(t *testing.T) {
	ast := mustParse(t, `when x.$exists() *? any : ={"k":"v"}`)
	lit := ast.Else.(condition.Literal)
	if lit.Kind != condition.LitObject {
		t.Fatalf("kind = %v", lit.Kind)
	}
	m, ok := lit.Value.(map[string]any)
	if !ok || m["k"] != "v" {
		t.Fatalf("object = %#v", lit.Value)
	}
}

func TestParse_ErrorScenarioMissingOperand(t *testing.T) {
	diags := parseErr(t, "when role= *? admin", condition.DefaultConfig())
	if diags[0].Type != condition.DiagMissingValue {
		t.Fatalf("diag = %+v, want MissingValue", diags[0])
	}
}

func TestParse_MissingWhenKeyword(t *testing.T) {
	diags := parseErr(t, "role=admin *? =a : =b", condition.DefaultConfig())
	if diags[0].Type != condition.DiagMissingWhenKeyword {
		t.Fatalf("diag = %+v", diags[0])
	}
	if diags[0].Suggestion == "" {
		t.Fatalf("expected a suggestion for the missing keyword")
	}
}

func TestParse_MissingThenMarker(t *testing.T) {
	diags := parseErr(t, "when role=admin =a : =b", condition.DefaultConfig())
	if diags[0].Type != condition.DiagMissingThenMarker {
		t.Fatalf("diag = %+v", diags[0])
	}
}

func TestParse_UnmatchedParenthesis(t *testing.T) {
	diags := parseErr(t, "when (a=1 && b=2 *? =x : =y", condition.DefaultConfig())
	if diags[0].Type != condition.DiagUnmatchedParenthesis {
		t.Fatalf("diag = %+v", diags[0])
	}
}

func TestParse_UnknownMethodStrictVsLenient(t *testing.T) {
	src := "when data.$custom() *? =a : =b"

	strict := condition.DefaultConfig()
	strict.Strict = true
	diags := parseErr(t, src, strict)
	if diags[0].Type != condition.DiagUnknownMethod {
		t.Fatalf("diag = %+v", diags[0])
	}

	ast := mustParse(t, src)
	call, ok := ast.Cond.(*condition.MethodCall)
	if !ok {
		t.Fatalf("cond = %T", ast.Cond)
	}
	if call.Method != condition.MethodUnsupported || call.Name != "custom" {
		t.Fatalf("lenient parse should keep the call: %+v", call)
	}
}

func TestParse_RuntimeMethodRequiresParens(t *testing.T) {
	diags := parseErr(t, "when a.$exists *? =x : =y", condition.DefaultConfig())
	if diags[0].Type != condition.DiagUnexpectedToken {
		t.Fatalf("diag = %+v", diags[0])
	}
}

func TestParse_LegacyBarePredicates(t *testing.T) {
	ast := mustParse(t, "when profile.exists && bio.!empty *? =ok : =no")
	and := ast.Cond.(*condition.Logical)
	left := and.Left.(*condition.MethodCall)
	if left.Method != condition.MethodExists || left.Runtime || left.Negated {
		t.Fatalf("left = %+v", left)
	}
	right := and.Right.(*condition.MethodCall)
	if right.Method != condition.MethodEmpty || !right.Negated {
		t.Fatalf("right = %+v", right)
	}
}

func TestParse_DottedPathKeepsNonTerminalSegments(t *testing.T) {
	// "exists" in the middle of a path is a segment, not a predicate
	ast := mustParse(t, "when user.exists.flag = true *? =a : =b")
	cmp := ast.Cond.(*condition.Comparison)
	if got := strings.Join(cmp.Path.Segments, "/"); got != "user/exists/flag" {
		t.Fatalf("segments = %q", got)
	}
}

func TestParse_BracketPathSegments(t *testing.T) {
	ast := mustParse(t, `when config["special-key"].enabled = true *? =on : =off`)
	cmp := ast.Cond.(*condition.Comparison)
	if len(cmp.Path.Segments) != 3 || cmp.Path.Segments[1] != "special-key" {
		t.Fatalf("segments = %v", cmp.Path.Segments)
	}
}

func TestParse_BetweenArity(t *testing.T) {
	diags := parseErr(t, "when age.$between(10) *? =a : =b", condition.DefaultConfig())
	if diags[0].Type != condition.DiagMissingValue {
		t.Fatalf("diag = %+v", diags[0])
	}
	mustParse(t, "when age.$between(10,20) *? =a : =b")
}

func TestParse_InvalidRegexIsAParseError(t *testing.T) {
	diags := parseErr(t, `when name ~ "([" *? =a : =b`, condition.DefaultConfig())
	if diags[0].Type != condition.DiagInvalidRegex {
		t.Fatalf("diag = %+v", diags[0])
	}
}

func TestParse_TrailingGarbageRejected(t *testing.T) {
	diags := parseErr(t, "when a=1 *? =x : =y extra stuff", condition.DefaultConfig())
	found := false
	for _, d := range diags {
		if d.Type == condition.DiagUnexpectedToken {
			found = true
		}
	}
	if !found {
		t.Fatalf("diags = %v, want UnexpectedToken", diags)
	}
}

func TestParse_DebugAttachesTokenDump(t *testing.T) {
	cfg := condition.DefaultConfig()
	cfg.Debug = true
	_, diags := condition.Parse("when role= *? admin", cfg)
	if !diags.HasErrors() {
		t.Fatalf("expected diagnostics")
	}
	if !strings.Contains(diags[0].Suggestion, "tokens:") {
		t.Fatalf("debug parses should carry the token dump, got %q", diags[0].Suggestion)
	}
}

func TestParse_UnionDescriptorBranch(t *testing.T) {
	ast := mustParse(t, "when role=admin *? full|limited : =none")
	then, ok := ast.Then.(*condition.TypeBranch)
	if !ok || then.Descriptor != "full|limited" {
		t.Fatalf("then branch = %+v, want union descriptor", ast.Then)
	}
	if lit, ok := ast.Else.(condition.Literal); !ok || lit.Value != "none" {
		t.Fatalf("else branch = %+v", ast.Else)
	}
}
