package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strema/strema/condition"
)

func TestFieldReferences(t *testing.T) {
	ast := mustParse(t, "when user.role=admin && user.role=owner || account.tags.$contains(beta) *? when flags.x.$exists() *? =a : =b : =c")
	refs := condition.FieldReferences(ast)
	assert.Equal(t, []string{"account.tags", "flags.x", "user.role"}, refs, "deduplicated, sorted, and reaching into nested branches")
}

func TestFieldReferences_BracketSegmentsRenderInBracketForm(t *testing.T) {
	ast := mustParse(t, `when config["special-key"].enabled = true *? =on : =off`)
	refs := condition.FieldReferences(ast)
	require.Len(t, refs, 1)
	assert.Equal(t, `config["special-key"].enabled`, refs[0])
}

func TestComplexityScore(t *testing.T) {
	flat := mustParse(t, "when a=1 *? =x : =y")
	assert.Equal(t, 1, condition.ComplexityScore(flat))

	logical := mustParse(t, "when a=1 && b=2 *? =x : =y")
	assert.Equal(t, 3, condition.ComplexityScore(logical), "two comparisons plus one operator")

	nested := mustParse(t, "when a=1 *? when b=2 *? =x : =y : =z")
	assert.Equal(t, 4, condition.ComplexityScore(nested), "two comparisons plus the nesting weight")
}

func TestHasNestedConditionals(t *testing.T) {
	assert.False(t, condition.HasNestedConditionals(mustParse(t, "when a=1 *? =x : =y")))
	assert.True(t, condition.HasNestedConditionals(mustParse(t, "when a=1 *? when b=2 *? =x : =y : =z")))
	assert.True(t, condition.HasNestedConditionals(mustParse(t, "when a=1 *? =x : when b=2 *? =y : =z")))
}

func TestValidateAST_ParsedTreesAreClean(t *testing.T) {
	ast := mustParse(t, "when a.$in(1,2) && b.$exists() *? string : =0")
	assert.Empty(t, condition.ValidateAST(ast))
}

func TestValidateAST_FlagsHandBuiltDefects(t *testing.T) {
	// empty field path and a missing else branch
	ast := &condition.Conditional{
		Cond: &condition.Comparison{
			Path:    &condition.FieldPath{},
			Op:      condition.CmpEq,
			Operand: condition.Literal{Kind: condition.LitNumber},
		},
		Then: condition.Literal{Kind: condition.LitString, Value: "x"},
	}
	ds := condition.ValidateAST(ast)
	require.NotEmpty(t, ds)
	types := map[condition.DiagnosticType]bool{}
	for _, d := range ds {
		types[d.Type] = true
	}
	assert.True(t, types[condition.DiagEmptyFieldPath], "empty field path must be flagged: %v", ds)
	assert.True(t, types[condition.DiagMissingBranch], "nil else branch must be flagged: %v", ds)
}

func TestValidateAST_UnsupportedMethodAndNegation(t *testing.T) {
	ast := mustParse(t, "when x.$custom() && y.$between(1,2)! *? =a : =b")
	ds := condition.ValidateAST(ast)
	require.Len(t, ds, 2)
	assert.Equal(t, condition.DiagUnsupportedMethod, ds[0].Type)
	assert.Equal(t, condition.DiagUnsupportedNegation, ds[1].Type)
}
