package condition_test

import (
	"testing"

	"github.com/strema/strema/condition"
)

func kinds(tokens []condition.Token) []condition.TokenKind {
	out := make([]condition.TokenKind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize_BasicConditional(t *testing.T) {
	tokens, diags := condition.Tokenize("when role=admin *? string[] : string[]?")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	want := []condition.TokenKind{
		condition.TokenWhen, condition.TokenIdent, condition.TokenEq, condition.TokenIdent,
		condition.TokenThen, condition.TokenIdent, condition.TokenLBracket, condition.TokenRBracket,
		condition.TokenColon, condition.TokenIdent, condition.TokenLBracket, condition.TokenRBracket,
		condition.TokenQuestion, condition.TokenEOF,
	}
	got := kinds(tokens)
	if len(got) != len(want) {
		t.Fatalf("token kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v (stream %v)", i, got[i], want[i], got)
		}
	}
}

func TestTokenize_SignedNumberAfterDefaultMarker(t *testing.T) {
	tokens, diags := condition.Tokenize("when x.$exists() *? number : =-1")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	var num *condition.Token
	for i := range tokens {
		if tokens[i].Kind == condition.TokenNumber {
			num = &tokens[i]
		}
	}
	if num == nil {
		t.Fatalf("no number token in %v", tokens)
	}
	if num.Value != "-1" {
		t.Fatalf("signed literal = %q, want %q", num.Value, "-1")
	}
}

func TestTokenize_FractionalNumber(t *testing.T) {
	tokens, diags := condition.Tokenize("score > -2.5")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if tokens[2].Kind != condition.TokenNumber || tokens[2].Value != "-2.5" {
		t.Fatalf("got %+v, want number -2.5", tokens[2])
	}
}

func TestTokenize_BracketSegmentPreservesPunctuation(t *testing.T) {
	tokens, diags := condition.Tokenize(`config["special-key"] = on`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	// ident [ string ] = ident EOF
	if tokens[1].Kind != condition.TokenLBracket {
		t.Fatalf("expected path bracket, got %v", tokens[1].Kind)
	}
	if tokens[2].Kind != condition.TokenString || tokens[2].Value != "special-key" {
		t.Fatalf("bracket segment = %+v, want raw string special-key", tokens[2])
	}
}

func TestTokenize_ArrayLiteralSpan(t *testing.T) {
	tokens, diags := condition.Tokenize(`=["a","b"]`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if tokens[1].Kind != condition.TokenArray {
		t.Fatalf("expected array literal token, got %v", tokens[1].Kind)
	}
	if tokens[1].Value != `["a","b"]` {
		t.Fatalf("span = %q", tokens[1].Value)
	}
}

func TestTokenize_UnbalancedArrayNamesOpeningPosition(t *testing.T) {
	_, diags := condition.Tokenize(`=["a","b"`)
	if !diags.HasErrors() {
		t.Fatalf("expected a lexer diagnostic")
	}
	d := diags[0]
	if d.Type != condition.DiagMalformedLiteral {
		t.Fatalf("diag type = %v, want %v", d.Type, condition.DiagMalformedLiteral)
	}
	if d.Position != 1 {
		t.Fatalf("diag position = %d, want 1 (the opening bracket)", d.Position)
	}
}

func TestTokenize_UnicodeIdentifiers(t *testing.T) {
	tokens, diags := condition.Tokenize("когда=да && 名前.$exists() && 🎉.empty")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if tokens[0].Kind != condition.TokenIdent || tokens[0].Value != "когда" {
		t.Fatalf("unicode ident = %+v", tokens[0])
	}
	var seen []string
	for _, tok := range tokens {
		if tok.Kind == condition.TokenIdent {
			seen = append(seen, tok.Value)
		}
	}
	if len(seen) < 4 || seen[1] != "да" || seen[2] != "名前" {
		t.Fatalf("idents = %v", seen)
	}
}

func TestTokenize_UnterminatedString(t *testing.T) {
	_, diags := condition.Tokenize(`name = "abc`)
	if !diags.HasErrors() {
		t.Fatalf("expected a diagnostic for the unterminated string")
	}
	if diags[0].Type != condition.DiagMalformedLiteral {
		t.Fatalf("diag type = %v", diags[0].Type)
	}
}

func TestTokenize_RecoversAfterBadCharacter(t *testing.T) {
	tokens, diags := condition.Tokenize("a # b")
	if !diags.HasErrors() {
		t.Fatalf("expected a diagnostic for '#'")
	}
	// the remainder still lexes: ident error ident EOF
	got := kinds(tokens)
	want := []condition.TokenKind{condition.TokenIdent, condition.TokenError, condition.TokenIdent, condition.TokenEOF}
	if len(got) != len(want) {
		t.Fatalf("stream = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stream = %v, want %v", got, want)
		}
	}
}

func TestTokenize_PositionsAreByteOffsets(t *testing.T) {
	tokens, _ := condition.Tokenize("when a=1")
	if tokens[0].Pos != 0 || tokens[1].Pos != 5 || tokens[2].Pos != 6 || tokens[3].Pos != 7 {
		t.Fatalf("positions = %d %d %d %d", tokens[0].Pos, tokens[1].Pos, tokens[2].Pos, tokens[3].Pos)
	}
}

func TestTokenize_SinglePipeIsAUnionSeparator(t *testing.T) {
	tokens, diags := condition.Tokenize("full|limited")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	got := kinds(tokens)
	want := []condition.TokenKind{condition.TokenIdent, condition.TokenPipe, condition.TokenIdent, condition.TokenEOF}
	if len(got) != len(want) {
		t.Fatalf("stream = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stream = %v, want %v", got, want)
		}
	}

	// the logical operator still needs both bars
	tokens, _ = condition.Tokenize("a=1 || b=2")
	for _, tok := range tokens {
		if tok.Kind == condition.TokenPipe {
			t.Fatalf("'||' must lex as one operator, got %v", kinds(tokens))
		}
	}
}
