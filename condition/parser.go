package condition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/strema/strema/internal/value"
)

// Config bundles parser options.
type Config struct {
	// AllowNestedConditionals permits conditionals in then/else positions.
	AllowNestedConditionals bool
	// MaxNestingDepth bounds the number of conditional ancestors a branch
	// may have. Exceeding it is a parse error, never a runtime panic.
	MaxNestingDepth int
	// Strict makes unknown method names a parse error. Outside strict mode
	// they still parse, carrying MethodUnsupported for tooling to surface.
	Strict bool
	// Debug attaches the rendered token stream to diagnostics.
	Debug bool
}

// DefaultConfig mirrors the limits the schema compiler applies when the
// caller does not override them.
func DefaultConfig() Config {
	return Config{AllowNestedConditionals: true, MaxNestingDepth: 5}
}

// Parse builds the AST for a conditional expression. A nil AST is returned
// whenever any diagnostic is produced; partial trees are never exposed.
// Parsing stops at the first syntax error (expressions are short), so the
// returned list usually holds one entry plus any lexer findings.
func Parse(source string, cfg Config) (*Conditional, Diagnostics) {
	if cfg.MaxNestingDepth <= 0 {
		cfg.MaxNestingDepth = DefaultConfig().MaxNestingDepth
	}
	tokens, lexDiags := Tokenize(source)
	if lexDiags.HasErrors() {
		if cfg.Debug {
			lexDiags = attachTokenDump(lexDiags, tokens)
		}
		return nil, lexDiags
	}
	p := &parser{src: source, tokens: tokens, cfg: cfg}
	ast, ok := p.parseConditional(0)
	if ok && p.peek().Kind != TokenEOF {
		p.fail(DiagUnexpectedToken, p.peek().Pos, "", "unexpected %s after expression", p.peek().Kind)
		ok = false
	}
	if !ok || p.diags.HasErrors() {
		if cfg.Debug {
			p.diags = attachTokenDump(p.diags, tokens)
		}
		return nil, p.diags
	}
	return ast, nil
}

func attachTokenDump(ds Diagnostics, tokens []Token) Diagnostics {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == TokenEOF {
			break
		}
		parts = append(parts, t.Value)
	}
	dump := "tokens: " + strings.Join(parts, " ")
	for i := range ds {
		if ds[i].Suggestion == "" {
			ds[i].Suggestion = dump
		}
	}
	return ds
}

type parser struct {
	src    string
	tokens []Token
	pos    int
	cfg    Config
	diags  Diagnostics
}

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) peekAt(off int) Token {
	i := p.pos + off
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[i]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Kind != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) fail(typ DiagnosticType, pos int, suggestion, format string, args ...any) bool {
	p.diags = append(p.diags, Diagnostic{
		Type:       typ,
		Message:    fmt.Sprintf(format, args...),
		Position:   pos,
		Suggestion: suggestion,
	})
	return false
}

func (p *parser) expect(kind TokenKind, typ DiagnosticType, suggestion string) (Token, bool) {
	t := p.peek()
	if t.Kind != kind {
		return t, p.fail(typ, t.Pos, suggestion, "expected %s, found %s", kind, t.Kind)
	}
	return p.next(), true
}

// parseConditional parses "when <logicalOr> *? <branch> : <branch>".
// depth counts conditional ancestors; the root sits at depth zero.
func (p *parser) parseConditional(depth int) (*Conditional, bool) {
	start := p.peek()
	if start.Kind != TokenWhen {
		return nil, p.fail(DiagMissingWhenKeyword, start.Pos,
			"conditional expressions start with the 'when' keyword", "expected 'when', found %s", start.Kind)
	}
	if depth > 0 && !p.cfg.AllowNestedConditionals {
		return nil, p.fail(DiagNestedNotAllowed, start.Pos,
			"enable nested conditionals or flatten the expression", "nested conditionals are disabled")
	}
	if depth > p.cfg.MaxNestingDepth {
		return nil, p.fail(DiagNestingLimitExceeded, start.Pos,
			fmt.Sprintf("the nesting limit is %d", p.cfg.MaxNestingDepth),
			"conditional nesting exceeds the configured limit")
	}
	p.next() // when

	cond, ok := p.parseOr()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(TokenThen, DiagMissingThenMarker, "write the then-branch as '*? <type-or-default>'"); !ok {
		return nil, false
	}
	then, ok := p.parseBranch(depth)
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(TokenColon, DiagMissingBranch, "conditionals need an else-branch after ':'"); !ok {
		return nil, false
	}
	els, ok := p.parseBranch(depth)
	if !ok {
		return nil, false
	}
	return &Conditional{Cond: cond, Then: then, Else: els, At: start.Pos}, true
}

func (p *parser) parseOr() (Expr, bool) {
	left, ok := p.parseAnd()
	if !ok {
		return nil, false
	}
	for p.peek().Kind == TokenOr {
		op := p.next()
		right, ok := p.parseAnd()
		if !ok {
			return nil, false
		}
		left = &Logical{Op: OpOr, Left: left, Right: right, At: op.Pos}
	}
	return left, true
}

func (p *parser) parseAnd() (Expr, bool) {
	left, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	for p.peek().Kind == TokenAnd {
		op := p.next()
		right, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		left = &Logical{Op: OpAnd, Left: left, Right: right, At: op.Pos}
	}
	return left, true
}

func (p *parser) parseUnary() (Expr, bool) {
	if p.peek().Kind == TokenLParen {
		open := p.next()
		e, ok := p.parseOr()
		if !ok {
			return nil, false
		}
		if p.peek().Kind != TokenRParen {
			return nil, p.fail(DiagUnmatchedParenthesis, open.Pos,
				"add the missing ')'", "unmatched parenthesis opened at offset %d", open.Pos)
		}
		p.next()
		return e, true
	}
	return p.parsePredicate()
}

// parsePredicate parses a comparison or a method call, both of which begin
// with a field path. The ambiguity between a trailing path segment and a
// method name is resolved by lookahead: a '(' means a call, and a bare
// legacy predicate counts only when it terminates the sub-expression.
func (p *parser) parsePredicate() (Expr, bool) {
	path, method, ok := p.parseFieldPath()
	if !ok {
		return nil, false
	}
	if method {
		return p.parseMethodCall(path)
	}
	opTok := p.peek()
	var op CompareOp
	switch opTok.Kind {
	case TokenEq:
		op = CmpEq
	case TokenNeq:
		op = CmpNeq
	case TokenGt:
		op = CmpGt
	case TokenGte:
		op = CmpGte
	case TokenLt:
		op = CmpLt
	case TokenLte:
		op = CmpLte
	case TokenMatch:
		op = CmpMatch
	case TokenNotMatch:
		op = CmpNotMatch
	default:
		return nil, p.fail(DiagMissingValue, opTok.Pos,
			"follow the field path with a comparison operator or a method call",
			"expected comparison operator after field path, found %s", opTok.Kind)
	}
	p.next()
	operand, ok := p.parseLiteral("comparison operand")
	if !ok {
		return nil, false
	}
	cmp := &Comparison{Path: path, Op: op, Operand: operand, At: opTok.Pos}
	if op == CmpMatch || op == CmpNotMatch {
		pat, isStr := operand.Value.(string)
		if !isStr {
			return nil, p.fail(DiagInvalidRegex, operand.At, "", "regex operand must be a string")
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, p.fail(DiagInvalidRegex, operand.At, "", "invalid regular expression: %v", err)
		}
		cmp.Pattern = re
	}
	return cmp, true
}

// parseFieldPath consumes path segments. The boolean second result reports
// that the path is followed by a method part ('.' then '$', '!' or a
// callable name), which the caller parses next; the terminating '.' is left
// in the stream.
func (p *parser) parseFieldPath() (*FieldPath, bool, bool) {
	first := p.peek()
	if first.Kind != TokenIdent {
		return nil, false, p.fail(DiagEmptyFieldPath, first.Pos,
			"conditions reference a field path first", "expected field path, found %s", first.Kind)
	}
	p.next()
	fp := &FieldPath{Segments: []string{first.Value}, At: first.Pos}
	for {
		switch p.peek().Kind {
		case TokenLBracket:
			p.next()
			seg, ok := p.expect(TokenString, DiagEmptyFieldPath, "bracket segments hold a quoted key")
			if !ok {
				return nil, false, false
			}
			if _, ok := p.expect(TokenRBracket, DiagUnmatchedParenthesis, "close the bracket segment with ']'"); !ok {
				return nil, false, false
			}
			fp.Segments = append(fp.Segments, seg.Value)
		case TokenDot:
			next := p.peekAt(1)
			switch next.Kind {
			case TokenDollar, TokenBang:
				return fp, true, true
			case TokenIdent:
				if p.peekAt(2).Kind == TokenLParen {
					return fp, true, true
				}
				if _, legacy := legacyMethods[next.Value]; legacy && terminatesPredicate(p.peekAt(2).Kind) {
					return fp, true, true
				}
				p.next() // dot
				seg := p.next()
				fp.Segments = append(fp.Segments, seg.Value)
			default:
				return nil, false, p.fail(DiagMissingValue, next.Pos,
					"", "expected property name after '.', found %s", next.Kind)
			}
		default:
			return fp, false, true
		}
	}
}

// terminatesPredicate reports token kinds that can directly follow a bare
// legacy predicate such as 'field.exists'.
func terminatesPredicate(k TokenKind) bool {
	switch k {
	case TokenAnd, TokenOr, TokenRParen, TokenThen, TokenColon, TokenEOF:
		return true
	}
	return false
}

func (p *parser) parseMethodCall(path *FieldPath) (Expr, bool) {
	dot := p.next() // '.'
	negated := false
	if p.peek().Kind == TokenBang {
		negated = true
		p.next()
	}
	runtime := false
	if p.peek().Kind == TokenDollar {
		runtime = true
		p.next()
	}
	nameTok, ok := p.expect(TokenIdent, DiagUnknownMethod, "")
	if !ok {
		return nil, false
	}
	name := nameTok.Value
	m, known := MethodByName(name)
	call := &MethodCall{Path: path, Method: m, Name: name, Negated: negated, Runtime: runtime, At: dot.Pos}

	if p.peek().Kind == TokenLParen {
		p.next()
		for p.peek().Kind != TokenRParen {
			arg, ok := p.parseLiteral("method argument")
			if !ok {
				return nil, false
			}
			call.Args = append(call.Args, arg)
			if p.peek().Kind == TokenComma {
				p.next()
				continue
			}
			break
		}
		if p.peek().Kind != TokenRParen {
			return nil, p.fail(DiagUnmatchedParenthesis, nameTok.Pos,
				"close the argument list with ')'", "unterminated argument list for %s", name)
		}
		p.next()
		if p.peek().Kind == TokenBang {
			call.Negated = true
			p.next()
		}
	} else {
		// bare legacy predicate: fixed zero-arg set, never the '$' form
		if runtime {
			return nil, p.fail(DiagUnexpectedToken, nameTok.Pos,
				"runtime methods are called with parentheses: $"+name+"()", "'$%s' requires an argument list", name)
		}
		if _, legacy := legacyMethods[name]; !legacy {
			return nil, p.fail(DiagUnknownMethod, nameTok.Pos,
				"bare predicates are exists, empty and null", "'%s' is not a bare predicate", name)
		}
	}

	if !known {
		if p.cfg.Strict {
			return nil, p.fail(DiagUnknownMethod, nameTok.Pos,
				"supported methods: exists, empty, null, in, contains, startsWith, endsWith, between",
				"unknown method '%s'", name)
		}
		return call, true
	}
	min, max := m.arity()
	if len(call.Args) < min || (max >= 0 && len(call.Args) > max) {
		return nil, p.fail(DiagMissingValue, nameTok.Pos, "",
			"method '%s' expects %s, got %d", name, arityText(min, max), len(call.Args))
	}
	return call, true
}

func arityText(min, max int) string {
	switch {
	case max < 0:
		return fmt.Sprintf("at least %d argument(s)", min)
	case min == max && min == 1:
		return "1 argument"
	case min == max:
		return fmt.Sprintf("%d arguments", min)
	default:
		return fmt.Sprintf("%d to %d arguments", min, max)
	}
}

// parseBranch parses one side of a conditional: a nested conditional, a
// "=literal" default, or a raw type-descriptor span handed back to the
// schema layer verbatim.
func (p *parser) parseBranch(depth int) (Branch, bool) {
	switch p.peek().Kind {
	case TokenWhen:
		return p.parseConditional(depth + 1)
	case TokenEq:
		p.next()
		lit, ok := p.parseLiteral("default value")
		if !ok {
			return nil, false
		}
		return lit, true
	default:
		return p.parseDescriptor()
	}
}

// parseDescriptor captures the branch's source span up to the first
// top-level ':' (which belongs to the enclosing conditional) or the end of
// input. Parentheses inside constraints like number(0,120) are balanced.
func (p *parser) parseDescriptor() (Branch, bool) {
	start := p.peek()
	parens := 0
	end := start.Pos
	for {
		t := p.peek()
		if t.Kind == TokenEOF {
			break
		}
		if t.Kind == TokenLParen {
			parens++
		}
		if t.Kind == TokenRParen {
			parens--
		}
		if t.Kind == TokenColon && parens == 0 {
			break
		}
		if t.Kind == TokenThen {
			return nil, p.fail(DiagUnexpectedToken, t.Pos,
				"only 'when' expressions take a '*?' branch marker", "unexpected '*?' inside a branch")
		}
		p.next()
		end = t.Pos + len(t.Value)
	}
	text := strings.TrimSpace(p.src[start.Pos:end])
	if text == "" {
		return nil, p.fail(DiagMissingBranch, start.Pos,
			"each branch needs a type, a nested conditional, or a '=default'", "missing branch value")
	}
	return &TypeBranch{Descriptor: text, At: start.Pos}, true
}

// parseLiteral consumes a single literal value. Bare identifiers are string
// constants ("=granted", in(admin,user)); 'null' is the null literal.
func (p *parser) parseLiteral(what string) (Literal, bool) {
	t := p.peek()
	switch t.Kind {
	case TokenNumber:
		p.next()
		return Literal{Kind: LitNumber, Value: json.Number(t.Value), At: t.Pos}, true
	case TokenString:
		p.next()
		return Literal{Kind: LitString, Value: t.Value, At: t.Pos}, true
	case TokenBool:
		p.next()
		return Literal{Kind: LitBool, Value: t.Value == "true", At: t.Pos}, true
	case TokenIdent:
		p.next()
		if t.Value == "null" {
			return Literal{Kind: LitNull, Value: nil, At: t.Pos}, true
		}
		return Literal{Kind: LitString, Value: t.Value, At: t.Pos}, true
	case TokenArray:
		p.next()
		v, err := value.DecodeLiteral(t.Value)
		if err != nil {
			return Literal{}, p.fail(DiagMalformedLiteral, t.Pos,
				"array literals use JSON syntax; quote string elements", "invalid array literal: %v", err)
		}
		return Literal{Kind: LitArray, Value: v, At: t.Pos}, true
	case TokenObject:
		p.next()
		v, err := value.DecodeLiteral(t.Value)
		if err != nil {
			return Literal{}, p.fail(DiagMalformedLiteral, t.Pos,
				"object literals use JSON syntax", "invalid object literal: %v", err)
		}
		return Literal{Kind: LitObject, Value: v, At: t.Pos}, true
	default:
		return Literal{}, p.fail(DiagMissingValue, t.Pos, "",
			"expected %s, found %s", what, t.Kind)
	}
}
