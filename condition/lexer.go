package condition

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize converts a conditional-expression source string into a flat token
// stream. It never fails hard: malformed spans are reported as Diagnostics
// and emitted as TokenError so the remainder of the input still lexes. The
// returned stream always ends with a TokenEOF.
func Tokenize(source string) ([]Token, Diagnostics) {
	lx := &lexer{src: source}
	lx.run()
	return lx.tokens, lx.diags
}

type lexer struct {
	src    string
	pos    int
	tokens []Token
	diags  Diagnostics
	// prev is the kind of the last emitted token, used to decide whether a
	// '[' opens a path segment or an array literal.
	prev TokenKind
	has  bool
}

func (lx *lexer) emit(kind TokenKind, value string, pos int) {
	lx.tokens = append(lx.tokens, Token{Kind: kind, Value: value, Pos: pos})
	lx.prev = kind
	lx.has = true
}

func (lx *lexer) errorf(typ DiagnosticType, pos int, suggestion, format string, args ...any) {
	lx.diags = append(lx.diags, Diagnostic{
		Type:       typ,
		Message:    fmt.Sprintf(format, args...),
		Position:   pos,
		Suggestion: suggestion,
	})
}

func (lx *lexer) peek() (rune, int) {
	if lx.pos >= len(lx.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(lx.src[lx.pos:])
}

func (lx *lexer) run() {
	for lx.pos < len(lx.src) {
		r, w := lx.peek()
		start := lx.pos
		switch {
		case unicode.IsSpace(r):
			lx.pos += w
		case r == '"' || r == '\'':
			lx.lexString(r)
		case r >= '0' && r <= '9':
			lx.lexNumber(false)
		case r == '-':
			if n, _ := lx.peekAt(lx.pos + w); n >= '0' && n <= '9' {
				lx.lexNumber(true)
			} else {
				lx.errorf(DiagUnrecognizedCharacter, start, "use bracket notation for keys containing '-'", "unexpected character %q", r)
				lx.emit(TokenError, string(r), start)
				lx.pos += w
			}
		case r == '(':
			lx.pos += w
			lx.emit(TokenLParen, "(", start)
		case r == ')':
			lx.pos += w
			lx.emit(TokenRParen, ")", start)
		case r == '[':
			if lx.operandPosition() {
				lx.lexBalancedSpan('[', ']', TokenArray)
			} else {
				lx.pos += w
				lx.emit(TokenLBracket, "[", start)
			}
		case r == ']':
			lx.pos += w
			lx.emit(TokenRBracket, "]", start)
		case r == '{':
			lx.lexBalancedSpan('{', '}', TokenObject)
		case r == '.':
			lx.pos += w
			lx.emit(TokenDot, ".", start)
		case r == ',':
			lx.pos += w
			lx.emit(TokenComma, ",", start)
		case r == ':':
			lx.pos += w
			lx.emit(TokenColon, ":", start)
		case r == '$':
			lx.pos += w
			lx.emit(TokenDollar, "$", start)
		case r == '?':
			lx.pos += w
			lx.emit(TokenQuestion, "?", start)
		case r == '*':
			if n, _ := lx.peekAt(lx.pos + w); n == '?' {
				lx.pos += w + 1
				lx.emit(TokenThen, "*?", start)
			} else {
				lx.errorf(DiagUnrecognizedCharacter, start, "the branch marker is '*?'", "unexpected character %q", r)
				lx.emit(TokenError, "*", start)
				lx.pos += w
			}
		case r == '=':
			lx.pos += w
			lx.emit(TokenEq, "=", start)
		case r == '!':
			switch n, _ := lx.peekAt(lx.pos + w); n {
			case '=':
				lx.pos += w + 1
				lx.emit(TokenNeq, "!=", start)
			case '~':
				lx.pos += w + 1
				lx.emit(TokenNotMatch, "!~", start)
			default:
				lx.pos += w
				lx.emit(TokenBang, "!", start)
			}
		case r == '>':
			if n, _ := lx.peekAt(lx.pos + w); n == '=' {
				lx.pos += w + 1
				lx.emit(TokenGte, ">=", start)
			} else {
				lx.pos += w
				lx.emit(TokenGt, ">", start)
			}
		case r == '<':
			if n, _ := lx.peekAt(lx.pos + w); n == '=' {
				lx.pos += w + 1
				lx.emit(TokenLte, "<=", start)
			} else {
				lx.pos += w
				lx.emit(TokenLt, "<", start)
			}
		case r == '~':
			lx.pos += w
			lx.emit(TokenMatch, "~", start)
		case r == '&':
			if n, _ := lx.peekAt(lx.pos + w); n == '&' {
				lx.pos += w + 1
				lx.emit(TokenAnd, "&&", start)
			} else {
				lx.errorf(DiagUnrecognizedCharacter, start, "logical AND is written '&&'", "unexpected character %q", r)
				lx.emit(TokenError, "&", start)
				lx.pos += w
			}
		case r == '|':
			if n, _ := lx.peekAt(lx.pos + w); n == '|' {
				lx.pos += w + 1
				lx.emit(TokenOr, "||", start)
			} else {
				// union separator inside a type descriptor, e.g. "full|limited"
				lx.pos += w
				lx.emit(TokenPipe, "|", start)
			}
		case isIdentRune(r):
			lx.lexIdent()
		default:
			lx.errorf(DiagUnrecognizedCharacter, start, "", "unexpected character %q", r)
			lx.emit(TokenError, string(r), start)
			lx.pos += w
		}
	}
	lx.emit(TokenEOF, "", len(lx.src))
}

func (lx *lexer) peekAt(off int) (rune, int) {
	if off >= len(lx.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(lx.src[off:])
}

// operandPosition reports whether the next token sits where a literal value
// is expected rather than a field-path continuation. It drives the '['
// ambiguity: array literal vs bracket segment.
func (lx *lexer) operandPosition() bool {
	if !lx.has {
		return true
	}
	switch lx.prev {
	case TokenEq, TokenNeq, TokenGt, TokenGte, TokenLt, TokenLte,
		TokenMatch, TokenNotMatch, TokenAnd, TokenOr,
		TokenComma, TokenLParen, TokenColon, TokenThen, TokenWhen:
		return true
	}
	return false
}

// lexIdent consumes a bare identifier. Any printable rune that is not
// reserved punctuation participates, so non-Latin scripts and emoji are
// valid property names.
func (lx *lexer) lexIdent() {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, w := lx.peek()
		if !isIdentRune(r) && !(r >= '0' && r <= '9') {
			break
		}
		lx.pos += w
	}
	word := lx.src[start:lx.pos]
	switch word {
	case "when":
		lx.emit(TokenWhen, word, start)
	case "true", "false":
		lx.emit(TokenBool, word, start)
	default:
		lx.emit(TokenIdent, word, start)
	}
}

// lexNumber consumes digits with an optional fraction. The caller has
// already decided whether a leading '-' belongs to the literal; '=-1' lexes
// as the single signed number -1, never as a minus operator.
func (lx *lexer) lexNumber(signed bool) {
	start := lx.pos
	if signed {
		lx.pos++ // '-'
	}
	for lx.pos < len(lx.src) {
		r, w := lx.peek()
		if r < '0' || r > '9' {
			break
		}
		lx.pos += w
	}
	if r, w := lx.peek(); r == '.' {
		// fraction only when a digit follows; 'x.exists' keeps its dot
		if n, _ := lx.peekAt(lx.pos + w); n >= '0' && n <= '9' {
			lx.pos += w
			for lx.pos < len(lx.src) {
				r, w := lx.peek()
				if r < '0' || r > '9' {
					break
				}
				lx.pos += w
			}
		}
	}
	lx.emit(TokenNumber, lx.src[start:lx.pos], start)
}

func (lx *lexer) lexString(quote rune) {
	start := lx.pos
	lx.pos++ // opening quote
	b := &strings.Builder{}
	for lx.pos < len(lx.src) {
		r, w := lx.peek()
		switch r {
		case quote:
			lx.pos += w
			lx.emit(TokenString, b.String(), start)
			return
		case '\\':
			lx.pos += w
			e, ew := lx.peek()
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '"', '\'':
				b.WriteRune(e)
			default:
				lx.errorf(DiagMalformedLiteral, lx.pos-w, "", "invalid escape sequence %q", "\\"+string(e))
				b.WriteRune(e)
			}
			lx.pos += ew
		default:
			b.WriteRune(r)
			lx.pos += w
		}
	}
	lx.errorf(DiagMalformedLiteral, start, "close the string with a matching quote", "unterminated string literal")
	lx.emit(TokenError, lx.src[start:], start)
}

// lexBalancedSpan consumes a bracketed literal ([...] or {...}) verbatim,
// respecting nested brackets and quoted strings. The span text, including
// delimiters, becomes a single token decoded later by the parser.
func (lx *lexer) lexBalancedSpan(open, close rune, kind TokenKind) {
	start := lx.pos
	depth := 0
	for lx.pos < len(lx.src) {
		r, w := lx.peek()
		switch r {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				lx.pos += w
				lx.emit(kind, lx.src[start:lx.pos], start)
				return
			}
		case '"', '\'':
			lx.skipQuoted(r)
			continue
		}
		lx.pos += w
	}
	lx.errorf(DiagMalformedLiteral, start, fmt.Sprintf("add a closing %q", close), "unbalanced %q opened at offset %d", open, start)
	lx.emit(TokenError, lx.src[start:], start)
}

// skipQuoted advances past a quoted run inside a literal span without
// interpreting escapes beyond backslash skipping.
func (lx *lexer) skipQuoted(quote rune) {
	lx.pos++ // opening quote
	for lx.pos < len(lx.src) {
		r, w := lx.peek()
		lx.pos += w
		if r == '\\' {
			if _, ew := lx.peek(); ew > 0 {
				lx.pos += ew
			}
			continue
		}
		if r == quote {
			return
		}
	}
}

func isIdentRune(r rune) bool {
	if r < 128 {
		return r == '_' || unicode.IsLetter(r)
	}
	return !unicode.IsSpace(r) && unicode.IsGraphic(r)
}
