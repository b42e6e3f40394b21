package condition

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	// Literals and names
	TokenIdent  TokenKind = iota // field or method name, unicode-safe
	TokenNumber                  // signed numeric literal
	TokenString                  // quoted string literal
	TokenBool                    // true / false
	TokenArray                   // balanced [...] literal span
	TokenObject                  // balanced {...} literal span

	// Comparison operators
	TokenEq       // =
	TokenNeq      // !=
	TokenGt       // >
	TokenGte      // >=
	TokenLt       // <
	TokenLte      // <=
	TokenMatch    // ~
	TokenNotMatch // !~

	// Logical operators
	TokenAnd // &&
	TokenOr  // ||

	// Punctuation
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [  (field-path bracket segment)
	TokenRBracket // ]
	TokenDot      // .
	TokenComma    // ,
	TokenColon    // :
	TokenThen     // *?
	TokenQuestion // ?  (optional marker inside type descriptors)
	TokenPipe     // |  (union separator inside type descriptors)
	TokenDollar   // $  (runtime-method marker)
	TokenBang     // !  (method negation)
	TokenWhen     // when keyword

	TokenEOF
	TokenError // unrecoverable character sequence, lexing continues after it
)

// Token is one lexical unit of a conditional expression. Tokens are
// immutable once produced; Pos is a byte offset into the source used for
// diagnostics.
type Token struct {
	Kind TokenKind
	// Value holds the raw text for idents, the decoded text for strings and
	// bracket segments, and the full span for array/object literals.
	Value string
	Pos   int
}

func (k TokenKind) String() string {
	switch k {
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenBool:
		return "boolean"
	case TokenArray:
		return "array literal"
	case TokenObject:
		return "object literal"
	case TokenEq:
		return "'='"
	case TokenNeq:
		return "'!='"
	case TokenGt:
		return "'>'"
	case TokenGte:
		return "'>='"
	case TokenLt:
		return "'<'"
	case TokenLte:
		return "'<='"
	case TokenMatch:
		return "'~'"
	case TokenNotMatch:
		return "'!~'"
	case TokenAnd:
		return "'&&'"
	case TokenOr:
		return "'||'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenDot:
		return "'.'"
	case TokenComma:
		return "','"
	case TokenColon:
		return "':'"
	case TokenThen:
		return "'*?'"
	case TokenQuestion:
		return "'?'"
	case TokenPipe:
		return "'|'"
	case TokenDollar:
		return "'$'"
	case TokenBang:
		return "'!'"
	case TokenWhen:
		return "'when'"
	case TokenEOF:
		return "end of expression"
	case TokenError:
		return "invalid input"
	default:
		return "unknown"
	}
}
