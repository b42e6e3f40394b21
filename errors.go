package strema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// Structural validation
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeUnknownKey    = "unknown_key"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidFormat = "invalid_format"
	CodeParseError    = "parse_error"

	// Schema compilation (field-definition strings)
	CodeBadDescriptor  = "bad_descriptor"
	CodeBadConditional = "bad_conditional"

	// Conditional-expression engine (lex/parse/eval diagnostics)
	CodeLexError       = "lex_error"
	CodeMissingWhen    = "missing_when"
	CodeMissingBranch  = "missing_branch"
	CodeMissingValue   = "missing_value"
	CodeUnmatchedParen = "unmatched_paren"
	CodeNestingLimit   = "nesting_limit"
	CodeUnknownMethod  = "unknown_method"
	CodeEmptyPath      = "empty_path"
	CodeUnsupportedOp  = "unsupported_op"
)

// Issue represents a single validation or diagnostics entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /profile/age).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, suggestions from the engine.
	Cause   error  // Optional: underlying error.
	Offset  int64  // Byte offset into the field definition or input (-1 when unknown).
	// Params carries structured parameters (e.g., {"min":1, "max":10, "got":42})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
