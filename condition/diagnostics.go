package condition

import (
	"fmt"
	"strings"
)

// DiagnosticType tags the structural cause of a lexer, parser, or evaluator
// diagnostic. Callers dispatch on the tag; Message is for humans.
type DiagnosticType string

const (
	// Lexer
	DiagMalformedLiteral      DiagnosticType = "MalformedLiteral"
	DiagUnrecognizedCharacter DiagnosticType = "UnrecognizedCharacter"

	// Parser
	DiagMissingWhenKeyword    DiagnosticType = "MissingWhenKeyword"
	DiagMissingThenMarker     DiagnosticType = "MissingThenMarker"
	DiagMissingBranch         DiagnosticType = "MissingBranch"
	DiagMissingValue          DiagnosticType = "MissingValue"
	DiagUnmatchedParenthesis  DiagnosticType = "UnmatchedParenthesis"
	DiagNestingLimitExceeded  DiagnosticType = "NestingLimitExceeded"
	DiagNestedNotAllowed      DiagnosticType = "NestedConditionalNotAllowed"
	DiagUnknownMethod         DiagnosticType = "UnknownMethod"
	DiagEmptyFieldPath        DiagnosticType = "EmptyFieldPath"
	DiagUnexpectedToken       DiagnosticType = "UnexpectedToken"
	DiagInvalidRegex          DiagnosticType = "InvalidRegex"

	// Analyzer / evaluator
	DiagUnsupportedNegation DiagnosticType = "UnsupportedNegation"
	DiagUnsupportedMethod   DiagnosticType = "UnsupportedMethod"
	DiagTypeMismatch        DiagnosticType = "TypeMismatch"
	DiagUndeclaredField     DiagnosticType = "UndeclaredField"
)

// Diagnostic is one structured lexer/parser/evaluator finding. Position is a
// byte offset into the expression source; Suggestion is optional remediation
// text.
type Diagnostic struct {
	Type       DiagnosticType
	Message    string
	Position   int
	Suggestion string
}

func (d Diagnostic) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s at offset %d: %s", d.Type, d.Position, d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(b, " (%s)", d.Suggestion)
	}
	return b.String()
}

// Diagnostics is an accumulated list of findings that implements error.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	if len(ds) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(ds)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ds[i].Error())
	}
	if len(ds) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(ds))
	}
	return b.String()
}

// HasErrors reports whether the list is non-empty. It exists for call-site
// readability next to best-effort token streams.
func (ds Diagnostics) HasErrors() bool { return len(ds) > 0 }
