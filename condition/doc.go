// Package condition implements the conditional mini-language used inside
// compact schema strings: "when <condition> *? <then> : <else>".
//
// The package is a small, self-contained interpreter:
//
//   - Tokenize turns an expression into a flat token stream, recovering
//     past malformed spans.
//   - Parse builds an immutable AST by recursive descent, with configurable
//     nesting limits and structured Diagnostics; a nil AST is returned on
//     any error.
//   - Evaluate walks a parsed AST against a DataContext and selects a
//     branch, short-circuiting logical operators and memoizing field
//     lookups per call.
//   - FieldReferences, ComplexityScore, HasNestedConditionals and
//     ValidateAST serve diagnostics tooling off the hot path.
//
// Parsing happens once per field at schema-build time; evaluation once per
// field per validated record. A parsed tree is read-only and safe to share
// across concurrent evaluations.
package condition
