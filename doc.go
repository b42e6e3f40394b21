// Package strema provides:
//
// - Data validation against schemas written as compact strings ("number(18,120)", "string[]?")
// - Conditional field types via a small expression language ("when role=admin *? string[] : string[]?")
// - A stable error model via Issues (JSON Pointer, code, message)
// - Fail-fast schema compilation: every malformed field definition reported in one pass
//
// Design policy:
// - Keep the public validation API in the root package; the expression engine lives under condition/.
// - Shared value-model helpers go under internal/, the CLI under cmd/strema.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	s, err := strema.Compile(map[string]string{
//	    "role":        "admin|user|guest",
//	    "permissions": "when role=admin *? string[] : string[]?",
//	})
//	out, err := s.Validate(record)
//	out, err = s.ValidateJSON(ctx, raw)
package strema
