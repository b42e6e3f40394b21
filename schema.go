package strema

import (
	"context"
	"sort"
	"strings"

	"github.com/strema/strema/condition"
	"github.com/strema/strema/internal/value"
)

// Schema is a compiled set of field definitions. Compilation parses every
// compact descriptor and conditional expression exactly once; the result is
// immutable and safe to share across concurrent validations.
type Schema struct {
	fields   []field
	declared map[string]struct{}
	condCfg  condition.Config
}

type field struct {
	name string
	raw  string
	// desc is set for plain fields; cond for "when ..." fields.
	desc *Descriptor
	cond *condition.Conditional
	// branches caches the parsed descriptor of every type branch the
	// conditional can resolve to.
	branches map[string]*Descriptor
}

// CompileOption adjusts schema compilation.
type CompileOption func(*compileConfig)

type compileConfig struct {
	cond condition.Config
}

// WithConditionConfig overrides the conditional-engine parser configuration
// (nesting limits, strict method resolution, debug diagnostics).
func WithConditionConfig(cfg condition.Config) CompileOption {
	return func(c *compileConfig) { c.cond = cfg }
}

// Compile builds a Schema from a map of field name to compact definition
// string, for example:
//
//	s, err := strema.Compile(map[string]string{
//	    "role":   "admin|user|guest",
//	    "age":    "number(18,120)?",
//	    "perms":  "when role=admin *? string[] : string[]?",
//	})
//
// Compilation is fail-fast but exhaustive: every malformed field is
// collected before the error is returned, one Issue per finding, with the
// field name as the path and the engine's suggestion as the hint.
func Compile(defs map[string]string, opts ...CompileOption) (*Schema, error) {
	cfg := compileConfig{cond: condition.DefaultConfig()}
	for _, o := range opts {
		o(&cfg)
	}

	names := make([]string, 0, len(defs))
	for n := range defs {
		names = append(names, n)
	}
	sort.Strings(names)

	s := &Schema{declared: make(map[string]struct{}, len(defs)), condCfg: cfg.cond}
	var iss Issues
	for _, name := range names {
		s.declared[name] = struct{}{}
		raw := strings.TrimSpace(defs[name])
		f := field{name: name, raw: raw}
		if isConditionalDef(raw) {
			ast, diags := condition.Parse(raw, cfg.cond)
			if len(diags) > 0 {
				iss = append(iss, diagIssues(name, diags)...)
				continue
			}
			f.cond = ast
			f.branches = map[string]*Descriptor{}
			var branchErr bool
			walkTypeBranches(ast, func(tb *condition.TypeBranch) {
				if _, done := f.branches[tb.Descriptor]; done {
					return
				}
				d, err := ParseDescriptor(tb.Descriptor)
				if err != nil {
					branchErr = true
					iss = append(iss, fieldIssues(name, err)...)
					return
				}
				f.branches[tb.Descriptor] = d
			})
			if branchErr {
				continue
			}
		} else {
			d, err := ParseDescriptor(raw)
			if err != nil {
				iss = append(iss, fieldIssues(name, err)...)
				continue
			}
			f.desc = d
		}
		s.fields = append(s.fields, f)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return s, nil
}

func isConditionalDef(raw string) bool {
	return raw == "when" || strings.HasPrefix(raw, "when ")
}

func walkTypeBranches(c *condition.Conditional, fn func(*condition.TypeBranch)) {
	if c == nil {
		return
	}
	for _, br := range []condition.Branch{c.Then, c.Else} {
		switch b := br.(type) {
		case *condition.TypeBranch:
			fn(b)
		case *condition.Conditional:
			walkTypeBranches(b, fn)
		}
	}
}

// Fields returns the declared field names in validation order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.name
	}
	return out
}

// Definition returns the raw definition string of a declared field.
func (s *Schema) Definition(name string) (string, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f.raw, true
		}
	}
	return "", false
}

// Conditional exposes the parsed AST of a conditional field for analysis
// tooling; nil for plain fields.
func (s *Schema) Conditional(name string) *condition.Conditional {
	for _, f := range s.fields {
		if f.name == name {
			return f.cond
		}
	}
	return nil
}

// ValidateOpt bundles validation options.
type ValidateOpt struct {
	// Runtime supplies ambient runtime-only properties readable by
	// $method() calls.
	Runtime map[string]any
	// Debug collects evaluation traces; retrieve them with ValidateDebug.
	Debug bool
	// Cache is an optional shared lookup cache (see condition.NewSharedCache).
	// When set, records are fingerprinted so entries can be keyed by content.
	Cache condition.ValueCache
}

// Validate checks a record against the schema. The returned map is the
// validated value with literal defaults applied; it shares unmodified
// entries with the input. A non-nil error is always Issues carrying one
// entry per failed field; evaluation anomalies surface the same way but do
// not stop the remaining fields.
func (s *Schema) Validate(record map[string]any, opts ...ValidateOpt) (map[string]any, error) {
	out, _, err := s.validate(record, opts...)
	return out, err
}

// ValidateDebug is Validate plus the per-field evaluation traces of
// conditional fields, keyed by field name.
func (s *Schema) ValidateDebug(record map[string]any, opts ...ValidateOpt) (map[string]any, map[string]*condition.DebugInfo, error) {
	var opt ValidateOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	opt.Debug = true
	return s.validate(record, opt)
}

func (s *Schema) validate(record map[string]any, opts ...ValidateOpt) (map[string]any, map[string]*condition.DebugInfo, error) {
	var opt ValidateOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}

	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	var traces map[string]*condition.DebugInfo
	if opt.Debug {
		traces = map[string]*condition.DebugInfo{}
	}

	data := condition.DataContext{
		Record:   record,
		Runtime:  opt.Runtime,
		Declared: s.declared,
	}
	if opt.Cache != nil {
		data.Fingerprint = condition.Fingerprint(record)
	}

	var iss Issues
	for _, f := range s.fields {
		p := Root().Field(f.name)
		if f.cond == nil {
			iss = append(iss, checkPresence(p, f.desc, record, f.name)...)
			continue
		}
		res := condition.Evaluate(f.cond, data, condition.EvalOptions{
			Debug: opt.Debug,
			Cache: opt.Cache,
		})
		if traces != nil {
			traces[f.name] = res.Debug
		}
		if !res.OK {
			iss = append(iss, diagIssues(f.name, res.Issues)...)
		}
		if def, ok := res.Default(); ok {
			// a literal default overrides whatever the caller supplied
			out[f.name] = def
			continue
		}
		if descStr, ok := res.Descriptor(); ok {
			iss = append(iss, checkPresence(p, f.branches[descStr], record, f.name)...)
		}
	}
	if len(iss) > 0 {
		return out, traces, iss
	}
	return out, traces, nil
}

func checkPresence(p PathRef, d *Descriptor, record map[string]any, name string) Issues {
	if d == nil {
		return nil
	}
	v, present := record[name]
	if !present {
		if d.Optional {
			return nil
		}
		return Issues{p.Issue(CodeRequired, "required property missing", "field", name)}
	}
	return d.Check(p, v)
}

// ValidateJSON decodes a JSON record and validates it. Numbers are
// preserved as json.Number.
func (s *Schema) ValidateJSON(ctx context.Context, data []byte, opts ...ValidateOpt) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, AppendIssues(nil, Issue{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err})
	}
	rec, err := value.DecodeJSON(data)
	if err != nil {
		return nil, AppendIssues(nil, Issue{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err})
	}
	return s.Validate(rec, opts...)
}

// ---- condition.Diagnostics -> Issues mapping ----

func diagIssues(fieldName string, ds condition.Diagnostics) Issues {
	iss := make(Issues, 0, len(ds))
	for _, d := range ds {
		iss = append(iss, Issue{
			Path:    Root().Field(fieldName).Pointer(),
			Code:    diagCode(d.Type),
			Message: d.Message,
			Hint:    d.Suggestion,
			Offset:  int64(d.Position),
			Params:  map[string]any{"type": string(d.Type)},
		})
	}
	return iss
}

func fieldIssues(fieldName string, err error) Issues {
	iss, ok := AsIssues(err)
	if !ok {
		return Issues{{Path: Root().Field(fieldName).Pointer(), Code: CodeParseError, Message: err.Error(), Cause: err}}
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		it.Path = Root().Field(fieldName).Pointer()
		out[i] = it
	}
	return out
}

func diagCode(t condition.DiagnosticType) string {
	switch t {
	case condition.DiagMalformedLiteral, condition.DiagUnrecognizedCharacter:
		return CodeLexError
	case condition.DiagMissingWhenKeyword:
		return CodeMissingWhen
	case condition.DiagMissingThenMarker, condition.DiagMissingBranch:
		return CodeMissingBranch
	case condition.DiagMissingValue:
		return CodeMissingValue
	case condition.DiagUnmatchedParenthesis:
		return CodeUnmatchedParen
	case condition.DiagNestingLimitExceeded, condition.DiagNestedNotAllowed:
		return CodeNestingLimit
	case condition.DiagUnknownMethod:
		return CodeUnknownMethod
	case condition.DiagEmptyFieldPath:
		return CodeEmptyPath
	case condition.DiagUnsupportedNegation, condition.DiagUnsupportedMethod,
		condition.DiagTypeMismatch, condition.DiagUndeclaredField:
		return CodeUnsupportedOp
	default:
		return CodeParseError
	}
}
