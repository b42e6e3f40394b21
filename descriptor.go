package strema

import (
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/strema/strema/i18n"
	"github.com/strema/strema/internal/value"
)

// Descriptor is a parsed compact type descriptor such as "string",
// "number(18,120)", "string[]?(1,10)" or "admin|user|guest". Descriptors are
// immutable after parsing.
type Descriptor struct {
	// Base is the element type: string, number, int, bool, email, url,
	// uuid, any, or "union".
	Base string
	// Union holds the allowed constants when Base is "union".
	Union []string
	// Optional marks the '?' suffix (trailing, or between '[]' and the
	// length bounds): absent and null values are accepted.
	Optional bool
	// Array marks the '[]' suffix; Base then describes the element type.
	Array bool
	// Min/Max constrain numbers by value and strings by length; nil means
	// unconstrained.
	Min, Max *float64
	// MinItems/MaxItems bound array length.
	MinItems, MaxItems *int

	raw string
}

var knownBases = map[string]struct{}{
	"string": {}, "number": {}, "int": {}, "bool": {},
	"email": {}, "url": {}, "uuid": {}, "any": {},
}

// String returns the original descriptor source.
func (d *Descriptor) String() string { return d.raw }

// ParseDescriptor parses a compact type-descriptor string. Errors are
// reported as Issues with CodeBadDescriptor.
func ParseDescriptor(src string) (*Descriptor, error) {
	d := &Descriptor{raw: src}
	s := strings.TrimSpace(src)
	if s == "" {
		return nil, Issues{{Path: "/", Code: CodeBadDescriptor, Message: "empty type descriptor"}}
	}
	if strings.HasSuffix(s, "?") {
		d.Optional = true
		s = strings.TrimSuffix(s, "?")
	}
	// array suffix with optional length bounds: base[], base[](min,max),
	// and the '?' may also sit between the marker and the bounds
	// ("string[]?(1,10)")
	if i := strings.Index(s, "[]"); i >= 0 {
		d.Array = true
		rest := s[i+2:]
		s = s[:i]
		if strings.HasPrefix(rest, "?") {
			d.Optional = true
			rest = rest[1:]
		}
		if rest != "" {
			lo, hi, err := parseBounds(rest)
			if err != nil {
				return nil, badDescriptor(src, err)
			}
			if lo != nil {
				n := int(*lo)
				d.MinItems = &n
			}
			if hi != nil {
				n := int(*hi)
				d.MaxItems = &n
			}
		}
	}
	// base constraints: base(min,max)
	if i := strings.IndexByte(s, '('); i >= 0 {
		lo, hi, err := parseBounds(s[i:])
		if err != nil {
			return nil, badDescriptor(src, err)
		}
		d.Min, d.Max = lo, hi
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '|') {
		d.Base = "union"
		for _, m := range strings.Split(s, "|") {
			m = strings.TrimSpace(m)
			if m == "" {
				return nil, badDescriptor(src, fmt.Errorf("union member is empty"))
			}
			d.Union = append(d.Union, m)
		}
		return d, nil
	}
	if _, ok := knownBases[s]; !ok {
		return nil, Issues{{
			Path:    "/",
			Code:    CodeBadDescriptor,
			Message: fmt.Sprintf("unknown type %q", s),
			Hint:    "known types: string, number, int, bool, email, url, uuid, any; use a|b for unions and =value for constants",
		}}
	}
	d.Base = s
	return d, nil
}

func badDescriptor(src string, err error) error {
	return Issues{{Path: "/", Code: CodeBadDescriptor, Message: fmt.Sprintf("bad descriptor %q: %v", src, err)}}
}

// parseBounds parses "(min,max)" where either side may be empty.
func parseBounds(s string) (lo, hi *float64, err error) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, nil, fmt.Errorf("constraints are written (min,max)")
	}
	inner := s[1 : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) > 2 {
		return nil, nil, fmt.Errorf("too many constraint values")
	}
	parse := func(p string) (*float64, error) {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("constraint %q is not numeric", p)
		}
		return &f, nil
	}
	if lo, err = parse(parts[0]); err != nil {
		return nil, nil, err
	}
	if len(parts) == 2 {
		if hi, err = parse(parts[1]); err != nil {
			return nil, nil, err
		}
	} else {
		// single value means an exact bound on both sides
		hi = lo
	}
	return lo, hi, nil
}

// Check validates a value against the descriptor, accumulating Issues at
// the given path. A nil value passes only for optional descriptors; the
// required-vs-missing distinction is the schema layer's job.
func (d *Descriptor) Check(p PathRef, v any) Issues {
	if v == nil {
		if d.Optional {
			return nil
		}
		return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", d.raw)}
	}
	if d.Array {
		arr, ok := v.([]any)
		if !ok {
			return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", d.raw)}
		}
		var iss Issues
		if d.MinItems != nil && len(arr) < *d.MinItems {
			iss = append(iss, p.Issue(CodeTooShort, i18n.T(CodeTooShort, nil), "min", *d.MinItems, "got", len(arr)))
		}
		if d.MaxItems != nil && len(arr) > *d.MaxItems {
			iss = append(iss, p.Issue(CodeTooLong, i18n.T(CodeTooLong, nil), "max", *d.MaxItems, "got", len(arr)))
		}
		for i, el := range arr {
			iss = append(iss, d.checkScalar(p.Index(i), el)...)
		}
		return iss
	}
	return d.checkScalar(p, v)
}

func (d *Descriptor) checkScalar(p PathRef, v any) Issues {
	switch d.Base {
	case "any":
		return nil
	case "string":
		s, ok := v.(string)
		if !ok {
			return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", "string")}
		}
		var iss Issues
		if d.Min != nil && float64(len(s)) < *d.Min {
			iss = append(iss, p.Issue(CodeTooShort, i18n.T(CodeTooShort, nil), "min", *d.Min, "got", len(s)))
		}
		if d.Max != nil && float64(len(s)) > *d.Max {
			iss = append(iss, p.Issue(CodeTooLong, i18n.T(CodeTooLong, nil), "max", *d.Max, "got", len(s)))
		}
		return iss
	case "number", "int":
		f, ok := value.Num(v)
		if !ok {
			return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", d.Base)}
		}
		var iss Issues
		if d.Base == "int" && f != float64(int64(f)) {
			iss = append(iss, p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", "int", "got", f))
		}
		if d.Min != nil && f < *d.Min {
			iss = append(iss, p.Issue(CodeTooSmall, i18n.T(CodeTooSmall, nil), "min", *d.Min, "got", f))
		}
		if d.Max != nil && f > *d.Max {
			iss = append(iss, p.Issue(CodeTooBig, i18n.T(CodeTooBig, nil), "max", *d.Max, "got", f))
		}
		return iss
	case "bool":
		if _, ok := v.(bool); !ok {
			return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", "bool")}
		}
		return nil
	case "email":
		s, ok := v.(string)
		if !ok {
			return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", "email")}
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return Issues{p.Issue(CodeInvalidFormat, i18n.T(CodeInvalidFormat, nil), "format", "email", "got", s)}
		}
		return nil
	case "url":
		s, ok := v.(string)
		if !ok {
			return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", "url")}
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Issues{p.Issue(CodeInvalidFormat, i18n.T(CodeInvalidFormat, nil), "format", "url", "got", s)}
		}
		return nil
	case "uuid":
		s, ok := v.(string)
		if !ok {
			return Issues{p.Issue(CodeInvalidType, i18n.T(CodeInvalidType, nil), "expected", "uuid")}
		}
		if _, err := uuid.Parse(s); err != nil {
			return Issues{p.Issue(CodeInvalidFormat, i18n.T(CodeInvalidFormat, nil), "format", "uuid", "got", s)}
		}
		return nil
	case "union":
		s, ok := v.(string)
		if ok {
			for _, m := range d.Union {
				if s == m {
					return nil
				}
			}
		}
		return Issues{p.Issue(CodeInvalidEnum, i18n.T(CodeInvalidEnum, nil), "allowed", strings.Join(d.Union, "|"), "got", v)}
	default:
		return Issues{p.Issue(CodeBadDescriptor, "unhandled base type "+d.Base)}
	}
}
