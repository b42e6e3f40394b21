// Package value holds the shared value-model helpers used by the condition
// evaluator and the descriptor validators: JSON decoding, coercion-free
// equality, and numeric extraction over the any-tree representation of a
// record.
package value

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"
)

// DecodeJSON builds the any-tree for a record from raw JSON. Numbers are
// preserved as json.Number so large integers survive untouched.
func DecodeJSON(data []byte) (map[string]any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	// reject trailing garbage
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, errTrailing
	}
	return m, nil
}

var errTrailing = trailingError{}

type trailingError struct{}

func (trailingError) Error() string { return "trailing data after JSON value" }

// DecodeLiteral decodes a bracketed literal span ([...] or {...}) from an
// expression source into its any-tree value.
func DecodeLiteral(span string) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader([]byte(span)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Num extracts a float64 from any numeric representation the any-tree can
// carry. The second result is false for non-numeric values; notably, numeric
// strings are not numbers.
func Num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal compares two values without implicit type coercion: a string "1"
// never equals the number 1. Numbers compare numerically across their
// representations (int, float64, json.Number); arrays and objects compare
// element-wise.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := Num(a); ok {
		fb, ok := Num(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsEmpty reports emptiness for the kinds that define it: zero-length
// strings, arrays, and objects. The second result is false when emptiness is
// not defined for the value's kind. A nil value has no emptiness; absence is
// a separate notion from empty.
func IsEmpty(v any) (empty, ok bool) {
	switch x := v.(type) {
	case string:
		return len(x) == 0, true
	case []any:
		return len(x) == 0, true
	case map[string]any:
		return len(x) == 0, true
	default:
		return false, false
	}
}

// Contains implements substring matching for strings and element membership
// for arrays. The second result is false for kinds with no containment
// semantics.
func Contains(haystack, needle any) (found, ok bool) {
	switch h := haystack.(type) {
	case string:
		n, isStr := needle.(string)
		if !isStr {
			return false, false
		}
		return strings.Contains(h, n), true
	case []any:
		for _, el := range h {
			if Equal(el, needle) {
				return true, true
			}
		}
		return false, true
	default:
		return false, false
	}
}
