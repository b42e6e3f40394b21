package condition

import (
	"reflect"
	"strconv"
)

// Resolve walks a field path through the any-tree of a record, segment by
// segment. The second result distinguishes "does not exist" (a missing key
// or index) from a present-but-falsy value: an explicit null, 0, "" or an
// empty container all resolve with found=true.
//
// Bracket-notation segments are matched as exact object keys regardless of
// their character content. Numeric segments index into arrays.
//
// Cyclic object graphs are contained with a seen-set of container
// identities on the current path: when a walk would re-enter a container it
// already passed through, the path terminates there and the circular
// container itself is the value. This is containment, not cycle-aware graph
// semantics.
func Resolve(root map[string]any, segments []string) (any, bool) {
	if root == nil || len(segments) == 0 {
		return nil, false
	}
	var cur any = root
	seen := map[uintptr]struct{}{}
	for _, seg := range segments {
		if id, ok := containerID(cur); ok {
			if _, dup := seen[id]; dup {
				return cur, true
			}
			seen[id] = struct{}{}
		}
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func containerID(v any) (uintptr, bool) {
	switch v.(type) {
	case map[string]any, []any:
		return reflect.ValueOf(v).Pointer(), true
	default:
		return 0, false
	}
}
