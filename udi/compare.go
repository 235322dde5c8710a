package udi

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// CompareValues orders two constraint values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Integer and float values are compared numerically across types. Strings
// compare lexically and booleans order false before true. Any other pairing
// is not orderable and returns an error.
func CompareValues(left, right interface{}) (int, error) {
	if IsNumber(left) && IsNumber(right) {
		if li, lok := left.(int64); lok {
			if ri, rok := right.(int64); rok {
				return compareInt64s(li, ri), nil
			}
		}
		return compareFloats(cast.ToFloat64(left), cast.ToFloat64(right)), nil
	}

	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r), nil
		}
	case bool:
		if r, ok := right.(bool); ok {
			if !l && r {
				return -1, nil
			} else if l && !r {
				return 1, nil
			}
			return 0, nil
		}
	}

	return 0, fmt.Errorf("cannot order %T against %T", left, right)
}

// ValuesEqual reports whether two values are equal. Values of different
// kinds are never equal, except integers and floats with the same value.
func ValuesEqual(a, b interface{}) bool {
	if IsNumber(a) && IsNumber(b) {
		cmp, _ := CompareValues(a, b)
		return cmp == 0
	}

	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}

	return a == b
}

// IsNumber reports whether v is an integer or float constraint value.
func IsNumber(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

// NormalizeValue converts raw JSON-decoded or Go values into the canonical
// value kinds used by constraint evaluation: int64, float64, string, bool,
// []interface{} and Attributed.
func NormalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case []string:
		return stringsToValues(x)
	case map[string]interface{}:
		return attrMap(x)
	}
	return v
}

// attrMap exposes a raw JSON object to constraints.
type attrMap map[string]interface{}

func (m attrMap) Attr(key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

func compareInt64s(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
