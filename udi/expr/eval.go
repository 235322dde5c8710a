package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/dqvis/udigen/udi"
)

// compare applies a single comparison operator. Undefined operands never
// satisfy a comparison, including "!=" and "not in".
func compare(op string, left, right interface{}) (bool, error) {
	if IsUndefined(left) || IsUndefined(right) {
		return false, nil
	}

	switch op {
	case "==":
		return udi.ValuesEqual(left, right), nil
	case "!=":
		return !udi.ValuesEqual(left, right), nil
	case "in":
		return contains(right, left)
	case "not in":
		ok, err := contains(right, left)
		return !ok, err
	}

	cmp, err := udi.CompareValues(left, right)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator: %s", op)
}

// contains implements membership: element of a list, substring of a string,
// or key of an attributed value.
func contains(container, item interface{}) (bool, error) {
	switch c := container.(type) {
	case []interface{}:
		for _, v := range c {
			if udi.ValuesEqual(udi.NormalizeValue(v), item) {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand, not %T", item)
		}
		return strings.Contains(c, s), nil
	case udi.Attributed:
		key, ok := item.(string)
		if !ok {
			return false, nil
		}
		_, found := c.Attr(key)
		return found, nil
	}
	return false, fmt.Errorf("argument of type %T is not iterable", container)
}

// arithmetic applies + - * / % with Python numeric semantics: integer
// operands stay integers except for true division.
func arithmetic(op string, left, right interface{}) (interface{}, error) {
	if ls, ok := left.(string); ok && op == "+" {
		rs, ok := right.(string)
		if !ok {
			return nil, fmt.Errorf("can only concatenate str (not %T) to str", right)
		}
		return ls + rs, nil
	}
	if !udi.IsNumber(left) || !udi.IsNumber(right) {
		return nil, fmt.Errorf("unsupported operand types for %s: %T and %T", op, left, right)
	}

	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return float64(li) / float64(ri), nil
		case "%":
			if ri == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			m := li % ri
			if m != 0 && (m < 0) != (ri < 0) {
				m += ri
			}
			return m, nil
		}
		return nil, fmt.Errorf("unknown arithmetic operator: %s", op)
	}

	lf := cast.ToFloat64(left)
	rf := cast.ToFloat64(right)
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		m := math.Mod(lf, rf)
		if m != 0 && (m < 0) != (rf < 0) {
			m += rf
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator: %s", op)
}
