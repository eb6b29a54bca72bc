package engine

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// NormalizeNumber attempts numeric normalization of an operand. Native
// numbers pass through unchanged. Strings are parsed; when the declared unit
// is "%" or the string itself ends with "%", the percent sign is stripped
// and the parsed value divided by 100 ("2.00%" becomes 0.02). Anything else
// fails normalization, leaving the comparison to run on the raw values.
func NormalizeNumber(v any, unit string) (float64, bool) {
	if f, err := toFloat64(v); err == nil {
		return f, true
	}

	s, ok := v.(string)
	if !ok {
		return 0, false
	}

	s = strings.TrimSpace(s)
	if unit == "%" || strings.HasSuffix(s, "%") {
		s = strings.ReplaceAll(s, "%", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f / 100.0, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Compare evaluates the comparison DSL: it reports whether the compliance
// predicate op holds for the operands. Operators are case-insensitive;
// unknown operators and "expr" default to equality.
//
// Null override: when either operand is nil, eq/neq evaluate on the
// null-aware values and every other operator is not satisfied — missing
// data never silently passes a non-equality check.
//
// The prohibits operator is satisfied exactly when lhs is absent from rhs;
// presence of a forbidden value is the violation. The polarity is pinned by
// a regression test and must not be "fixed".
func Compare(op string, lhs, rhs any) (bool, error) {
	op = strings.ToLower(op)
	if op == "" {
		op = "eq"
	}

	if lhs == nil || rhs == nil {
		switch op {
		case "eq", "==":
			return equalValues(lhs, rhs), nil
		case "neq", "!=":
			return !equalValues(lhs, rhs), nil
		default:
			return false, nil
		}
	}

	switch op {
	case "eq", "==":
		return equalValues(lhs, rhs), nil

	case "neq", "!=":
		return !equalValues(lhs, rhs), nil

	case "lte", "le":
		return compareOrdered(lhs, rhs, func(c int) bool { return c <= 0 })

	case "gte", "ge":
		return compareOrdered(lhs, rhs, func(c int) bool { return c >= 0 })

	case "lt":
		return compareOrdered(lhs, rhs, func(c int) bool { return c < 0 })

	case "gt":
		return compareOrdered(lhs, rhs, func(c int) bool { return c > 0 })

	case "in":
		return memberOf(lhs, rhs)

	case "not_in":
		in, err := memberOf(lhs, rhs)
		if err != nil {
			return false, err
		}
		return !in, nil

	case "contains":
		return evaluateContains(lhs, rhs)

	case "prohibits":
		in, err := memberOf(lhs, rhs)
		if err != nil {
			return false, err
		}
		return !in, nil

	case "requires":
		return truthy(lhs), nil

	default:
		// Unknown operator or "expr": default to equality.
		return equalValues(lhs, rhs), nil
	}
}

// equalValues checks identity after numeric coercion, falling back to deep
// equality for non-numeric types.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	af, aErr := toFloat64(a)
	bf, bErr := toFloat64(b)
	if aErr == nil && bErr == nil {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

// compareOrdered applies an ordered comparison. Numeric comparison is
// preferred; two strings compare lexicographically; anything else is not
// orderable.
func compareOrdered(lhs, rhs any, pred func(int) bool) (bool, error) {
	lf, lErr := toFloat64(lhs)
	rf, rErr := toFloat64(rhs)
	if lErr == nil && rErr == nil {
		switch {
		case lf < rf:
			return pred(-1), nil
		case lf > rf:
			return pred(1), nil
		default:
			return pred(0), nil
		}
	}

	ls, lok := lhs.(string)
	rs, rok := rhs.(string)
	if lok && rok {
		return pred(strings.Compare(ls, rs)), nil
	}

	return false, fmt.Errorf("cannot order %T against %T", lhs, rhs)
}

// memberOf checks whether elem appears in list, which must be a slice or
// array.
func memberOf(elem, list any) (bool, error) {
	v := reflect.ValueOf(list)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false, fmt.Errorf("membership check requires slice or array, got %T", list)
	}

	for i := 0; i < v.Len(); i++ {
		if equalValues(elem, v.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

// evaluateContains: a sequence lhs contains rhs as an element; a string lhs
// contains a string rhs as a case-insensitive substring; anything else is
// false.
func evaluateContains(lhs, rhs any) (bool, error) {
	v := reflect.ValueOf(lhs)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		return memberOf(rhs, lhs)
	}

	ls, lok := lhs.(string)
	rs, rok := rhs.(string)
	if lok && rok {
		return strings.Contains(strings.ToLower(ls), strings.ToLower(rs)), nil
	}

	return false, nil
}

// truthy mirrors the loose truthiness the requires operator expects: nil,
// false, zero numbers, empty strings and empty collections are all falsy.
func truthy(v any) bool {
	if v == nil {
		return false
	}

	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	}

	if f, err := toFloat64(v); err == nil {
		return f != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}

	return true
}

// toFloat64 converts a numeric value to float64.
func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
