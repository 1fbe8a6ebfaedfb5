package value

import "strings"

// LooseEqual is the equality used by the task checker: values that both
// coerce to numbers compare numerically, everything else compares by its
// rendered string. Error values therefore equal their literal text.
func LooseEqual(a, b Value) bool {
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			return x == y
		}
	}
	return a.String() == b.String()
}

// EqualFold is LooseEqual with case-insensitive string comparison, used by
// lookups and criteria.
func EqualFold(a, b Value) bool {
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			return x == y
		}
	}
	return strings.EqualFold(a.String(), b.String())
}

// Compare orders a against b and returns -1, 0 or 1. When both sides read
// as numbers (blank counts as 0, booleans as 1/0) the comparison is numeric,
// otherwise it is a case-sensitive string comparison.
func Compare(a, b Value) int {
	if x, ok := orderNumber(a); ok {
		if y, ok := orderNumber(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}

func orderNumber(v Value) (float64, bool) {
	switch v.kind {
	case KindEmpty:
		return 0, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return v.AsNumber()
}
