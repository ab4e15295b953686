package event

import "reflect"

// FilterArgCount passes deliveries carrying at least n arguments.
func FilterArgCount(n int) Filter {
	return func(args []any) bool {
		return len(args) >= n
	}
}

// FilterArg passes deliveries whose i-th argument is a T satisfying
// predicate. Missing or mistyped arguments fail the filter.
func FilterArg[T any](i int, predicate func(v T) bool) Filter {
	return func(args []any) bool {
		if i < 0 || i >= len(args) {
			return false
		}
		v, ok := args[i].(T)
		return ok && predicate(v)
	}
}

// FilterArgEquals passes deliveries whose i-th argument deep-equals want.
func FilterArgEquals(i int, want any) Filter {
	return func(args []any) bool {
		if i < 0 || i >= len(args) {
			return false
		}
		return reflect.DeepEqual(args[i], want)
	}
}

// FilterAnd combines multiple filters with AND logic.
// All filters must pass for the listener to run.
func FilterAnd(filters ...Filter) Filter {
	return func(args []any) bool {
		for _, f := range filters {
			if !f(args) {
				return false
			}
		}
		return true
	}
}

// FilterOr combines multiple filters with OR logic.
// At least one filter must pass for the listener to run.
func FilterOr(filters ...Filter) Filter {
	return func(args []any) bool {
		for _, f := range filters {
			if f(args) {
				return true
			}
		}
		return false
	}
}

// FilterNot negates a filter.
func FilterNot(filter Filter) Filter {
	return func(args []any) bool {
		return !filter(args)
	}
}

// FilterAll allows every delivery.
func FilterAll() Filter {
	return func(args []any) bool {
		return true
	}
}

// FilterNone blocks every delivery.
func FilterNone() Filter {
	return func(args []any) bool {
		return false
	}
}
