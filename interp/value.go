package interp

import "fmt"

// Func is a host function exposed to mode code. Arguments arrive already
// converted to the package's Go value vocabulary.
type Func func(args ...any) (any, error)

// Callable is an opaque function bound inside the interpreter.
type Callable interface {
	// Engine reports the engine that produced the callable.
	Engine() string
}

// Object is an attribute bag materialized as an object in the interpreter.
// Values may be any supported value, including Funcs and nested Objects.
type Object map[string]any

// Ref names a global binding. Passed as an argument to Call or as a value
// to Set, it resolves to the interpreter's own value for that name.
type Ref string

// ToFloat converts a numeric value produced by an engine to float64.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, fmt.Errorf("expected number, got None")
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// ToInt converts a numeric value to int, truncating toward zero.
func ToInt(v any) (int, error) {
	f, err := ToFloat(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ToSlice converts a sequence value to []any.
func ToSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case []int:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, nil
	case []int64:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, nil
	case []float64:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("expected sequence, got None")
	default:
		return nil, fmt.Errorf("expected sequence, got %T", v)
	}
}
