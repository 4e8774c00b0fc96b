package gateway

import (
	"fmt"
)

// positional wraps the raw argument list.
type positional []any

func (a positional) present(i int) bool {
	return i < len(a) && a[i] != nil
}

// scalar reads argument i as an integer. Vectors yield their first element,
// or 0 when empty; fractions are truncated.
func (a positional) scalar(i int) (int, error) {
	switch v := a[i].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []float64:
		if len(v) == 0 {
			return 0, nil
		}
		return int(v[0]), nil
	case []int:
		if len(v) == 0 {
			return 0, nil
		}
		return v[0], nil
	}
	return 0, fmt.Errorf("%w: parameter %d is %T", ErrNotNumeric, i+1, a[i])
}

func (a positional) scalarOr(i, def int) (int, error) {
	if !a.present(i) {
		return def, nil
	}
	return a.scalar(i)
}

// vector reads argument i as an integer vector; absent gives nil.
func (a positional) vector(i int) ([]int, error) {
	if !a.present(i) {
		return nil, nil
	}
	switch v := a[i].(type) {
	case []int:
		return append([]int(nil), v...), nil
	case []float64:
		out := make([]int, len(v))
		for k, x := range v {
			out[k] = int(x)
		}
		return out, nil
	case float64, int, int64:
		s, err := a.scalar(i)
		return []int{s}, err
	}
	return nil, fmt.Errorf("%w: parameter %d is %T", ErrNotNumeric, i+1, a[i])
}
