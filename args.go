package filestorage

import (
	"fmt"
	"strconv"
)

// Args carries coerced constructor arguments for a handler or filter
// factory. Values come from the settings resolver: strings, ints, lists
// ([]any), sets (Set) or maps (map[string]any).
type Args map[string]any

// Has reports whether the argument was provided.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns a string argument. Missing keys return "".
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: expected a string, got %T", key, v)
	}
	return s, nil
}

// StringDefault returns a string argument, or def when absent.
func (a Args) StringDefault(key, def string) (string, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.String(key)
}

// Int returns an integer argument. Missing keys return 0.
func (a Args) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("argument %q: expected an integer, got %q", key, n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("argument %q: expected an integer, got %T", key, v)
	}
}

// IntDefault returns an integer argument, or def when absent.
func (a Args) IntDefault(key string, def int) (int, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.Int(key)
}

// Bool returns a boolean argument. Settings carry booleans as strings
// ("true", "false", "1", "0"); missing keys return false.
func (a Args) Bool(key string) (bool, error) {
	v, ok := a[key]
	if !ok {
		return false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("argument %q: expected a boolean, got %q", key, b)
		}
		return parsed, nil
	case int:
		return b != 0, nil
	default:
		return false, fmt.Errorf("argument %q: expected a boolean, got %T", key, v)
	}
}

// StringSlice returns a list or set argument as strings. A single string
// value is treated as a one-element list. Missing keys return nil.
func (a Args) StringSlice(key string) ([]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, el := range list {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("argument %q: expected strings, got %T", key, el)
			}
			out = append(out, s)
		}
		return out, nil
	case Set:
		out := make([]string, 0, len(list))
		for _, el := range list {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("argument %q: expected strings, got %T", key, el)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %q: expected a list of strings, got %T", key, v)
	}
}

// Set is an unordered collection literal from settings, e.g. {'a', 'b'}.
// Element order follows the literal's spelling.
type Set []any
