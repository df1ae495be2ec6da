package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file into a generic value tree.
// A missing file is not an error: the radio must boot with factory-empty
// configuration, so absence yields an empty mapping. Malformed YAML is an
// error because it means the file exists but cannot mean anything.
func Load(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if tree == nil {
		return map[string]any{}, nil
	}
	return tree, nil
}

// asMapping normalizes the two mapping shapes yaml.v3 produces. Mappings
// with only string keys decode to map[string]any; decode maps and bank
// directories are keyed by integers and decode to map[any]any.
func asMapping(v any) (map[any]any, bool) {
	switch m := v.(type) {
	case map[any]any:
		return m, true
	case map[string]any:
		out := make(map[any]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	}
	return nil, false
}

// get looks up a string key in a generic mapping value.
func get(v any, key string) (any, bool) {
	m, ok := asMapping(v)
	if !ok {
		return nil, false
	}
	val, ok := m[key]
	return val, ok
}

// asInt reports whether v is an integer scalar and returns its value.
// yaml.v3 yields int for in-range integers and int64/uint64 for large ones.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

// asNumber reports whether v is an integer or floating-point scalar.
// Timing fields accept either.
func asNumber(v any) (float64, bool) {
	if n, ok := asInt(v); ok {
		return float64(n), true
	}
	if f, ok := v.(float64); ok {
		return f, true
	}
	return 0, false
}

// sortedKeys returns mapping keys in a deterministic order: integer keys
// ascending, then everything else by its string form. YAML mappings lose
// document order in Go maps; ascending index order is the contract the rest
// of the appliance enumerates banks and decode maps in anyway.
func sortedKeys(m map[any]any) []any {
	keys := make([]any, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aInt := asInt(keys[i])
		b, bInt := asInt(keys[j])
		if aInt && bInt {
			return a < b
		}
		if aInt != bInt {
			return aInt
		}
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}
