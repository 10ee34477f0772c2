package toc

import (
	"strconv"
	"strings"
)

// Lookup walks a decoded JSON value along a dot separated path such as
// "data.items" or "chapters.0.url". Numeric segments index arrays. An empty
// path yields nothing.
func Lookup(v any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	cur := v
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}

	return cur, cur != nil
}

// LookupString is Lookup restricted to string leaves.
func LookupString(v any, path string) (string, bool) {
	raw, ok := Lookup(v, path)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}
