package loader

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// DeepMerge recursively merges src into dst.
// Values in src override values in dst.
// Maps are merged recursively; other types are replaced.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[key] = DeepMerge(nil, srcMap)
			continue
		}
		dst[key] = srcVal
	}
	return dst
}

// SetByPath sets a value in a nested map using a dot-separated path,
// creating intermediate maps as needed.
func SetByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// GetByPath retrieves a value from a nested map using a dot-separated path.
func GetByPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Flatten returns the leaves of a nested map keyed by dot-separated path.
func Flatten(data map[string]any) map[string]any {
	out := make(map[string]any)
	flatten("", data, out)
	return out
}

func flatten(prefix string, data map[string]any, out map[string]any) {
	for k, v := range data {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(path, m, out)
			continue
		}
		out[path] = v
	}
}

// Diff returns the sorted paths whose leaf values differ between a and b.
func Diff(a, b map[string]any) []string {
	fa, fb := Flatten(a), Flatten(b)
	var changed []string
	for k, va := range fa {
		vb, ok := fb[k]
		if !ok || !equalValue(va, vb) {
			changed = append(changed, k)
		}
	}
	for k := range fb {
		if _, ok := fa[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func equalValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
