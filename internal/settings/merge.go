// Package settings merges extension-declared default settings with user
// overrides. Merge order is fixed: defaults, then user, then session.
// Callers merge pairwise in that order.
package settings

// Merge combines two settings trees. Keys present in only one input pass
// through unchanged. Keys present in both are merged recursively when both
// values are maps; otherwise the source value replaces the target value
// entirely. Arrays are never merged element-wise: a source array replaces
// a target array wholesale.
//
// Merge never mutates its inputs and never fails. The result shares no
// map structure with either input.
func Merge(target, source map[string]any) map[string]any {
	merged := make(map[string]any, len(target)+len(source))
	for k, v := range target {
		merged[k] = cloneValue(v)
	}
	for k, sv := range source {
		tv, present := merged[k]
		tm, targetIsMap := tv.(map[string]any)
		sm, sourceIsMap := sv.(map[string]any)
		if present && targetIsMap && sourceIsMap {
			merged[k] = Merge(tm, sm)
			continue
		}
		merged[k] = cloneValue(sv)
	}
	return merged
}

// cloneValue deep-copies maps and slices so a merged tree never aliases
// either input. Scalars are returned as-is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		a := make([]any, len(val))
		for i, e := range val {
			a[i] = cloneValue(e)
		}
		return a
	default:
		return v
	}
}
