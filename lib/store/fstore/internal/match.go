package internal

// Match reports whether candidate structurally satisfies pattern.
// Both documents must be normalized.
//
// Every key of the pattern must exist in the candidate with a matching value:
//   - mappings match recursively (pattern keys missing in the candidate fail)
//   - sequences match if every pattern element equals some candidate element
//     (order is irrelevant, the candidate may hold more elements)
//   - scalars match if they are equal
//   - values of different kinds never match
//
// An empty pattern matches every candidate.
func Match(candidate, pattern map[string]any) bool {
	for key, want := range pattern {
		got, ok := candidate[key]
		if !ok || !matchValue(got, want) {
			return false
		}
	}
	return true
}

func matchValue(got, want any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		return ok && Match(g, w)
	case []any:
		g, ok := got.([]any)
		if !ok {
			return false
		}
		for _, elem := range w {
			if !contains(g, elem) {
				return false
			}
		}
		return true
	default:
		return Equal(got, want)
	}
}

func contains(list []any, v any) bool {
	for _, e := range list {
		if Equal(e, v) {
			return true
		}
	}
	return false
}
