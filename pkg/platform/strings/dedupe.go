// Package strings provides string slice utilities.
package strings

// Dedupe removes exact duplicates and empty strings from a slice, keeping the
// first occurrence of each value. Comparison is case-sensitive and values are
// not trimmed.
//
// Example:
//
//	Dedupe([]string{"a@x.io", "", "A@x.io", "a@x.io"})
//	// Returns: []string{"a@x.io", "A@x.io"}
func Dedupe(values []string) []string {
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
