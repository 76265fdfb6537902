// Package setutil provides small set-algebra helpers over identifier slices.
// All functions preserve the encounter order of their first argument and never
// mutate their inputs.
package setutil

// Dedupe returns values with duplicates removed, keeping the first occurrence.
// Zero values are dropped.
func Dedupe[T comparable](values []T) []T {
	var zero T
	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, value := range values {
		if value == zero {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

// Diff returns the elements of a that are not present in b.
func Diff[T comparable](a, b []T) []T {
	exclude := make(map[T]struct{}, len(b))
	for _, value := range b {
		exclude[value] = struct{}{}
	}
	result := make([]T, 0, len(a))
	for _, value := range Dedupe(a) {
		if _, ok := exclude[value]; ok {
			continue
		}
		result = append(result, value)
	}
	return result
}

// Intersect returns the elements of a that are also present in b.
func Intersect[T comparable](a, b []T) []T {
	include := make(map[T]struct{}, len(b))
	for _, value := range b {
		include[value] = struct{}{}
	}
	result := make([]T, 0, len(a))
	for _, value := range Dedupe(a) {
		if _, ok := include[value]; !ok {
			continue
		}
		result = append(result, value)
	}
	return result
}

// Union returns the deduplicated concatenation of a and b, a first.
func Union[T comparable](a, b []T) []T {
	merged := make([]T, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return Dedupe(merged)
}

// Contains reports whether values includes target.
func Contains[T comparable](values []T, target T) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
