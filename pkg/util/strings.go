package util

// RemoveDuplicates keeps the first occurrence of each value in order, dropping
// zero values and anything listed in ignore.
func RemoveDuplicates[T comparable](values []T, ignore ...T) []T {
	var zero T
	seen := map[T]bool{zero: true}

	for _, value := range ignore {
		seen[value] = true
	}

	var list []T
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			list = append(list, value)
		}
	}
	return list
}

// TrimString cuts s to at most length runes.
func TrimString(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}

	return string(runes[:length])
}
