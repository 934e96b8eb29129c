package utils

// Truncate shortens s to at most maxLen runes, appending "..." when it cut
// anything. Counting runes keeps multi-byte text such as Cyrillic intact.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
