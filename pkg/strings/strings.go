package strings

import (
	"strings"
)

// MinTruncateLen is the smallest maxLen Truncate accepts. Anything shorter
// would not leave room for content plus "...".
const MinTruncateLen = 4

// Truncate collapses a string to a single line of at most maxLen
// characters, appending "..." when it was cut. Slicing is rune-based so
// multi-byte characters never get split.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
