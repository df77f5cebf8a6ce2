// Package budget allocates a fixed token budget across named context
// categories and compresses chunks to keep the assembled prompt within it.

package budget

import "strings"

// Estimate provides a rough token count for text.
// Uses a simple heuristic: ~4 characters per token for English/code.
// Actual tokenization varies by model, but this is close enough for
// budget accounting where only relative sizes matter.
func Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))

	// Whitespace-heavy text has fewer tokens per character.
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}
	return estimated
}
