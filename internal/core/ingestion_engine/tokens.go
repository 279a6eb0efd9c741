package ingestion_engine

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens approximates how many tokens the embedding model will count
// for text: the larger of 1.3 tokens per word and 1 token per 4 characters.
// It is a budget estimate, not a tokenizer.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text)

	byWords := (words*13 + 9) / 10 // ceil(words * 1.3)
	byChars := (chars + 3) / 4     // ceil(chars / 4)
	return max(byWords, byChars)
}
