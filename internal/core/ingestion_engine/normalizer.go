package ingestion_engine

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minCleanLen is the shortest embedding text accepted; anything shorter means
// the prefix chain ate real content and the input is kept as-is.
const minCleanLen = 3

var (
	placeholderRe = regexp.MustCompile(`(?i)§\s*None\s*\.\s*`)

	// Structural prefixes, removed in this order from the start of the text.
	prefixRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Art\.\s*\d+[a-z]*(\([^)]+\))?\.\s*§\s*\d+[a-z]*(\([^)]+\))?\.\s*`),
		regexp.MustCompile(`(?i)^Art\.\s*\d+[a-z]*(\([^)]+\))?\.\s*`),
		regexp.MustCompile(`(?i)^Artykuł\s*\d+[a-z]*(\([^)]+\))?\.\s*`),
		regexp.MustCompile(`(?i)^§\s*\d+[a-z]*(\([^)]+\))?\.\s*`),
	}

	enumeratorRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^[0-9]+[a-z]?[.)]\s*`),
		regexp.MustCompile(`(?i)^[a-z]+\)\s*`),
	}
)

// StripPlaceholderMarker removes every "§ None." marker and collapses
// whitespace. Article, paragraph and point numbering is preserved, so the
// result is what gets displayed.
func StripPlaceholderMarker(text string) string {
	if text == "" {
		return ""
	}
	return collapseSpaces(placeholderRe.ReplaceAllString(text, ""))
}

// StripStructuralPrefixes removes the leading "Art. N. § M." citation, any
// placeholder markers and a leading point enumerator, then capitalizes the
// first letter. If fewer than three characters survive, text is returned
// unchanged.
func StripStructuralPrefixes(text string) string {
	if text == "" {
		return ""
	}
	cleaned := strings.TrimSpace(text)
	for _, re := range prefixRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = placeholderRe.ReplaceAllString(cleaned, "")
	for _, re := range enumeratorRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = capitalizeFirst(collapseSpaces(cleaned))

	if utf8.RuneCountInString(cleaned) < minCleanLen {
		return text
	}
	return cleaned
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// capitalizeFirst upper-cases a leading Latin or Polish letter.
func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || !isPolishLetter(unicode.ToLower(r)) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func isPolishLetter(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	return strings.ContainsRune("ąćęłńóśźż", r)
}
