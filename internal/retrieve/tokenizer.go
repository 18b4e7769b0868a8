package retrieve

import (
	"strings"
	"unicode"
)

// Tokenize lowercases the text and splits it into letter/digit runs.
// Deliberately simple: no stemming, no stopword list, so the lexical
// channel stays deterministic and language-agnostic. Its job is to catch
// exact named entities and numbers that dense embeddings blur.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
