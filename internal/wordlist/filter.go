package wordlist

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Normalize lower-cases words, drops entries that are not single words and
// removes duplicates while keeping the first occurrence.
func Normalize(words []string) []string {
	cleaned := lo.FilterMap(words, func(word string, _ int) (string, bool) {
		word = strings.ToLower(strings.TrimSpace(word))
		return word, isSingleWord(word)
	})
	return lo.Uniq(cleaned)
}

// IsASCII reports whether every byte of word is 7-bit.
func IsASCII(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isSingleWord(word string) bool {
	if word == "" {
		return false
	}
	return !strings.ContainsFunc(word, unicode.IsSpace)
}
