package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits cleaned text into keyword candidates, dropping stop words
// and single-letter tokens.
type Tokenizer struct {
	stopwords *StopWordPolicy
	minLen    int
}

// NewTokenizer creates a new Tokenizer. A nil policy means the default one.
func NewTokenizer(stopwords *StopWordPolicy) *Tokenizer {
	if stopwords == nil {
		stopwords = DefaultStopWords()
	}
	return &Tokenizer{
		stopwords: stopwords,
		minLen:    2,
	}
}

// Tokenize splits text into tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < t.minLen {
			continue
		}
		if t.stopwords.Contains(word) {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// StopWords returns the policy the tokenizer filters with.
func (t *Tokenizer) StopWords() *StopWordPolicy {
	return t.stopwords
}

// splitWords splits text into runs of letters.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r)
	})
}
