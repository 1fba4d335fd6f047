package usecase

import (
	"sort"

	"museumtopics/internal/adapter/analyzer"
	"museumtopics/internal/port"
)

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TopWordFrequencies counts tokens over raw answers after cleaning and
// stop-word removal and returns the n most frequent. n <= 0 returns all.
func TopWordFrequencies(values []*string, normalizer *analyzer.Normalizer, tokenizer port.Tokenizer, n int) []WordCount {
	counts := make(map[string]int)
	for _, v := range values {
		if analyzer.IsNull(v) {
			continue
		}
		for _, tok := range tokenizer.Tokenize(normalizer.Clean(*v)) {
			counts[tok]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
