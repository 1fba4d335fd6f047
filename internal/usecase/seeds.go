package usecase

import (
	"context"
	"strings"

	"gonum.org/v1/gonum/floats"

	"museumtopics/internal/adapter/analyzer"
	"museumtopics/internal/domain"
	"museumtopics/internal/port"
)

// SeedTopicGuide holds keyword groups for anticipated themes. A document that
// mentions a group's keywords has its embedding pulled part of the way toward
// the group's own embedding before reduction; it is never assigned outright.
// The zero value and nil both mean "no steering".
type SeedTopicGuide struct {
	groups  [][]string
	phrases [][][]string
}

// NewSeedTopicGuide cleans every keyword like survey text. Entries that clean
// to nothing are dropped, as are groups left empty.
func NewSeedTopicGuide(groups [][]string, normalizer *analyzer.Normalizer) *SeedTopicGuide {
	if normalizer == nil {
		normalizer = analyzer.NewNormalizer()
	}
	g := &SeedTopicGuide{}
	for _, group := range groups {
		var kept []string
		var phrases [][]string
		for _, kw := range group {
			words := strings.Fields(normalizer.Clean(kw))
			if len(words) == 0 {
				continue
			}
			kept = append(kept, kw)
			phrases = append(phrases, words)
		}
		if len(phrases) == 0 {
			continue
		}
		g.groups = append(g.groups, kept)
		g.phrases = append(g.phrases, phrases)
	}
	return g
}

// Groups returns a copy of the keyword groups in their original spelling.
func (g *SeedTopicGuide) Groups() [][]string {
	if g == nil {
		return nil
	}
	out := make([][]string, len(g.groups))
	for i, group := range g.groups {
		out[i] = append([]string(nil), group...)
	}
	return out
}

func (g *SeedTopicGuide) Len() int {
	if g == nil {
		return 0
	}
	return len(g.groups)
}

func (g *SeedTopicGuide) Empty() bool {
	return g.Len() == 0
}

// Match returns the group with the most keyword hits in cleaned, or -1.
// Ties go to the earlier group.
func (g *SeedTopicGuide) Match(cleaned string) int {
	if g.Empty() {
		return -1
	}
	tokens := strings.Fields(cleaned)
	best, bestHits := -1, 0
	for i, phrases := range g.phrases {
		hits := 0
		for _, p := range phrases {
			hits += countPhrase(tokens, p)
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	return best
}

func countPhrase(tokens, phrase []string) int {
	n := 0
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, w := range phrase {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

// Steer moves each matched document's vector to (weight*doc + seed)/(weight+1)
// in place and returns how many documents moved. Seed groups are embedded by
// the same embedder as the documents, and only when something matched.
func (g *SeedTopicGuide) Steer(ctx context.Context, embedder port.Embedder, cleaned []string, vectors [][]float64, weight float64) (int, error) {
	if g.Empty() || len(cleaned) == 0 {
		return 0, nil
	}

	matches := make([]int, len(cleaned))
	matched := false
	for i, text := range cleaned {
		matches[i] = g.Match(text)
		if matches[i] >= 0 {
			matched = true
		}
	}
	if !matched {
		return 0, nil
	}

	texts := make([]string, len(g.phrases))
	for i, phrases := range g.phrases {
		words := make([]string, 0, len(phrases))
		for _, p := range phrases {
			words = append(words, strings.Join(p, " "))
		}
		texts[i] = strings.Join(words, " ")
	}
	raw, err := embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(raw) != len(texts) {
		return 0, domain.ModelUnavailable("embedder returned %d vectors for %d seed groups", len(raw), len(texts))
	}
	seeds := toFloat64(raw)

	moved := 0
	for i, group := range matches {
		if group < 0 {
			continue
		}
		if len(seeds[group]) != len(vectors[i]) {
			return moved, domain.ModelUnavailable("seed embedding has dimension %d, documents have %d", len(seeds[group]), len(vectors[i]))
		}
		floats.Scale(weight, vectors[i])
		floats.Add(vectors[i], seeds[group])
		floats.Scale(1/(weight+1), vectors[i])
		moved++
	}
	return moved, nil
}

func toFloat64(vectors [][]float32) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v))
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out
}
