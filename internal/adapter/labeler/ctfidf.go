// Package labeler names clusters by their most distinctive terms.
package labeler

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/e-gun/nlp"
	"gonum.org/v1/gonum/floats"

	"museumtopics/internal/adapter/analyzer"
	"museumtopics/internal/domain"
)

// Input is one run's clustered documents. All slices are parallel.
type Input struct {
	Column string
	// Cleaned texts feed keyword extraction.
	Cleaned []string
	// Raw texts, when present, are used for the representative answer.
	Raw    []string
	Points [][]float64
	Labels []int
}

// CTFIDF ranks terms with class-based TF-IDF: every cluster is treated as
// one document, so terms common to all clusters sink and terms peculiar to
// one cluster rise.
type CTFIDF struct {
	tokenizer          *analyzer.Tokenizer
	topKeywords        int
	labelWords         int
	lowConfidenceBelow int
}

func NewCTFIDF(tokenizer *analyzer.Tokenizer, topKeywords, labelWords, lowConfidenceBelow int) *CTFIDF {
	if tokenizer == nil {
		tokenizer = analyzer.NewTokenizer(nil)
	}
	if topKeywords < 1 {
		topKeywords = 10
	}
	if labelWords < 1 {
		labelWords = 4
	}
	return &CTFIDF{
		tokenizer:          tokenizer,
		topKeywords:        topKeywords,
		labelWords:         labelWords,
		lowConfidenceBelow: lowConfidenceBelow,
	}
}

// Label returns one topic per cluster id in ascending order. Outliers are
// ignored.
func (l *CTFIDF) Label(ctx context.Context, in Input) ([]domain.Topic, error) {
	if len(in.Labels) != len(in.Cleaned) {
		return nil, fmt.Errorf("labeler: %d labels for %d documents", len(in.Labels), len(in.Cleaned))
	}

	members := make(map[int][]int)
	for row, id := range in.Labels {
		if id == domain.OutlierTopicID {
			continue
		}
		members[id] = append(members[id], row)
	}
	if len(members) == 0 {
		return nil, nil
	}
	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	classDocs := make([]string, len(ids))
	for c, id := range ids {
		var b strings.Builder
		for _, row := range members[id] {
			for _, tok := range l.tokenizer.Tokenize(in.Cleaned[row]) {
				b.WriteString(tok)
				b.WriteByte(' ')
			}
		}
		classDocs[c] = b.String()
	}

	weights, err := l.classWeights(classDocs)
	if err != nil {
		return nil, err
	}

	topics := make([]domain.Topic, 0, len(ids))
	for c, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keywords := l.topTerms(weights[c])
		topics = append(topics, domain.Topic{
			ID:             id,
			Label:          l.label(id, keywords),
			Keywords:       keywords,
			DocumentCount:  len(members[id]),
			Column:         in.Column,
			LowConfidence:  len(members[id]) < l.lowConfidenceBelow,
			Representative: representative(in, members[id]),
		})
	}
	return topics, nil
}

// classWeights returns, per class, the c-TF-IDF weight of every term:
// tf(t,c) * log(1 + A/f(t)) with tf L1-normalised per class, A the average
// number of terms per class, and f(t) the frequency of t over all classes.
func (l *CTFIDF) classWeights(classDocs []string) ([]map[string]float64, error) {
	out := make([]map[string]float64, len(classDocs))
	for i := range out {
		out[i] = make(map[string]float64)
	}

	empty := true
	for _, d := range classDocs {
		if strings.TrimSpace(d) != "" {
			empty = false
			break
		}
	}
	if empty {
		return out, nil
	}

	vectoriser := nlp.NewCountVectoriser(l.tokenizer.StopWords().Words()...)
	counts, err := vectoriser.FitTransform(classDocs...)
	if err != nil {
		return nil, fmt.Errorf("labeler: vectorising clusters: %w", err)
	}

	vocab := make([]string, len(vectoriser.Vocabulary))
	for term, idx := range vectoriser.Vocabulary {
		vocab[idx] = term
	}

	terms, classes := counts.Dims()
	classTotals := make([]float64, classes)
	termTotals := make([]float64, terms)
	for t := 0; t < terms; t++ {
		for c := 0; c < classes; c++ {
			v := counts.At(t, c)
			classTotals[c] += v
			termTotals[t] += v
		}
	}
	avg := floats.Sum(classTotals) / float64(classes)

	for c := 0; c < classes; c++ {
		if classTotals[c] == 0 {
			continue
		}
		for t := 0; t < terms; t++ {
			v := counts.At(t, c)
			if v == 0 || termTotals[t] == 0 {
				continue
			}
			tf := v / classTotals[c]
			out[c][vocab[t]] = tf * math.Log(1+avg/termTotals[t])
		}
	}
	return out, nil
}

func (l *CTFIDF) topTerms(weights map[string]float64) []domain.Keyword {
	stop := l.tokenizer.StopWords()
	keywords := make([]domain.Keyword, 0, len(weights))
	for term, w := range weights {
		if stop.Contains(term) || utf8.RuneCountInString(term) < 2 {
			continue
		}
		keywords = append(keywords, domain.Keyword{Term: term, Weight: w})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Weight != keywords[j].Weight {
			return keywords[i].Weight > keywords[j].Weight
		}
		return keywords[i].Term < keywords[j].Term
	})
	if len(keywords) > l.topKeywords {
		keywords = keywords[:l.topKeywords]
	}
	return keywords
}

func (l *CTFIDF) label(id int, keywords []domain.Keyword) string {
	if len(keywords) == 0 {
		return fmt.Sprintf("topic_%d", id)
	}
	n := l.labelWords
	if n > len(keywords) {
		n = len(keywords)
	}
	terms := make([]string, n)
	for i := 0; i < n; i++ {
		terms[i] = keywords[i].Term
	}
	return strings.Join(terms, "_")
}

// representative picks the member nearest the cluster centroid.
func representative(in Input, rows []int) string {
	text := func(row int) string {
		if row < len(in.Raw) && strings.TrimSpace(in.Raw[row]) != "" {
			return in.Raw[row]
		}
		return in.Cleaned[row]
	}
	if len(rows) == 0 {
		return ""
	}
	if len(in.Points) != len(in.Cleaned) || len(in.Points[rows[0]]) == 0 {
		return text(rows[0])
	}

	centroid := make([]float64, len(in.Points[rows[0]]))
	for _, row := range rows {
		floats.Add(centroid, in.Points[row])
	}
	floats.Scale(1/float64(len(rows)), centroid)

	best, bestDist := rows[0], math.Inf(1)
	for _, row := range rows {
		if d := floats.Distance(in.Points[row], centroid, 2); d < bestDist {
			best, bestDist = row, d
		}
	}
	return text(best)
}
