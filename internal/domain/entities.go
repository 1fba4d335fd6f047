package domain

import "strings"

// OutlierTopicID marks documents that belong to no dense-enough cluster.
const OutlierTopicID = -1

// CombinedColumn identifies the run over all text columns joined per row.
const CombinedColumn = "combined"

// MissingCategory is the engagement bucket for blank or null answers.
const MissingCategory = "missing"

// Document is one surviving survey answer inside a single run.
type Document struct {
	RowIndex    int
	Column      string
	RawText     string
	CleanedText string
	Embedding   []float32
}

type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

type Topic struct {
	ID             int       `json:"topic_id"`
	Label          string    `json:"label"`
	Keywords       []Keyword `json:"top_keywords"`
	DocumentCount  int       `json:"document_count"`
	Column         string    `json:"source_column"`
	LowConfidence  bool      `json:"low_confidence,omitempty"`
	Representative string    `json:"representative,omitempty"`
}

// IsOutlier reports whether t is the unclustered bucket.
func (t Topic) IsOutlier() bool {
	return t.ID == OutlierTopicID
}

// KeywordTerms returns the keyword terms in rank order.
func (t Topic) KeywordTerms() []string {
	terms := make([]string, len(t.Keywords))
	for i, k := range t.Keywords {
		terms[i] = k.Term
	}
	return terms
}

type TopicAssignment struct {
	RowIndex int    `json:"original_row_index"`
	TopicID  int    `json:"topic_id"`
	Column   string `json:"source_column"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// EngagementFrequency is the ordered tally of the ordinal engagement question.
type EngagementFrequency struct {
	Categories []CategoryCount `json:"categories"`
}

// Count returns the tally for category, or zero if it was never seen.
func (e EngagementFrequency) Count(category string) int {
	for _, c := range e.Categories {
		if c.Category == category {
			return c.Count
		}
	}
	return 0
}

// Map returns the tally keyed by category.
func (e EngagementFrequency) Map() map[string]int {
	m := make(map[string]int, len(e.Categories))
	for _, c := range e.Categories {
		m[c.Category] = c.Count
	}
	return m
}

// Total returns the number of answers tallied, missing included.
func (e EngagementFrequency) Total() int {
	total := 0
	for _, c := range e.Categories {
		total += c.Count
	}
	return total
}

// RunResult holds everything one pipeline run produced for a single column
// (or for the combined pass).
type RunResult struct {
	Column      string            `json:"source_column"`
	State       string            `json:"state"`
	Topics      []Topic           `json:"topics"`
	Assignments []TopicAssignment `json:"assignments"`
	Excluded    []int             `json:"excluded_rows,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	Err         error             `json:"-"`
}

// ClusteredTopics returns the topics that are not the outlier bucket.
func (r RunResult) ClusteredTopics() []Topic {
	out := make([]Topic, 0, len(r.Topics))
	for _, t := range r.Topics {
		if !t.IsOutlier() {
			out = append(out, t)
		}
	}
	return out
}

// OutlierCount returns the number of documents labeled as outliers.
func (r RunResult) OutlierCount() int {
	for _, t := range r.Topics {
		if t.IsOutlier() {
			return t.DocumentCount
		}
	}
	return 0
}

// RunFailure records a run that contributed nothing to the result.
type RunFailure struct {
	Column string `json:"source_column"`
	Stage  string `json:"stage"`
	Err    error  `json:"-"`
}

func (f RunFailure) Error() string {
	var b strings.Builder
	b.WriteString(f.Column)
	if f.Stage != "" {
		b.WriteString(" (")
		b.WriteString(f.Stage)
		b.WriteString(")")
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f RunFailure) Unwrap() error {
	return f.Err
}

// PipelineResult is the immutable outcome of one analysis invocation.
type PipelineResult struct {
	Topics      []Topic              `json:"topics"`
	Assignments []TopicAssignment    `json:"assignments"`
	PerColumn   map[string]RunResult `json:"per_column"`
	Columns     []string             `json:"columns"`
	Combined    RunResult            `json:"combined"`
	Engagement  EngagementFrequency  `json:"engagement"`
	Failures    []RunFailure         `json:"-"`
}

// Run returns the run for column, including the combined pass.
func (p *PipelineResult) Run(column string) (RunResult, bool) {
	if column == CombinedColumn {
		return p.Combined, p.Combined.Column != ""
	}
	r, ok := p.PerColumn[column]
	return r, ok
}

// Failed reports whether any run failed.
func (p *PipelineResult) Failed() bool {
	return len(p.Failures) > 0
}
