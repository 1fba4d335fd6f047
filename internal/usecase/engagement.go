package usecase

import (
	"sort"
	"strings"

	"museumtopics/internal/adapter/analyzer"
	"museumtopics/internal/domain"
)

// TallyEngagement counts answers to the ordinal engagement question. Answers
// are compared trimmed and case-insensitively; the first spelling seen is the
// one reported. Expected categories are always listed, in the given order and
// with their configured spelling, even when nobody chose them. Other answers
// follow by descending count, and the missing bucket comes last.
func TallyEngagement(values []*string, expected []string) domain.EngagementFrequency {
	type bucket struct {
		name  string
		count int
		order int
	}
	buckets := make(map[string]*bucket)
	for i, e := range expected {
		key := strings.ToLower(strings.TrimSpace(e))
		if key == "" {
			continue
		}
		if _, ok := buckets[key]; !ok {
			buckets[key] = &bucket{name: strings.TrimSpace(e), order: i}
		}
	}

	missing := 0
	var observed []*bucket
	for _, v := range values {
		if analyzer.IsNull(v) {
			missing++
			continue
		}
		name := strings.TrimSpace(*v)
		key := strings.ToLower(name)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: name, order: -1}
			buckets[key] = b
			observed = append(observed, b)
		}
		b.count++
	}

	var fixed []*bucket
	for _, b := range buckets {
		if b.order >= 0 {
			fixed = append(fixed, b)
		}
	}
	sort.Slice(fixed, func(i, j int) bool { return fixed[i].order < fixed[j].order })
	sort.SliceStable(observed, func(i, j int) bool {
		if observed[i].count != observed[j].count {
			return observed[i].count > observed[j].count
		}
		return observed[i].name < observed[j].name
	})

	out := domain.EngagementFrequency{
		Categories: make([]domain.CategoryCount, 0, len(fixed)+len(observed)+1),
	}
	for _, b := range fixed {
		out.Categories = append(out.Categories, domain.CategoryCount{Category: b.name, Count: b.count})
	}
	for _, b := range observed {
		out.Categories = append(out.Categories, domain.CategoryCount{Category: b.name, Count: b.count})
	}
	out.Categories = append(out.Categories, domain.CategoryCount{Category: domain.MissingCategory, Count: missing})
	return out
}
