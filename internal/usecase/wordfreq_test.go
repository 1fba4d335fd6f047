package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"museumtopics/internal/adapter/analyzer"
)

func TestTopWordFrequencies(t *testing.T) {
	values := []*string{
		sp("The shoes, the SHOES!"),
		sp("Letters and shoes"),
		nil,
		sp("nan"),
		sp("letters home"),
	}
	got := TopWordFrequencies(values, analyzer.NewNormalizer(), analyzer.NewTokenizer(nil), 2)
	assert.Equal(t, []WordCount{{Word: "shoes", Count: 3}, {Word: "letters", Count: 2}}, got)

	all := TopWordFrequencies(values, analyzer.NewNormalizer(), analyzer.NewTokenizer(nil), 0)
	assert.Len(t, all, 3)
	assert.Equal(t, WordCount{Word: "home", Count: 1}, all[2])
}
