package analyzer

import (
	"sort"
	"strings"
	"sync"
)

// englishStopWords is the scikit-learn English list.
var englishStopWords = []string{
	"a", "about", "above", "across", "after", "afterwards", "again", "against",
	"all", "almost", "alone", "along", "already", "also", "although", "always",
	"am", "among", "amongst", "amoungst", "amount", "an", "and", "another",
	"any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are",
	"around", "as", "at", "back", "be", "became", "because", "become",
	"becomes", "becoming", "been", "before", "beforehand", "behind", "being",
	"below", "beside", "besides", "between", "beyond", "bill", "both",
	"bottom", "but", "by", "call", "can", "cannot", "cant", "co", "con",
	"could", "couldnt", "cry", "de", "describe", "detail", "do", "done",
	"down", "due", "during", "each", "eg", "eight", "either", "eleven", "else",
	"elsewhere", "empty", "enough", "etc", "even", "ever", "every", "everyone",
	"everything", "everywhere", "except", "few", "fifteen", "fifty", "fill",
	"find", "fire", "first", "five", "for", "former", "formerly", "forty",
	"found", "four", "from", "front", "full", "further", "get", "give", "go",
	"had", "has", "hasnt", "have", "he", "hence", "her", "here", "hereafter",
	"hereby", "herein", "hereupon", "hers", "herself", "him", "himself", "his",
	"how", "however", "hundred", "i", "ie", "if", "in", "inc", "indeed",
	"interest", "into", "is", "it", "its", "itself", "keep", "last", "latter",
	"latterly", "least", "less", "ltd", "made", "many", "may", "me",
	"meanwhile", "might", "mill", "mine", "more", "moreover", "most", "mostly",
	"move", "much", "must", "my", "myself", "name", "namely", "neither",
	"never", "nevertheless", "next", "nine", "no", "nobody", "none", "noone",
	"nor", "not", "nothing", "now", "nowhere", "of", "off", "often", "on",
	"once", "one", "only", "onto", "or", "other", "others", "otherwise", "our",
	"ours", "ourselves", "out", "over", "own", "part", "per", "perhaps",
	"please", "put", "rather", "re", "same", "see", "seem", "seemed",
	"seeming", "seems", "serious", "several", "she", "should", "show", "side",
	"since", "sincere", "six", "sixty", "so", "some", "somehow", "someone",
	"something", "sometime", "sometimes", "somewhere", "still", "such",
	"system", "take", "ten", "than", "that", "the", "their", "them",
	"themselves", "then", "thence", "there", "thereafter", "thereby",
	"therefore", "therein", "thereupon", "these", "they", "thick", "thin",
	"third", "this", "those", "though", "three", "through", "throughout",
	"thru", "thus", "to", "together", "too", "top", "toward", "towards",
	"twelve", "twenty", "two", "un", "under", "until", "up", "upon", "us",
	"very", "via", "was", "we", "well", "were", "what", "whatever", "when",
	"whence", "whenever", "where", "whereafter", "whereas", "whereby",
	"wherein", "whereupon", "wherever", "whether", "which", "while", "whither",
	"who", "whoever", "whole", "whom", "whose", "why", "will", "with",
	"within", "without", "would", "yet", "you", "your", "yours", "yourself",
	"yourselves",
}

// museumStopWords are answers to the engagement question and filler that
// shows up in nearly every visitor response.
var museumStopWords = []string{
	"somewhat", "very", "deeply", "moved", "felt", "experienced", "people",
	"just", "like", "s",
	"exhibit", "exhibits", "exhibition", "exhibitions", "museum", "museums",
	"visit", "visited", "visiting", "visitor", "visitors", "gallery",
	"display", "displays", "really", "thing", "things",
}

// StopWordPolicy is an immutable set of terms never used as keywords.
type StopWordPolicy struct {
	words map[string]struct{}
}

var defaultPolicy = sync.OnceValue(func() *StopWordPolicy {
	return NewStopWordPolicy()
})

// DefaultStopWords returns the process-wide built-in policy. It is built on
// first use and never mutated afterwards.
func DefaultStopWords() *StopWordPolicy {
	return defaultPolicy()
}

// NewStopWordPolicy builds the English and museum lists plus extra. Extra
// entries are cleaned like survey text; multi-word entries contribute each
// word.
func NewStopWordPolicy(extra ...string) *StopWordPolicy {
	p := &StopWordPolicy{
		words: make(map[string]struct{}, len(englishStopWords)+len(museumStopWords)+len(extra)),
	}
	for _, w := range englishStopWords {
		p.words[w] = struct{}{}
	}
	for _, w := range museumStopWords {
		p.words[w] = struct{}{}
	}
	n := NewNormalizer()
	for _, e := range extra {
		for _, w := range strings.Fields(n.Clean(e)) {
			p.words[w] = struct{}{}
		}
	}
	return p
}

// Contains reports whether term is excluded.
func (p *StopWordPolicy) Contains(term string) bool {
	_, ok := p.words[term]
	return ok
}

// Len returns the number of excluded terms.
func (p *StopWordPolicy) Len() int {
	return len(p.words)
}

// Words returns the excluded terms sorted.
func (p *StopWordPolicy) Words() []string {
	out := make([]string, 0, len(p.words))
	for w := range p.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
