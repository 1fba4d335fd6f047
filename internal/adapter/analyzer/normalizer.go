package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizedColumn holds the survivors of one column in parallel slices.
// Indices[i] is the original row of Texts[i].
type NormalizedColumn struct {
	Indices  []int
	Texts    []string
	Excluded []int
}

// Len returns the number of surviving documents.
func (c NormalizedColumn) Len() int {
	return len(c.Texts)
}

// Normalizer cleans free-text survey answers. It is stateless and safe for
// concurrent use.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeColumn cleans every cell of a column. Null, NaN and blank cells,
// and cells with nothing left after cleaning, are excluded and their row
// indices reported separately.
func (n *Normalizer) NormalizeColumn(values []*string) NormalizedColumn {
	out := NormalizedColumn{
		Indices: make([]int, 0, len(values)),
		Texts:   make([]string, 0, len(values)),
	}
	for i, v := range values {
		if IsNull(v) {
			out.Excluded = append(out.Excluded, i)
			continue
		}
		cleaned := n.Clean(*v)
		if cleaned == "" {
			out.Excluded = append(out.Excluded, i)
			continue
		}
		out.Indices = append(out.Indices, i)
		out.Texts = append(out.Texts, cleaned)
	}
	return out
}

// Clean case-folds text, strips punctuation and digits, and collapses
// whitespace.
func (n *Normalizer) Clean(text string) string {
	text = norm.NFKC.String(text)
	// cases.Caser keeps state between calls, so each call gets its own.
	text = cases.Fold().String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			// digits are dropped without leaving a gap
		case unicode.IsLetter(r) || unicode.Is(unicode.Mn, r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsNull reports whether a cell carries no answer.
func IsNull(v *string) bool {
	if v == nil {
		return true
	}
	s := strings.TrimSpace(*v)
	return s == "" || strings.EqualFold(s, "nan")
}
