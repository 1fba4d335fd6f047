package analyzer

import (
	"reflect"
	"testing"
)

func strp(s string) *string { return &s }

func TestNormalizer_Clean(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		input    string
		expected string
	}{
		{"The Photographs MOVED me deeply!", "the photographs moved me deeply"},
		{"  lots   of\tspace \n here ", "lots of space here"},
		{"1945 was the year", "was the year"},
		{"room42b", "roomb"},
		{"rock&roll", "rock roll"},
		{"self-reflection", "self reflection"},
		{"don't forget", "don t forget"},
		{"Straße", "strasse"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		got := n.Clean(tt.input)
		if got != tt.expected {
			t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizer_NormalizeColumn(t *testing.T) {
	n := NewNormalizer()

	values := []*string{
		strp("The photographs moved me deeply"),
		nil,
		strp("   "),
		strp("NaN"),
		strp("Children's shoes."),
		strp("2024"),
	}

	col := n.NormalizeColumn(values)

	if !reflect.DeepEqual(col.Indices, []int{0, 4}) {
		t.Errorf("expected surviving indices [0 4], got %v", col.Indices)
	}
	if !reflect.DeepEqual(col.Texts, []string{"the photographs moved me deeply", "children s shoes"}) {
		t.Errorf("unexpected cleaned texts: %v", col.Texts)
	}
	if !reflect.DeepEqual(col.Excluded, []int{1, 2, 3, 5}) {
		t.Errorf("expected excluded [1 2 3 5], got %v", col.Excluded)
	}
	if col.Len() != 2 {
		t.Errorf("expected Len 2, got %d", col.Len())
	}
}

func TestNormalizer_EmptyColumn(t *testing.T) {
	col := NewNormalizer().NormalizeColumn(nil)
	if col.Len() != 0 || len(col.Excluded) != 0 {
		t.Errorf("expected empty result, got %+v", col)
	}
}

func TestStopWordPolicy(t *testing.T) {
	p := NewStopWordPolicy("Not at all", "Holocaust")

	for _, w := range []string{"the", "and", "museum", "exhibit", "visit", "moved", "holocaust", "not", "all"} {
		if !p.Contains(w) {
			t.Errorf("expected %q to be a stop word", w)
		}
	}
	for _, w := range []string{"photographs", "children", "history"} {
		if p.Contains(w) {
			t.Errorf("did not expect %q to be a stop word", w)
		}
	}

	words := p.Words()
	if len(words) != p.Len() {
		t.Errorf("Words() returned %d entries, Len() = %d", len(words), p.Len())
	}
	for i := 1; i < len(words); i++ {
		if words[i-1] > words[i] {
			t.Fatalf("Words() not sorted at %d: %q > %q", i, words[i-1], words[i])
		}
	}
}

func TestDefaultStopWords_Shared(t *testing.T) {
	if DefaultStopWords() != DefaultStopWords() {
		t.Error("expected the default policy to be built once")
	}
	if DefaultStopWords().Contains("holocaust") {
		t.Error("extras must not leak into the default policy")
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(nil)

	tokens := tok.Tokenize("the photographs in the museum moved me deeply")
	if !reflect.DeepEqual(tokens, []string{"photographs"}) {
		t.Errorf("expected [photographs], got %v", tokens)
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer(NewStopWordPolicy())

	tokens := tok.Tokenize("x y war z")
	if !reflect.DeepEqual(tokens, []string{"war"}) {
		t.Errorf("expected [war], got %v", tokens)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer(nil)

	if tokens := tok.Tokenize(""); len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 2},
		{"hello-world", 2},
		{"café au lait", 3},
		{"", 0},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}
