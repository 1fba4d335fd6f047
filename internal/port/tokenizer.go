package port

// Tokenizer turns cleaned text into keyword candidates.
type Tokenizer interface {
	Tokenize(text string) []string
}
