package port

import "context"

// Embedder maps cleaned text to fixed-size semantic vectors.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	// The same text always yields the same vector for a given model.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// Pinger is implemented by embedders backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingCache stores vectors keyed by model and text.
type EmbeddingCache interface {
	Get(model string, texts []string) (map[int][]float32, error)
	Put(model string, texts []string, vectors [][]float32) error
	Close() error
}

// ProgressFunc reports how many of total texts have been embedded.
type ProgressFunc func(done, total int)
