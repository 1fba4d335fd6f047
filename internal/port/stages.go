package port

import "context"

// Reducer projects N×D embeddings to N×k with k much smaller than D,
// keeping similar documents close.
type Reducer interface {
	Reduce(ctx context.Context, vectors [][]float64) ([][]float64, error)
}

// Clusterer assigns one label per vector. Label -1 marks an outlier.
type Clusterer interface {
	Cluster(ctx context.Context, vectors [][]float64) ([]int, error)
}
