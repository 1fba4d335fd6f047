// Package reduction projects document embeddings into a low-dimensional space
// before density clustering.
package reduction

import (
	"context"
	"log/slog"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"museumtopics/internal/domain"
)

// PCA reduces embeddings to their first Dims principal components.
// Corpora smaller than MinDocuments, or too small for the requested Dims,
// are passed through unchanged.
type PCA struct {
	Dims         int
	MinDocuments int
}

func NewPCA(dims, minDocuments int) *PCA {
	if dims <= 0 {
		dims = 5
	}
	return &PCA{Dims: dims, MinDocuments: minDocuments}
}

// Reduce returns an N×Dims projection, or the input when reduction is not
// worthwhile.
func (p *PCA) Reduce(ctx context.Context, vectors [][]float64) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, domain.ModelUnavailable("reduction: vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	if n < p.MinDocuments || n <= p.Dims || dim <= p.Dims {
		slog.Debug("skipping reduction", "documents", n, "dimension", dim, "target", p.Dims)
		return passthrough(vectors), nil
	}

	data := make([]float64, 0, n*dim)
	for _, v := range vectors {
		data = append(data, v...)
	}
	X := mat.NewDense(n, dim, data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		slog.Warn("principal component analysis did not converge, skipping reduction", "documents", n)
		return passthrough(vectors), nil
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	k := p.Dims
	_, cols := vecs.Dims()
	if k > cols {
		k = cols
	}

	means := make([]float64, dim)
	for j := 0; j < dim; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, X), nil)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			X.Set(i, j, X.At(i, j)-means[j])
		}
	}

	var proj mat.Dense
	proj.Mul(X, vecs.Slice(0, dim, 0, k))

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = mat.Row(nil, i, &proj)
	}
	canonicalizeSigns(out)
	return out, nil
}

func passthrough(vectors [][]float64) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		out[i] = append([]float64(nil), v...)
	}
	return out
}

// canonicalizeSigns flips each component so its largest-magnitude score is
// positive. SVD signs are arbitrary; this keeps repeated runs comparable.
func canonicalizeSigns(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	for j := range rows[0] {
		best := 0.0
		for i := range rows {
			if abs(rows[i][j]) > abs(best) {
				best = rows[i][j]
			}
		}
		if best < 0 {
			for i := range rows {
				rows[i][j] = -rows[i][j]
			}
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
