package reduction

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museumtopics/internal/domain"
)

// planeData lies on a 2-D plane embedded in 6 dimensions.
func planeData(n int) [][]float64 {
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		a := float64(i%5) - 2
		b := float64(i/5) - 2
		out[i] = []float64{a, b, a + b, a - b, 2 * a, 0.5 * b}
	}
	return out
}

func TestPCA_ReducesToDims(t *testing.T) {
	p := NewPCA(2, 10)
	out, err := p.Reduce(context.Background(), planeData(25))
	require.NoError(t, err)
	require.Len(t, out, 25)
	for _, row := range out {
		assert.Len(t, row, 2)
	}
}

func TestPCA_PreservesDistancesOnPlane(t *testing.T) {
	in := planeData(25)
	out, err := NewPCA(2, 10).Reduce(context.Background(), in)
	require.NoError(t, err)

	dist := func(a, b []float64) float64 {
		var s float64
		for i := range a {
			s += (a[i] - b[i]) * (a[i] - b[i])
		}
		return math.Sqrt(s)
	}
	// The data is exactly rank two, so two components keep all pairwise distances.
	for _, pair := range [][2]int{{0, 24}, {3, 17}, {6, 7}} {
		assert.InDelta(t, dist(in[pair[0]], in[pair[1]]), dist(out[pair[0]], out[pair[1]]), 1e-6)
	}
}

func TestPCA_Deterministic(t *testing.T) {
	p := NewPCA(3, 10)
	a, err := p.Reduce(context.Background(), planeData(20))
	require.NoError(t, err)
	b, err := p.Reduce(context.Background(), planeData(20))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPCA_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		pca  *PCA
		in   [][]float64
	}{
		{"below minimum documents", NewPCA(2, 30), planeData(25)},
		{"fewer documents than dims", NewPCA(5, 0), planeData(4)},
		{"dimension not above target", NewPCA(6, 0), planeData(25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.pca.Reduce(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestPCA_Empty(t *testing.T) {
	out, err := NewPCA(2, 0).Reduce(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPCA_RaggedInput(t *testing.T) {
	_, err := NewPCA(2, 0).Reduce(context.Background(), [][]float64{{1, 2, 3}, {1, 2}})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestPCA_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPCA(2, 0).Reduce(ctx, planeData(25))
	assert.ErrorIs(t, err, context.Canceled)
}
