// Package clustering groups reduced document vectors by density.
package clustering

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"museumtopics/internal/domain"
)

// Density is a DBSCAN clusterer. When Epsilon is zero the neighbourhood
// radius is chosen from the data as the Quantile of every point's core
// distance, so no cluster count or radius has to be tuned by hand.
type Density struct {
	MinClusterSize int
	MinSamples     int
	Quantile       float64
	Epsilon        float64
}

func NewDensity(minClusterSize, minSamples int, quantile, epsilon float64) *Density {
	if minClusterSize < 2 {
		minClusterSize = 2
	}
	if minSamples < 1 {
		minSamples = 1
	}
	if quantile <= 0 || quantile > 1 {
		quantile = 0.6
	}
	return &Density{
		MinClusterSize: minClusterSize,
		MinSamples:     minSamples,
		Quantile:       quantile,
		Epsilon:        epsilon,
	}
}

// Cluster returns one label per point. Labels are numbered from 0 by
// descending cluster size; domain.OutlierTopicID marks noise.
func (d *Density) Cluster(ctx context.Context, points [][]float64) ([]int, error) {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = domain.OutlierTopicID
	}
	if n < d.MinClusterSize {
		return labels, nil
	}

	dist, err := distanceMatrix(ctx, points)
	if err != nil {
		return nil, err
	}

	k := d.MinSamples
	if k > n-1 {
		k = n - 1
	}
	core := coreDistances(dist, k)

	eps := d.Epsilon
	if eps <= 0 {
		eps = quantile(core, d.Quantile)
	}
	slog.Debug("density clustering", "points", n, "epsilon", eps, "min_samples", k)

	isCore := make([]bool, n)
	for i, c := range core {
		isCore[i] = c <= eps
	}

	const unvisited = -2
	raw := make([]int, n)
	for i := range raw {
		raw[i] = unvisited
	}
	next := 0
	for i := 0; i < n; i++ {
		if raw[i] != unvisited || !isCore[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := next
		next++
		raw[i] = id
		queue := []int{i}
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if !isCore[p] {
				continue
			}
			for q := 0; q < n; q++ {
				if raw[q] != unvisited || dist[p][q] > eps {
					continue
				}
				raw[q] = id
				queue = append(queue, q)
			}
		}
	}

	return relabel(raw, next, d.MinClusterSize), nil
}

func distanceMatrix(ctx context.Context, points [][]float64) ([][]float64, error) {
	n := len(points)
	dim := len(points[0])
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i, p := range points {
		if len(p) != dim {
			return nil, domain.ModelUnavailable("clustering: point %d has dimension %d, expected %d", i, len(p), dim)
		}
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < n; j++ {
			v := floats.Distance(points[i], points[j], 2)
			dist[i][j] = v
			dist[j][i] = v
		}
	}
	return dist, nil
}

// coreDistances is the distance from each point to its k-th nearest neighbour.
func coreDistances(dist [][]float64, k int) []float64 {
	n := len(dist)
	core := make([]float64, n)
	row := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		row = row[:0]
		for j := 0; j < n; j++ {
			if j != i {
				row = append(row, dist[i][j])
			}
		}
		sort.Float64s(row)
		if k == 0 || len(row) == 0 {
			core[i] = 0
			continue
		}
		core[i] = row[k-1]
	}
	return core
}

func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// relabel drops clusters below minSize and renumbers the rest by descending
// size, ties broken by first member row.
func relabel(raw []int, count, minSize int) []int {
	type cluster struct {
		id, size, first int
	}
	clusters := make([]cluster, count)
	for i := range clusters {
		clusters[i] = cluster{id: i, first: -1}
	}
	for row, id := range raw {
		if id < 0 {
			continue
		}
		clusters[id].size++
		if clusters[id].first < 0 {
			clusters[id].first = row
		}
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].size != clusters[j].size {
			return clusters[i].size > clusters[j].size
		}
		return clusters[i].first < clusters[j].first
	})

	mapping := make(map[int]int, count)
	next := 0
	for _, c := range clusters {
		if c.size < minSize {
			continue
		}
		mapping[c.id] = next
		next++
	}

	out := make([]int, len(raw))
	for row, id := range raw {
		if newID, ok := mapping[id]; ok {
			out[row] = newID
		} else {
			out[row] = domain.OutlierTopicID
		}
	}
	return out
}
