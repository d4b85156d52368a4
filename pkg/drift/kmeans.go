package drift

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDegenerateClusters is returned when the values cannot be split into the
// requested number of groups, e.g. every window has the same variability.
var ErrDegenerateClusters = errors.New("values do not separate into distinct clusters")

// Clusters is the result of a 1D k-means run
type Clusters struct {
	// Labels holds the cluster index of each input value
	Labels []int

	// Centers holds the mean of each cluster
	Centers []float64

	// Iterations is the number of Lloyd iterations performed
	Iterations int
}

const maxKMeansIterations = 300

// KMeans1D groups scalar values into k clusters using Lloyd's algorithm.
// Centers are seeded at evenly spaced order statistics so the result is
// deterministic. Label numbering carries no meaning beyond grouping.
func KMeans1D(values []float64, k int) (*Clusters, error) {
	n := len(values)
	if k < 1 {
		return nil, fmt.Errorf("number of clusters must be positive, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("%w: %d clusters requested for %d values", ErrDegenerateClusters, k, n)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	distinct := 1
	for i := 1; i < n; i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	if distinct < k {
		return nil, fmt.Errorf("%w: only %d distinct values for %d clusters", ErrDegenerateClusters, distinct, k)
	}

	centers := make([]float64, k)
	for i := range centers {
		if k == 1 {
			centers[i] = sorted[n/2]
			continue
		}
		centers[i] = sorted[i*(n-1)/(k-1)]
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iterations := 0
	for iterations < maxKMeansIterations {
		iterations++

		// Assignment step
		changed := false
		for i, v := range values {
			best := 0
			bestDist := math.Inf(1)
			for j, c := range centers {
				if d := math.Abs(v - c); d < bestDist {
					bestDist = d
					best = j
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		// Update step; empty clusters keep their previous center
		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[labels[i]] += v
			counts[labels[i]]++
		}
		for j := range centers {
			if counts[j] > 0 {
				centers[j] = sums[j] / float64(counts[j])
			}
		}
	}

	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	for j, c := range counts {
		if c == 0 {
			return nil, fmt.Errorf("%w: cluster %d is empty", ErrDegenerateClusters, j)
		}
	}

	return &Clusters{Labels: labels, Centers: centers, Iterations: iterations}, nil
}
