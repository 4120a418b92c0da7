package tsclust

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// PairwiseDistances returns the symmetric n x n distance matrix of X under m.
// Soft-DTW uses the normalized form sdtw(x,y) - (sdtw(x,x)+sdtw(y,y))/2.
func PairwiseDistances(X []Series, m Metric, p Params) (*mat.SymDense, error) {
	n := len(X)
	out := mat.NewSymDense(n, nil)
	var self []float64
	if m == SoftDTW {
		self = make([]float64, n)
		for i := range X {
			self[i] = softDTW(X[i], X[i], gammaOf(p))
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := Distance(m, X[i], X[j], p)
			if err != nil {
				return nil, err
			}
			if m == SoftDTW {
				d -= (self[i] + self[j]) / 2
			}
			out.SetSym(i, j, d)
		}
	}
	return out, nil
}

// Silhouette is the mean silhouette coefficient of labels over X under m.
// Samples alone in their cluster score 0.
func Silhouette(X []Series, labels []int, m Metric, p Params) (float64, error) {
	n := len(X)
	if len(labels) != n {
		return 0, fmt.Errorf("silhouette: %d labels for %d series", len(labels), n)
	}
	distinct := map[int]int{}
	for _, l := range labels {
		distinct[l]++
	}
	if len(distinct) < 2 || len(distinct) > n-1 {
		return 0, fmt.Errorf("%w: got %d labels for %d samples", ErrSilhouetteLabels, len(distinct), n)
	}
	dist, err := PairwiseDistances(X, m, p)
	if err != nil {
		return 0, err
	}
	keys := make([]int, 0, len(distinct))
	for l := range distinct {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	var total float64
	for i := 0; i < n; i++ {
		sums := map[int]float64{}
		for j := 0; j < n; j++ {
			if j != i {
				sums[labels[j]] += dist.At(i, j)
			}
		}
		own := distinct[labels[i]]
		if own <= 1 {
			continue
		}
		a := sums[labels[i]] / float64(own-1)
		b := math.Inf(1)
		for _, l := range keys {
			if l == labels[i] {
				continue
			}
			b = math.Min(b, sums[l]/float64(distinct[l]))
		}
		den := math.Max(a, b)
		if den > 0 && !math.IsInf(den, 0) {
			total += (b - a) / den
		}
	}
	return total / float64(n), nil
}
