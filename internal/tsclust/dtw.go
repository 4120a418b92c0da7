package tsclust

import (
	"math"
	"slices"

	"github.com/katalvlaran/lvlath/dtw"
)

// univariate reports whether every frame of s carries a single channel.
func univariate(s Series) bool {
	for _, f := range s {
		if len(f) != 1 {
			return false
		}
	}
	return len(s) > 0
}

func samples(s Series) []float64 {
	out := make([]float64, len(s))
	for i, f := range s {
		out[i] = f[0]
	}
	return out
}

// dtwOptions maps a Sakoe-Chiba radius onto the library options. lvlath takes
// -1 for an unconstrained band, and a band narrower than the length difference
// could never reach the last cell.
func dtwOptions(n, m, window int, withPath bool) *dtw.DTWOptions {
	w := -1
	if window > 0 {
		w = max(window, n-m, m-n)
	}
	return &dtw.DTWOptions{
		Window:     w,
		ReturnPath: withPath,
		MemoryMode: dtw.FullMatrix,
	}
}

// dtwAccumulated fills the (n+1)x(m+1) cumulative cost matrix of squared frame
// distances. It serves multichannel series, which lvlath does not accept.
func dtwAccumulated(a, b Series, window int) [][]float64 {
	n, m := len(a), len(b)
	acc := make([][]float64, n+1)
	for i := range acc {
		acc[i] = make([]float64, m+1)
		for j := range acc[i] {
			acc[i][j] = math.Inf(1)
		}
	}
	acc[0][0] = 0
	for i := 1; i <= n; i++ {
		lo, hi := 1, m
		if window > 0 {
			// scale the band for unequal lengths so the corner stays reachable
			center := int(math.Round(float64(i) * float64(m) / float64(n)))
			lo = max(1, center-window)
			hi = min(m, center+window)
		}
		for j := lo; j <= hi; j++ {
			best := math.Min(acc[i-1][j-1], math.Min(acc[i-1][j], acc[i][j-1]))
			acc[i][j] = sqDist(a[i-1], b[j-1]) + best
		}
	}
	return acc
}

// dtwDistance aligns univariate series with lvlath and falls back to the
// squared-cost recurrence for multichannel input.
func dtwDistance(a, b Series, window int) float64 {
	if univariate(a) && univariate(b) {
		d, _, err := dtw.DTW(samples(a), samples(b), dtwOptions(len(a), len(b), window, false))
		if err == nil {
			return d
		}
	}
	acc := dtwAccumulated(a, b, window)
	return math.Sqrt(acc[len(a)][len(b)])
}

// dtwPath returns the optimal alignment as (i, j) index pairs from (0,0) to
// (n-1,m-1) together with the DTW distance.
func dtwPath(a, b Series, window int) ([][2]int, float64) {
	if univariate(a) && univariate(b) {
		d, steps, err := dtw.DTW(samples(a), samples(b), dtwOptions(len(a), len(b), window, true))
		if err == nil && len(steps) > 0 {
			path := make([][2]int, len(steps))
			for k, st := range steps {
				path[k] = [2]int{st[0], st[1]}
			}
			if path[0] != [2]int{0, 0} {
				slices.Reverse(path)
			}
			return path, d
		}
	}
	acc := dtwAccumulated(a, b, window)
	i, j := len(a), len(b)
	path := [][2]int{{i - 1, j - 1}}
	for i > 1 || j > 1 {
		switch {
		case i == 1:
			j--
		case j == 1:
			i--
		default:
			diag, up, left := acc[i-1][j-1], acc[i-1][j], acc[i][j-1]
			switch {
			case diag <= up && diag <= left:
				i, j = i-1, j-1
			case up <= left:
				i--
			default:
				j--
			}
		}
		path = append(path, [2]int{i - 1, j - 1})
	}
	slices.Reverse(path)
	return path, math.Sqrt(acc[len(a)][len(b)])
}

// softmin computes -gamma * log(sum(exp(-x/gamma))) stably.
func softmin(a, b, c, gamma float64) float64 {
	a, b, c = -a/gamma, -b/gamma, -c/gamma
	mx := math.Max(a, math.Max(b, c))
	if math.IsInf(mx, -1) {
		return math.Inf(1)
	}
	s := math.Exp(a-mx) + math.Exp(b-mx) + math.Exp(c-mx)
	return -gamma * (math.Log(s) + mx)
}

// softDTWForward returns the padded (n+2)x(m+2) accumulated matrix R and the
// pairwise squared-distance matrix D (1-based, zero padded).
func softDTWForward(a, b Series, gamma float64) (r, d [][]float64) {
	n, m := len(a), len(b)
	r = make([][]float64, n+2)
	d = make([][]float64, n+2)
	for i := range r {
		r[i] = make([]float64, m+2)
		d[i] = make([]float64, m+2)
		for j := range r[i] {
			r[i][j] = math.Inf(1)
		}
	}
	r[0][0] = 0
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			d[i][j] = sqDist(a[i-1], b[j-1])
			r[i][j] = d[i][j] + softmin(r[i-1][j-1], r[i-1][j], r[i][j-1], gamma)
		}
	}
	return r, d
}

// softDTW is the soft-DTW discrepancy between a and b.
func softDTW(a, b Series, gamma float64) float64 {
	r, _ := softDTWForward(a, b, gamma)
	return r[len(a)][len(b)]
}

// softDTWGrad returns soft-DTW and its gradient with respect to the frames of a.
func softDTWGrad(a, b Series, gamma float64) (float64, Series) {
	n, m := len(a), len(b)
	r, d := softDTWForward(a, b, gamma)
	value := r[n][m]

	// backward pass over the expected alignment matrix
	for i := 1; i <= n; i++ {
		r[i][m+1] = math.Inf(-1)
	}
	for j := 1; j <= m; j++ {
		r[n+1][j] = math.Inf(-1)
	}
	r[n+1][m+1] = r[n][m]
	e := make([][]float64, n+2)
	for i := range e {
		e[i] = make([]float64, m+2)
	}
	e[n+1][m+1] = 1
	for j := m; j >= 1; j-- {
		for i := n; i >= 1; i-- {
			wa := math.Exp((r[i+1][j] - r[i][j] - d[i+1][j]) / gamma)
			wb := math.Exp((r[i][j+1] - r[i][j] - d[i][j+1]) / gamma)
			wc := math.Exp((r[i+1][j+1] - r[i][j] - d[i+1][j+1]) / gamma)
			e[i][j] = e[i+1][j]*wa + e[i][j+1]*wb + e[i+1][j+1]*wc
		}
	}

	grad := make(Series, n)
	for i := 0; i < n; i++ {
		grad[i] = make([]float64, len(a[i]))
		for j := 0; j < m; j++ {
			w := e[i+1][j+1]
			if w == 0 {
				continue
			}
			for c := range a[i] {
				grad[i][c] += 2 * w * (a[i][c] - b[j][c])
			}
		}
	}
	return value, grad
}
