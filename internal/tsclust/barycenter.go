package tsclust

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// EuclideanBarycenter is the frame-wise arithmetic mean of the series.
func EuclideanBarycenter(X []Series) Series {
	if len(X) == 0 {
		return nil
	}
	out := make(Series, len(X[0]))
	for t := range out {
		out[t] = make([]float64, len(X[0][t]))
		for _, s := range X {
			floats.Add(out[t], s[t])
		}
		floats.Scale(1/float64(len(X)), out[t])
	}
	return out
}

// DBA refines init by DTW barycenter averaging: every iteration aligns each
// series to the current barycenter and averages the frames mapped to each
// barycenter position. It stops after maxIter rounds or when the summed
// squared DTW cost changes by less than tol.
func DBA(X []Series, init Series, maxIter int, tol float64, window int) Series {
	if len(X) == 0 {
		return init
	}
	if init == nil {
		init = EuclideanBarycenter(X)
	}
	bary := cloneSeries(init)
	prev := math.Inf(1)
	for it := 0; it < maxIter; it++ {
		sums := make(Series, len(bary))
		counts := make([]float64, len(bary))
		for t := range sums {
			sums[t] = make([]float64, len(bary[t]))
		}
		var cost float64
		for _, s := range X {
			path, d := dtwPath(bary, s, window)
			cost += d * d
			for _, ij := range path {
				floats.Add(sums[ij[0]], s[ij[1]])
				counts[ij[0]]++
			}
		}
		for t := range bary {
			if counts[t] > 0 {
				floats.ScaleTo(bary[t], 1/counts[t], sums[t])
			}
		}
		if math.Abs(prev-cost) < tol {
			break
		}
		prev = cost
	}
	return bary
}

// SoftDTWBarycenter minimises the mean soft-DTW discrepancy to X with L-BFGS,
// starting from init (the Euclidean mean when nil).
func SoftDTWBarycenter(X []Series, init Series, gamma float64, maxIter int, tol float64) Series {
	if len(X) == 0 {
		return init
	}
	if init == nil {
		init = EuclideanBarycenter(X)
	}
	T, C := len(init), len(init[0])
	unflat := func(x []float64) Series {
		z := make(Series, T)
		for t := 0; t < T; t++ {
			z[t] = x[t*C : (t+1)*C]
		}
		return z
	}
	w := 1 / float64(len(X))
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			z := unflat(x)
			var f float64
			for _, s := range X {
				f += w * softDTW(z, s, gamma)
			}
			return f
		},
		Grad: func(grad, x []float64) {
			z := unflat(x)
			for i := range grad {
				grad[i] = 0
			}
			for _, s := range X {
				_, g := softDTWGrad(z, s, gamma)
				for t := 0; t < T; t++ {
					floats.AddScaled(grad[t*C:(t+1)*C], w, g[t])
				}
			}
		},
	}
	x0 := make([]float64, 0, T*C)
	for _, frame := range init {
		x0 = append(x0, frame...)
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: tol,
	}
	// a failed line search still reports the best point reached
	res, _ := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if res == nil || len(res.X) != len(x0) || floats.HasNaN(res.X) {
		return cloneSeries(init)
	}
	return cloneSeries(unflat(res.X))
}
