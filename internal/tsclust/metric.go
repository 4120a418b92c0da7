// Package tsclust clusters equal-length multichannel time series with k-means
// under Euclidean, DTW or soft-DTW geometry.
package tsclust

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Series is one time series laid out as [time][channel].
type Series = [][]float64

// Metric selects the distance and barycenter used by k-means.
type Metric string

const (
	Euclidean Metric = "euclidean"
	DTW       Metric = "dtw"
	SoftDTW   Metric = "softdtw"
)

// Metrics lists the supported metrics in display order.
var Metrics = []Metric{Euclidean, DTW, SoftDTW}

// ParseMetric accepts the metric names used on the command line.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euclidean", "euclid", "l2":
		return Euclidean, nil
	case "dtw":
		return DTW, nil
	case "softdtw", "soft-dtw", "soft_dtw":
		return SoftDTW, nil
	default:
		return "", fmt.Errorf("%w: %q (use euclidean, dtw or softdtw)", ErrUnknownMetric, s)
	}
}

// Params carries the metric-specific knobs.
type Params struct {
	// Gamma is the soft-DTW smoothing; must be > 0.
	Gamma float64
	// Window is a Sakoe-Chiba radius for DTW; 0 means unconstrained.
	Window int
}

// DefaultParams mirrors the defaults of common time-series k-means tooling.
func DefaultParams() Params { return Params{Gamma: 1.0} }

// Distance returns the distance between two series under m.
// Soft-DTW values are not a metric and may be negative.
func Distance(m Metric, a, b Series, p Params) (float64, error) {
	switch m {
	case Euclidean:
		return euclidean(a, b), nil
	case DTW:
		return dtwDistance(a, b, p.Window), nil
	case SoftDTW:
		return softDTW(a, b, gammaOf(p)), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
}

func gammaOf(p Params) float64 {
	if p.Gamma <= 0 {
		return 1.0
	}
	return p.Gamma
}

func euclidean(a, b Series) float64 {
	var s float64
	for t := range a {
		s += sqDist(a[t], b[t])
	}
	return math.Sqrt(s)
}

func sqDist(x, y []float64) float64 {
	d := floats.Distance(x, y, 2)
	return d * d
}

func cloneSeries(s Series) Series {
	out := make(Series, len(s))
	for t := range s {
		out[t] = append([]float64(nil), s[t]...)
	}
	return out
}
