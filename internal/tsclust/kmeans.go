package tsclust

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
)

// Result is the outcome of fitting k-means: one label per series and one centroid per cluster.
type Result struct {
	Labels     []int
	Centroids  []Series
	Inertia    float64
	Iterations int
}

// Sizes returns the member count of every cluster, indexed by label.
func (r *Result) Sizes() []int {
	out := make([]int, len(r.Centroids))
	for _, l := range r.Labels {
		if l >= 0 && l < len(out) {
			out[l]++
		}
	}
	return out
}

// KMeans is time-series k-means with k-means++ seeding.
type KMeans struct {
	K      int
	Metric Metric
	Params Params
	// MaxIter bounds the assign/update rounds; Tol stops early on inertia change.
	MaxIter int
	Tol     float64
	// NInit is the number of successful initialisations; the lowest inertia wins.
	NInit int
	// MaxIterBarycenter bounds DBA and soft-DTW barycenter refinement.
	MaxIterBarycenter int
	Seed              int64
	Logger            *slog.Logger
}

// NewKMeans returns a KMeans with the usual defaults.
func NewKMeans(k int, metric Metric) *KMeans {
	return &KMeans{
		K:                 k,
		Metric:            metric,
		Params:            DefaultParams(),
		MaxIter:           50,
		Tol:               1e-6,
		NInit:             1,
		MaxIterBarycenter: 100,
	}
}

// minAttempts bounds re-initialisation after empty clusters.
const minAttempts = 10

// Fit clusters X. Every series must have the same shape and no missing values.
func (km *KMeans) Fit(ctx context.Context, X []Series) (*Result, error) {
	if err := km.validate(X); err != nil {
		return nil, err
	}
	log := km.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	nInit := max(km.NInit, 1)
	rng := rand.New(rand.NewSource(km.Seed))

	var best *Result
	successes := 0
	for attempt := 0; attempt < max(nInit, minAttempts) && successes < nInit; attempt++ {
		res, err := km.fitOnce(ctx, X, rng)
		if errors.Is(err, ErrEmptyCluster) {
			log.Debug("empty cluster, re-initialising", "attempt", attempt+1, "k", km.K)
			continue
		}
		if err != nil {
			return nil, err
		}
		successes++
		log.Debug("k-means run finished", "k", km.K, "metric", string(km.Metric), "inertia", res.Inertia, "iterations", res.Iterations)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w (k=%d, metric=%s)", ErrEmptyCluster, km.K, km.Metric)
	}
	return best, nil
}

func (km *KMeans) validate(X []Series) error {
	switch km.Metric {
	case Euclidean, DTW, SoftDTW:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMetric, km.Metric)
	}
	if km.K < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, km.K)
	}
	if len(X) < km.K {
		return fmt.Errorf("%w: %d series for %d clusters", ErrTooFewSeries, len(X), km.K)
	}
	T, C := len(X[0]), 0
	if T > 0 {
		C = len(X[0][0])
	}
	if T == 0 || C == 0 {
		return fmt.Errorf("%w: empty series", ErrUnequalLength)
	}
	for i, s := range X {
		if len(s) != T {
			return fmt.Errorf("%w: series %d has %d steps, expected %d", ErrUnequalLength, i, len(s), T)
		}
		for _, frame := range s {
			if len(frame) != C {
				return fmt.Errorf("%w: series %d has %d channels, expected %d", ErrUnequalLength, i, len(frame), C)
			}
			for _, v := range frame {
				if math.IsNaN(v) {
					return fmt.Errorf("%w: series %d", ErrMissingValues, i)
				}
			}
		}
	}
	return nil
}

func (km *KMeans) fitOnce(ctx context.Context, X []Series, rng *rand.Rand) (*Result, error) {
	centers, err := km.seed(X, rng)
	if err != nil {
		return nil, err
	}
	maxIter := max(km.MaxIter, 1)
	labels := make([]int, len(X))
	oldInertia := math.Inf(1)
	res := &Result{}
	for it := 0; it < maxIter; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inertia, err := km.assign(X, centers, labels)
		if err != nil {
			return nil, err
		}
		centers = km.update(X, centers, labels)
		res.Iterations = it + 1
		res.Inertia = inertia
		if math.Abs(oldInertia-inertia) < km.Tol {
			break
		}
		oldInertia = inertia
	}
	res.Labels = labels
	res.Centroids = centers
	return res, nil
}

// assign writes the nearest center of every series into labels and returns the inertia.
func (km *KMeans) assign(X []Series, centers []Series, labels []int) (float64, error) {
	counts := make([]int, len(centers))
	var inertia float64
	for i, s := range X {
		bestK, bestD := 0, math.Inf(1)
		for k, c := range centers {
			d, err := Distance(km.Metric, s, c, km.Params)
			if err != nil {
				return 0, err
			}
			if d < bestD {
				bestK, bestD = k, d
			}
		}
		labels[i] = bestK
		counts[bestK]++
		if km.Metric == SoftDTW {
			inertia += bestD
		} else {
			inertia += bestD * bestD
		}
	}
	for _, c := range counts {
		if c == 0 {
			return 0, ErrEmptyCluster
		}
	}
	return inertia / float64(len(X)), nil
}

func (km *KMeans) update(X []Series, centers []Series, labels []int) []Series {
	out := make([]Series, len(centers))
	for k := range centers {
		var members []Series
		for i, l := range labels {
			if l == k {
				members = append(members, X[i])
			}
		}
		switch km.Metric {
		case DTW:
			out[k] = DBA(members, centers[k], km.MaxIterBarycenter, km.Tol, km.Params.Window)
		case SoftDTW:
			out[k] = SoftDTWBarycenter(members, centers[k], gammaOf(km.Params), km.MaxIterBarycenter, km.Tol)
		default:
			out[k] = EuclideanBarycenter(members)
		}
	}
	return out
}

// seed picks initial centers with k-means++: the first uniformly, the rest
// with probability proportional to the squared distance to the nearest chosen center.
func (km *KMeans) seed(X []Series, rng *rand.Rand) ([]Series, error) {
	centers := []Series{cloneSeries(X[rng.Intn(len(X))])}
	nearest := make([]float64, len(X))
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}
	for len(centers) < km.K {
		last := centers[len(centers)-1]
		var total float64
		for i, s := range X {
			d, err := km.seedDistance(s, last)
			if err != nil {
				return nil, err
			}
			if d < nearest[i] {
				nearest[i] = d
			}
			total += nearest[i]
		}
		next := rng.Intn(len(X))
		if total > 0 {
			r := rng.Float64() * total
			for i, w := range nearest {
				r -= w
				if w > 0 && r <= 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, cloneSeries(X[next]))
	}
	return centers, nil
}

// seedDistance is the squared distance used for k-means++ weights. Soft-DTW
// seeds with DTW since soft-DTW values can be negative.
func (km *KMeans) seedDistance(a, b Series) (float64, error) {
	m := km.Metric
	if m == SoftDTW {
		m = DTW
	}
	d, err := Distance(m, a, b, km.Params)
	return d * d, err
}
