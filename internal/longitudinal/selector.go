package longitudinal

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// Score is the quality of the clustering obtained with K clusters.
type Score struct {
	K          int
	Silhouette float64
}

// ResultFunc observes every fitted clustering during a sweep.
type ResultFunc func(k int, ds *cohort.Dataset, res *tsclust.Result) error

// ChooseK clusters ds for every k in [2, maxClusters) and scores each labeling.
// The scores are returned in k order; picking a k is left to the caller.
func (d *Driver) ChooseK(ctx context.Context, ds *cohort.Dataset, maxClusters int, metric tsclust.Metric, onResult ResultFunc) ([]Score, error) {
	var scores []Score
	for k := 2; k < maxClusters; k++ {
		if err := ctx.Err(); err != nil {
			return scores, err
		}
		res, err := d.Cluster(ctx, ds, k, metric)
		if err != nil {
			return scores, fmt.Errorf("k=%d: %w", k, err)
		}
		s, err := d.Score(ds.Series, res.Labels, metric)
		if err != nil {
			return scores, fmt.Errorf("score k=%d: %w", k, err)
		}
		d.Logger.Info("silhouette", "domain", ds.Domain, "metric", string(metric), "k", k, "score", s)
		scores = append(scores, Score{K: k, Silhouette: s})
		if onResult != nil {
			if err := onResult(k, ds, res); err != nil {
				return scores, err
			}
		}
	}
	return scores, nil
}

// BestK returns the score with the highest silhouette, preferring smaller k on ties.
func BestK(scores []Score) (Score, bool) {
	if len(scores) == 0 {
		return Score{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Silhouette > best.Silhouette {
			best = s
		}
	}
	return best, true
}
