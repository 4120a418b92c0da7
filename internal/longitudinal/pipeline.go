package longitudinal

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// Request describes one clustering of a domain.
type Request struct {
	Domain  string
	K       int
	Metric  tsclust.Metric
	Columns cohort.Columns
}

// Outcome holds everything produced by Run.
type Outcome struct {
	Dataset *cohort.Dataset
	// Result carries the raw labels and centroids from the clusterer.
	Result *tsclust.Result
	// Labels are the size-ordered labels, aligned with Dataset.Patients.
	Labels []int
	// Centroids are indexed by ordered label.
	Centroids []tsclust.Series
	Key       cohort.ColumnKey
	Features  *cohort.Table
}

// Sizes returns the member count of each ordered cluster.
func (o *Outcome) Sizes() []int {
	sizes := make([]int, len(o.Centroids))
	for _, l := range o.Labels {
		if l >= 0 && l < len(sizes) {
			sizes[l]++
		}
	}
	return sizes
}

// Run reshapes long, clusters the domain, orders the labels by cluster size and
// merges them onto features. When features is nil the long table is used.
func (d *Driver) Run(ctx context.Context, long, features *cohort.Table, req Request) (*Outcome, error) {
	ds, err := cohort.Reshape(long, req.Domain, req.Columns)
	if err != nil {
		return nil, fmt.Errorf("reshape %s: %w", req.Domain, err)
	}
	rows, visits, _ := ds.Shape()
	d.Logger.Info("reshaped", "domain", req.Domain, "patients", rows, "visits", visits)

	res, err := d.Cluster(ctx, ds, req.K, req.Metric)
	if err != nil {
		return nil, fmt.Errorf("cluster %s: %w", req.Domain, err)
	}
	mapping, err := Ordering(ds, res.Labels)
	if err != nil {
		return nil, err
	}
	ordered := make([]int, len(res.Labels))
	for i, l := range res.Labels {
		ordered[i] = mapping[l]
	}
	d.Logger.Debug("ordered labels", "domain", req.Domain, "labels", ordered)

	if features == nil {
		features = long
	}
	key := cohort.LabelKey(req.Domain)
	merged, err := cohort.MergeLabels(features, ds.Patients, ordered, key, req.Columns.Patient)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", key.Name(), err)
	}
	return &Outcome{
		Dataset:   ds,
		Result:    res,
		Labels:    ordered,
		Centroids: ReorderCentroids(res.Centroids, mapping),
		Key:       key,
		Features:  merged,
	}, nil
}
