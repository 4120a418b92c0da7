// Package longitudinal orchestrates longitudinal clustering of one clinical
// domain: clustering runs, cluster-count selection, size ordering of labels and
// the end-to-end pipeline that writes labels onto the feature table.
package longitudinal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// Clusterer fits a clustering to a stack of time series.
type Clusterer interface {
	Fit(ctx context.Context, X []tsclust.Series) (*tsclust.Result, error)
}

// Scorer rates a labeling; higher is better.
type Scorer func(X []tsclust.Series, labels []int, metric tsclust.Metric) (float64, error)

// Settings are the clustering knobs shared by every run of a Driver.
type Settings struct {
	MaxIter           int
	MaxIterBarycenter int
	Tol               float64
	NInit             int
	Seed              int64
	Params            tsclust.Params
}

// DefaultSettings uses a fixed seed of 0 so runs are reproducible.
func DefaultSettings() Settings {
	return Settings{
		MaxIter:           50,
		MaxIterBarycenter: 100,
		Tol:               1e-6,
		NInit:             1,
		Seed:              0,
		Params:            tsclust.DefaultParams(),
	}
}

// Driver runs clusterings with fixed settings.
type Driver struct {
	Settings Settings
	// New builds the clusterer for one run. Defaults to tsclust k-means.
	New func(k int, metric tsclust.Metric) Clusterer
	// Score rates a labeling. Defaults to the silhouette coefficient.
	Score  Scorer
	Logger *slog.Logger
}

// NewDriver returns a Driver backed by tsclust k-means and silhouette scoring.
func NewDriver(s Settings, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Driver{Settings: s, Logger: logger}
	d.New = d.kmeans
	d.Score = func(X []tsclust.Series, labels []int, metric tsclust.Metric) (float64, error) {
		return tsclust.Silhouette(X, labels, metric, s.Params)
	}
	return d
}

func (d *Driver) kmeans(k int, metric tsclust.Metric) Clusterer {
	km := tsclust.NewKMeans(k, metric)
	km.Params = d.Settings.Params
	if d.Settings.MaxIter > 0 {
		km.MaxIter = d.Settings.MaxIter
	}
	if d.Settings.MaxIterBarycenter > 0 {
		km.MaxIterBarycenter = d.Settings.MaxIterBarycenter
	}
	if d.Settings.Tol > 0 {
		km.Tol = d.Settings.Tol
	}
	if d.Settings.NInit > 0 {
		km.NInit = d.Settings.NInit
	}
	km.Seed = d.Settings.Seed
	km.Logger = d.Logger
	return km
}

// Cluster assigns every patient of ds to one of k clusters under metric.
// Failures of the underlying clusterer are returned unchanged.
func (d *Driver) Cluster(ctx context.Context, ds *cohort.Dataset, k int, metric tsclust.Metric) (*tsclust.Result, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("cluster %s: no patients", datasetName(ds))
	}
	d.Logger.Debug("clustering", "domain", ds.Domain, "patients", ds.Len(), "k", k, "metric", string(metric))
	res, err := d.New(k, metric).Fit(ctx, ds.Series)
	if err != nil {
		return nil, err
	}
	d.Logger.Debug("raw labels", "domain", ds.Domain, "labels", res.Labels)
	return res, nil
}

func datasetName(ds *cohort.Dataset) string {
	if ds == nil || ds.Domain == "" {
		return "dataset"
	}
	return ds.Domain
}
