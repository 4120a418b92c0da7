package tsclust

import "errors"

var (
	// ErrUnknownMetric is returned for metric names other than euclidean, dtw and softdtw.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrInvalidK is returned when the cluster count is below 1.
	ErrInvalidK = errors.New("number of clusters must be at least 1")
	// ErrTooFewSeries is returned when there are fewer series than clusters.
	ErrTooFewSeries = errors.New("fewer series than clusters")
	// ErrMissingValues is returned when an input series contains NaN.
	ErrMissingValues = errors.New("time series contain missing values")
	// ErrUnequalLength is returned when series do not share a shape.
	ErrUnequalLength = errors.New("time series have unequal lengths")
	// ErrEmptyCluster is returned when every initialisation ends with an empty cluster.
	ErrEmptyCluster = errors.New("k-means produced an empty cluster")
	// ErrSilhouetteLabels is returned when the labeling has fewer than 2 or more than n-1 clusters.
	ErrSilhouetteLabels = errors.New("silhouette needs 2 <= n_labels <= n_samples-1")
)
