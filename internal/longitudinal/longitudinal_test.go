package longitudinal

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// longTable builds a long-format table with three visits per patient.
func longTable(values map[string][3]float64, order ...string) *cohort.Table {
	rows := [][]string{}
	weeks := []string{"1", "4", "12"}
	for v := 0; v < 3; v++ {
		for _, p := range order {
			rows = append(rows, []string{p, []string{"1", "2", "3"}[v], weeks[v], ftoa(values[p][v])})
		}
	}
	return cohort.NewTable("long", []string{"Patient", "time", "time_in_weeks", "FM"}, rows)
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func trends() *cohort.Table {
	return longTable(map[string][3]float64{
		"A": {0.1, 0.5, 0.9},
		"B": {0.1, 0.5, 0.9},
		"C": {0.9, 0.5, 0.1},
		"D": {0.9, 0.5, 0.1},
	}, "C", "A", "D", "B")
}

type fixedClusterer struct {
	labels []int
	err    error
}

func (f fixedClusterer) Fit(_ context.Context, X []tsclust.Series) (*tsclust.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	k := 0
	for _, l := range f.labels {
		k = max(k, l+1)
	}
	centroids := make([]tsclust.Series, k)
	for i := range centroids {
		centroids[i] = tsclust.Series{{float64(i)}}
	}
	return &tsclust.Result{Labels: append([]int(nil), f.labels...), Centroids: centroids}, nil
}

func TestOrderClustersBySize(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
		want   []int
	}{
		{"largest first", []int{2, 2, 0, 1, 1, 1}, []int{1, 1, 2, 0, 0, 0}},
		{"ties keep label order", []int{1, 0, 1, 0}, []int{1, 0, 1, 0}},
		{"sparse labels", []int{7, 3, 3}, []int{1, 0, 0}},
		{"single cluster", []int{4, 4}, []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OrderClusters(nil, tt.labels)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// membership is preserved: equal inputs map to equal outputs and vice versa
			for i := range tt.labels {
				for j := range tt.labels {
					assert.Equal(t, tt.labels[i] == tt.labels[j], got[i] == got[j])
				}
			}
		})
	}
}

func TestOrderClustersLengthMismatch(t *testing.T) {
	ds, err := cohort.Reshape(trends(), "FM", cohort.DefaultColumns())
	require.NoError(t, err)
	_, err = OrderClusters(ds, []int{0, 1})
	assert.ErrorIs(t, err, cohort.ErrLabelCount)
}

func TestDescribeClusters(t *testing.T) {
	ds, err := cohort.Reshape(trends(), "FM", cohort.DefaultColumns())
	require.NoError(t, err)
	infos, err := DescribeClusters(ds, []int{1, 1, 0, 0})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 0, infos[0].Label)
	assert.Equal(t, []int{2, 3}, infos[0].Indices)
	require.Len(t, infos[0].Points, 2)
	assert.InDelta(t, 0.9, infos[0].Points[0][0][0], 1e-12)
}

func TestReorderCentroids(t *testing.T) {
	c := []tsclust.Series{{{0}}, {{1}}, {{2}}}
	got := ReorderCentroids(c, map[int]int{0: 2, 1: 0, 2: 1})
	assert.Equal(t, []tsclust.Series{{{1}}, {{2}}, {{0}}}, got)
}

func TestClusterPropagatesClustererErrors(t *testing.T) {
	ds, err := cohort.Reshape(trends(), "FM", cohort.DefaultColumns())
	require.NoError(t, err)

	d := NewDriver(DefaultSettings(), nil)
	_, err = d.Cluster(context.Background(), ds, 9, tsclust.Euclidean)
	assert.ErrorIs(t, err, tsclust.ErrTooFewSeries)

	boom := errors.New("boom")
	d.New = func(int, tsclust.Metric) Clusterer { return fixedClusterer{err: boom} }
	_, err = d.Cluster(context.Background(), ds, 2, tsclust.Euclidean)
	assert.ErrorIs(t, err, boom)

	_, err = d.Cluster(context.Background(), &cohort.Dataset{Domain: "FM"}, 2, tsclust.Euclidean)
	assert.Error(t, err)
}

func TestChooseK(t *testing.T) {
	tbl := longTable(map[string][3]float64{
		"A": {0.1, 0.5, 0.9},
		"B": {0.1, 0.5, 0.9},
		"C": {0.9, 0.5, 0.1},
		"D": {0.9, 0.5, 0.1},
		"E": {0.5, 0.5, 0.5},
		"F": {0.5, 0.5, 0.5},
	}, "A", "B", "C", "D", "E", "F")
	ds, err := cohort.Reshape(tbl, "FM", cohort.DefaultColumns())
	require.NoError(t, err)

	d := NewDriver(DefaultSettings(), nil)
	var seen []int
	scores, err := d.ChooseK(context.Background(), ds, 4, tsclust.Euclidean, func(k int, _ *cohort.Dataset, res *tsclust.Result) error {
		seen = append(seen, k)
		assert.Len(t, res.Labels, 6)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, []int{2, 3}, seen)
	for i, s := range scores {
		assert.Equal(t, i+2, s.K)
	}
	best, ok := BestK(scores)
	require.True(t, ok)
	assert.Equal(t, 3, best.K)
	assert.InDelta(t, 1.0, best.Silhouette, 1e-9)

	empty, err := d.ChooseK(context.Background(), ds, 2, tsclust.Euclidean, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	stop := errors.New("stop")
	partial, err := d.ChooseK(context.Background(), ds, 4, tsclust.Euclidean, func(int, *cohort.Dataset, *tsclust.Result) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Len(t, partial, 1)
}

func TestBestKEmpty(t *testing.T) {
	_, ok := BestK(nil)
	assert.False(t, ok)
	best, _ := BestK([]Score{{K: 2, Silhouette: 0.4}, {K: 3, Silhouette: 0.4}})
	assert.Equal(t, 2, best.K)
}

func TestRunEndToEnd(t *testing.T) {
	long := trends()
	d := NewDriver(DefaultSettings(), nil)
	out, err := d.Run(context.Background(), long, nil, Request{
		Domain:  "FM",
		K:       2,
		Metric:  tsclust.Euclidean,
		Columns: cohort.DefaultColumns(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, out.Dataset.Patients)

	l := out.Labels
	assert.Equal(t, l[0], l[1])
	assert.Equal(t, l[2], l[3])
	assert.NotEqual(t, l[0], l[2])
	// equal sizes: ordering keeps the raw label values
	assert.Equal(t, out.Result.Labels, l)
	assert.Equal(t, []int{2, 2}, out.Sizes())

	col := out.Features.Index("longitudinal_FM_labels")
	require.GreaterOrEqual(t, col, 0)
	assert.Equal(t, long.Len(), out.Features.Len())
	byPatient := map[string]int{}
	for i, p := range out.Dataset.Patients {
		byPatient[p] = l[i]
	}
	got, err := out.Features.Labels(out.Key)
	require.NoError(t, err)
	for i := range out.Features.Rows {
		assert.Equal(t, byPatient[out.Features.String(i, 0)], got[i])
	}

	// centroid of ordered label l[0] is the ascending trend
	assert.InDelta(t, 0.1, out.Centroids[l[0]][0][0], 1e-9)
	assert.InDelta(t, 0.9, out.Centroids[l[2]][0][0], 1e-9)

	// merging the same domain again replaces the column
	again, err := d.Run(context.Background(), long, out.Features, Request{Domain: "FM", K: 2, Metric: tsclust.Euclidean, Columns: cohort.DefaultColumns()})
	require.NoError(t, err)
	assert.Equal(t, out.Features.Columns, again.Features.Columns)
	assert.Equal(t, out.Features.Rows, again.Features.Rows)
}

func TestRunOrdersWithFixedClusterer(t *testing.T) {
	d := NewDriver(DefaultSettings(), nil)
	d.New = func(int, tsclust.Metric) Clusterer { return fixedClusterer{labels: []int{1, 0, 0, 0}} }
	out, err := d.Run(context.Background(), trends(), nil, Request{Domain: "FM", K: 2, Metric: tsclust.DTW, Columns: cohort.DefaultColumns()})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 0}, out.Labels)
	assert.Equal(t, tsclust.Series{{0}}, out.Centroids[0])
	assert.Equal(t, tsclust.Series{{1}}, out.Centroids[1])

	d.New = func(int, tsclust.Metric) Clusterer { return fixedClusterer{labels: []int{0, 1, 1, 1}} }
	out, err = d.Run(context.Background(), trends(), nil, Request{Domain: "FM", K: 2, Metric: tsclust.DTW, Columns: cohort.DefaultColumns()})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 0}, out.Labels)
	assert.Equal(t, tsclust.Series{{1}}, out.Centroids[0])
}

func TestRunRejectsRaggedInput(t *testing.T) {
	tbl := cohort.NewTable("long", []string{"Patient", "time", "time_in_weeks", "FM"}, [][]string{
		{"A", "1", "1", "0.1"},
		{"A", "2", "4", "0.2"},
		{"B", "1", "1", "0.3"},
	})
	_, err := NewDriver(DefaultSettings(), nil).Run(context.Background(), tbl, nil, Request{Domain: "FM", K: 2, Metric: tsclust.Euclidean, Columns: cohort.DefaultColumns()})
	assert.ErrorIs(t, err, cohort.ErrRaggedSeries)
}
