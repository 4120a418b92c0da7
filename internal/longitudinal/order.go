package longitudinal

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// ClusterInfo describes one cluster of a labeling.
type ClusterInfo struct {
	Label   int
	Points  []tsclust.Series
	Indices []int
}

// Size is the number of members.
func (c ClusterInfo) Size() int { return len(c.Indices) }

// DescribeClusters groups the rows of ds by label, in ascending label order.
func DescribeClusters(ds *cohort.Dataset, labels []int) ([]ClusterInfo, error) {
	if ds != nil && ds.Len() != len(labels) {
		return nil, fmt.Errorf("%w: %d patients, %d labels", cohort.ErrLabelCount, ds.Len(), len(labels))
	}
	byLabel := map[int][]int{}
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	keys := make([]int, 0, len(byLabel))
	for l := range byLabel {
		keys = append(keys, l)
	}
	sort.Ints(keys)
	out := make([]ClusterInfo, len(keys))
	for i, l := range keys {
		info := ClusterInfo{Label: l, Indices: byLabel[l]}
		if ds != nil {
			info.Points = ds.Subset(info.Indices)
		}
		out[i] = info
	}
	return out, nil
}

// Ordering maps every original label to its rank by descending cluster size.
// Clusters of equal size keep ascending original label order.
func Ordering(ds *cohort.Dataset, labels []int) (map[int]int, error) {
	infos, err := DescribeClusters(ds, labels)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Size() > infos[j].Size() })
	mapping := make(map[int]int, len(infos))
	for rank, info := range infos {
		mapping[info.Label] = rank
	}
	return mapping, nil
}

// OrderClusters relabels so that 0 is the largest cluster, 1 the second largest, and so on.
// Membership is unchanged; only the label values move.
func OrderClusters(ds *cohort.Dataset, labels []int) ([]int, error) {
	mapping, err := Ordering(ds, labels)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = mapping[l]
	}
	return out, nil
}

// ReorderCentroids moves centroids to the positions given by mapping.
func ReorderCentroids(centroids []tsclust.Series, mapping map[int]int) []tsclust.Series {
	out := make([]tsclust.Series, len(centroids))
	for old, c := range centroids {
		if pos, ok := mapping[old]; ok && pos < len(out) {
			out[pos] = c
		}
	}
	return out
}
