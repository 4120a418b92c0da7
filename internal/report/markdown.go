package report

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/trajclust/internal/longitudinal"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// ScoresMarkdown lists the silhouette score of every k and marks the best one.
func ScoresMarkdown(domain string, metric tsclust.Metric, scores []longitudinal.Score) string {
	var b strings.Builder
	b.WriteString("[CLUSTER COUNT SELECTION]\n")
	b.WriteString(fmt.Sprintf("Domain: %s\nMetric: %s\n\n", domain, metric))
	b.WriteString("| k | silhouette |\n|---|---|\n")
	best, ok := longitudinal.BestK(scores)
	for _, s := range scores {
		mark := ""
		if ok && s.K == best.K {
			mark = " ←"
		}
		b.WriteString(fmt.Sprintf("| %d | %.4f%s |\n", s.K, s.Silhouette, mark))
	}
	if !ok {
		b.WriteString("\n[NOTES]\n- no k evaluated; max clusters must be at least 3\n")
	}
	return b.String()
}

// RunMarkdown summarises a clustering: cluster sizes and the mean course of
// every cluster per visit.
func RunMarkdown(out *longitudinal.Outcome, metric tsclust.Metric) string {
	var b strings.Builder
	patients, visits, _ := out.Dataset.Shape()
	b.WriteString("[CLUSTERING]\n")
	b.WriteString(fmt.Sprintf("Domain: %s\nMetric: %s\nClusters: %d\nPatients: %d\nVisits: %d\n",
		out.Dataset.Domain, metric, len(out.Centroids), patients, visits))
	if out.Result != nil {
		b.WriteString(fmt.Sprintf("Inertia: %.4g (%d iterations)\n", out.Result.Inertia, out.Result.Iterations))
	}
	b.WriteString(fmt.Sprintf("Column: %s\n", out.Key.Name()))

	b.WriteString("\n[CLUSTER SIZES]\n")
	sizes := out.Sizes()
	for l, n := range sizes {
		share := 0.0
		if patients > 0 {
			share = float64(n) * 100 / float64(patients)
		}
		b.WriteString(fmt.Sprintf("- cluster %d: %d patients (%.1f%%)\n", l, n, share))
	}

	b.WriteString("\n[CLUSTER PROFILES]\n")
	for l := range sizes {
		b.WriteString(fmt.Sprintf("- cluster %d:", l))
		for v := 0; v < visits; v++ {
			var vals []float64
			for i, lbl := range out.Labels {
				if lbl != l {
					continue
				}
				if x := out.Dataset.Series[i][v][0]; !math.IsNaN(x) {
					vals = append(vals, x)
				}
			}
			if len(vals) == 0 {
				b.WriteString(" n/a")
				continue
			}
			mean, std := stat.MeanStdDev(vals, nil)
			if len(vals) < 2 {
				std = 0
			}
			b.WriteString(fmt.Sprintf(" %.3g±%.2g", mean, std))
		}
		b.WriteString("\n")
	}
	return b.String()
}
