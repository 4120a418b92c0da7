package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/longitudinal"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// PanelOptions control the per-cluster centroid figure.
type PanelOptions struct {
	// YMin and YMax fix the value axis. Both zero leaves it automatic.
	YMin, YMax float64
}

// DefaultPanelOptions fixes the value axis to [0, 1] for normalized scores.
func DefaultPanelOptions() PanelOptions { return PanelOptions{YMin: 0, YMax: 1} }

var (
	memberColor   = color.NRGBA{A: 51}
	centroidColor = color.NRGBA{R: 220, A: 255}
)

// ClusterPanels draws one panel per cluster, stacked vertically: every member
// series in translucent black and the cluster centroid in red.
func ClusterPanels(ds *cohort.Dataset, labels []int, centroids []tsclust.Series, opt PanelOptions) (*Figure, error) {
	if ds.Len() != len(labels) {
		return nil, fmt.Errorf("%w: %d patients, %d labels", cohort.ErrLabelCount, ds.Len(), len(labels))
	}
	k := len(centroids)
	if k == 0 {
		return nil, ErrNoPanels
	}
	fig := NewFigure(fmt.Sprintf("%s clusters (k=%d)", ds.Domain, k), k, 1)
	for c := 0; c < k; c++ {
		p := fig.Panel(c, 0)
		p.Title.Text = fmt.Sprintf("Cluster %d", c)
		for i, l := range labels {
			if l != c {
				continue
			}
			xys := seriesXYs(ds.Series[i])
			if len(xys) == 0 {
				continue
			}
			line, err := plotter.NewLine(xys)
			if err != nil {
				return nil, err
			}
			line.LineStyle.Color = memberColor
			p.Add(line)
		}
		center, err := plotter.NewLine(seriesXYs(centroids[c]))
		if err != nil {
			return nil, err
		}
		center.LineStyle.Color = centroidColor
		center.LineStyle.Width = vg.Points(1.5)
		p.Add(center)
		p.Legend.Add("cluster center", center)
		p.Legend.Top = true
		if opt.YMin != 0 || opt.YMax != 0 {
			p.Y.Min, p.Y.Max = opt.YMin, opt.YMax
		}
	}
	return fig, nil
}

// SilhouetteCurve plots the silhouette score against the number of clusters.
func SilhouetteCurve(scores []longitudinal.Score, metric tsclust.Metric) (*Figure, error) {
	if len(scores) == 0 {
		return nil, ErrNoPanels
	}
	fig := NewFigure("", 1, 1)
	p := fig.Panel(0, 0)
	p.Title.Text = "Silhouette score for different number of clusters with " + string(metric)
	p.X.Label.Text = "number of clusters"
	p.Y.Label.Text = "silhouette score"
	xys := make(plotter.XYs, len(scores))
	ticks := make([]plot.Tick, len(scores))
	for i, s := range scores {
		xys[i].X = float64(s.K)
		xys[i].Y = s.Silhouette
		ticks[i] = plot.Tick{Value: float64(s.K), Label: fmt.Sprint(s.K)}
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = clusterColor(0)
	points.Shape = draw.CircleGlyph{}
	points.Color = clusterColor(0)
	p.Add(line, points)
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	return fig, nil
}

// seriesXYs lays the first channel of a series along the visit index.
// Missing values become gaps by being skipped.
func seriesXYs(s tsclust.Series) plotter.XYs {
	xys := make(plotter.XYs, 0, len(s))
	for t, step := range s {
		if len(step) == 0 || math.IsNaN(step[0]) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(t), Y: step[0]})
	}
	return xys
}
