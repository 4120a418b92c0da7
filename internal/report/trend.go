package report

import (
	"math"
	"sort"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/trajclust/internal/cohort"
)

// TrendPoint is the summary of one cluster at one time point.
type TrendPoint struct {
	Weeks  float64
	N      int
	Median float64
	Q25    float64
	Q75    float64
}

// Trend is the median course of one cluster.
type Trend struct {
	Label  string
	Points []TrendPoint
}

// ClusterTrends summarises the domain values of every cluster per time point
// by median and interquartile range. Missing values are ignored.
func ClusterTrends(t *cohort.Table, domain string, key cohort.ColumnKey, cols cohort.Columns) ([]Trend, error) {
	obs, err := observations(t, domain, key.Name(), "", cols)
	if err != nil {
		return nil, err
	}
	labels := sortedKeys(obs, func(o observation) string { return o.Label })
	out := make([]Trend, 0, len(labels))
	for _, l := range labels {
		byWeek := map[float64][]float64{}
		for _, o := range obs {
			if o.Label != l || math.IsNaN(o.Weeks) || math.IsNaN(o.Value) {
				continue
			}
			byWeek[o.Weeks] = append(byWeek[o.Weeks], o.Value)
		}
		weeks := make([]float64, 0, len(byWeek))
		for w := range byWeek {
			weeks = append(weeks, w)
		}
		sort.Float64s(weeks)
		tr := Trend{Label: l}
		for _, w := range weeks {
			vals := byWeek[w]
			sort.Float64s(vals)
			tr.Points = append(tr.Points, TrendPoint{
				Weeks:  w,
				N:      len(vals),
				Median: quantile(vals, 0.5),
				Q25:    quantile(vals, 0.25),
				Q75:    quantile(vals, 0.75),
			})
		}
		out = append(out, tr)
	}
	return out, nil
}

// ClusterTrend plots the median course of each cluster with its interquartile band.
func ClusterTrend(t *cohort.Table, domain string, key cohort.ColumnKey, cols cohort.Columns) (*Figure, error) {
	trends, err := ClusterTrends(t, domain, key, cols)
	if err != nil {
		return nil, err
	}
	fig := NewFigure("", 1, 1)
	p := fig.Panel(0, 0)
	p.Title.Text = domain + " recovery per cluster with median and interquartile range"
	p.X.Label.Text = "Time (in weeks)"
	p.Y.Label.Text = domain
	colors := qualitative(len(trends))
	for i, tr := range trends {
		if len(tr.Points) == 0 {
			continue
		}
		median := make(plotter.XYs, len(tr.Points))
		band := make(plotter.XYs, 0, 2*len(tr.Points))
		for j, pt := range tr.Points {
			median[j] = plotter.XY{X: pt.Weeks, Y: pt.Median}
			band = append(band, plotter.XY{X: pt.Weeks, Y: pt.Q75})
		}
		for j := len(tr.Points) - 1; j >= 0; j-- {
			band = append(band, plotter.XY{X: tr.Points[j].Weeks, Y: tr.Points[j].Q25})
		}
		if len(tr.Points) > 1 {
			poly, err := plotter.NewPolygon(band)
			if err != nil {
				return nil, err
			}
			poly.Color = translucent(colors[i], 60)
			poly.LineStyle.Width = 0
			p.Add(poly)
		}
		line, err := plotter.NewLine(median)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = colors[i]
		line.LineStyle.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(tr.Label, line)
	}
	p.Legend.Top = true
	return fig, nil
}

// CountsPerTime counts the rows with a patient id per cluster and visit.
func CountsPerTime(t *cohort.Table, domain string, key cohort.ColumnKey, cols cohort.Columns) (labels, times []string, counts map[string]map[string]int, err error) {
	obs, err := observations(t, domain, key.Name(), "", cols)
	if err != nil {
		return nil, nil, nil, err
	}
	labels = sortedKeys(obs, func(o observation) string { return o.Label })
	times = sortedKeys(obs, func(o observation) string { return o.Time })
	counts = map[string]map[string]int{}
	for _, l := range labels {
		counts[l] = map[string]int{}
	}
	for _, o := range obs {
		if o.Patient == "" {
			continue
		}
		counts[o.Label][o.Time]++
	}
	return labels, times, counts, nil
}

// ClusterOverview draws four panels: patients per cluster per time point, and
// per-patient lines for patients present exactly twice, exactly thrice, and all.
func ClusterOverview(t *cohort.Table, domain string, key cohort.ColumnKey, cols cohort.Columns) (*Figure, error) {
	labels, times, counts, err := CountsPerTime(t, domain, key, cols)
	if err != nil {
		return nil, err
	}
	fig := NewFigure(domain+" clusters overview", 2, 2)
	colors := qualitative(len(labels))
	colorOf := make(map[string]int, len(labels))
	for i, l := range labels {
		colorOf[l] = i
	}

	bars := fig.Panel(0, 0)
	bars.Title.Text = "Number of patients per cluster per time point"
	bars.X.Label.Text = "Time Point"
	bars.Y.Label.Text = "number of patients"
	width := vg.Points(40) / vg.Length(max(len(labels), 1))
	for i, l := range labels {
		vals := make(plotter.Values, len(times))
		for j, tm := range times {
			vals[j] = float64(counts[l][tm])
		}
		bc, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return nil, err
		}
		bc.Color = colors[i]
		bc.LineStyle.Width = 0
		bc.Offset = vg.Length(float64(i)-float64(len(labels)-1)/2) * width
		bars.Add(bc)
		bars.Legend.Add(l, bc)
	}
	bars.Legend.Top = true
	bars.NominalX(times...)

	obs, err := observations(t, domain, key.Name(), "", cols)
	if err != nil {
		return nil, err
	}
	panels := []struct {
		row, col int
		title    string
		keep     func(n int) bool
	}{
		{0, 1, domain + " score per cluster per patient only present twice", func(n int) bool { return n == 2 }},
		{1, 0, domain + " score per cluster per patient only present thrice", func(n int) bool { return n == 3 }},
		{1, 1, domain + " score per cluster for every patients", func(int) bool { return true }},
	}
	order, lines, rows := patientLines(obs)
	labelOf := map[string]string{}
	for _, o := range obs {
		if _, ok := labelOf[o.Patient]; !ok {
			labelOf[o.Patient] = o.Label
		}
	}
	for _, pn := range panels {
		p := fig.Panel(pn.row, pn.col)
		p.Title.Text = pn.title
		p.X.Label.Text = "Time (in weeks)"
		p.Y.Label.Text = domain + " score"
		first := map[string]*plotter.Line{}
		for _, pid := range order {
			if !pn.keep(rows[pid]) || len(lines[pid]) == 0 {
				continue
			}
			line, err := plotter.NewLine(lines[pid])
			if err != nil {
				return nil, err
			}
			l := labelOf[pid]
			line.LineStyle.Color = colors[colorOf[l]]
			p.Add(line)
			if first[l] == nil {
				first[l] = line
			}
		}
		for _, l := range labels {
			if line := first[l]; line != nil {
				p.Legend.Add(l, line)
			}
		}
		p.Legend.Top = true
	}
	return fig, nil
}
