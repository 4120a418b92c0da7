package report

import (
	"image/color"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/trajclust/internal/cohort"
)

// LineComparison draws one line per patient coloured by the labeling hue and
// dashed by the labeling style, so two clusterings can be read on one chart.
func LineComparison(t *cohort.Table, domain, hue, style string, cols cohort.Columns) (*Figure, error) {
	obs, err := observations(t, domain, hue, style, cols)
	if err != nil {
		return nil, err
	}
	hues := sortedKeys(obs, func(o observation) string { return o.Label })
	styles := sortedKeys(obs, func(o observation) string { return o.Style })
	colors := qualitative(len(hues))
	hueIdx, styleIdx := indexOf(hues), indexOf(styles)

	fig := NewFigure("", 1, 1)
	p := fig.Panel(0, 0)
	p.Title.Text = domain + " recovery per cluster per time point"
	p.X.Label.Text = "Time (in weeks)"
	p.Y.Label.Text = domain

	first := map[string]observation{}
	for _, o := range obs {
		if _, ok := first[o.Patient]; !ok {
			first[o.Patient] = o
		}
	}
	order, lines, _ := patientLines(obs)
	for _, pid := range order {
		if len(lines[pid]) == 0 {
			continue
		}
		line, err := plotter.NewLine(lines[pid])
		if err != nil {
			return nil, err
		}
		o := first[pid]
		line.LineStyle.Color = colors[hueIdx[o.Label]]
		line.LineStyle.Dashes = plotutil.Dashes(styleIdx[o.Style])
		p.Add(line)
	}

	// legend: one entry per hue, then one per style in neutral grey
	for i, h := range hues {
		l := &plotter.Line{LineStyle: plotter.DefaultLineStyle}
		l.LineStyle.Color = colors[i]
		l.LineStyle.Width = vg.Points(2)
		p.Legend.Add(hue+"="+h, l)
	}
	for i, s := range styles {
		l := &plotter.Line{LineStyle: plotter.DefaultLineStyle}
		l.LineStyle.Color = color.Gray{Y: 80}
		l.LineStyle.Dashes = plotutil.Dashes(i)
		p.Legend.Add(style+"="+s, l)
	}
	p.Legend.Top = true
	return fig, nil
}
