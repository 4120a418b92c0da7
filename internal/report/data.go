package report

import (
	"image/color"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"github.com/KaramelBytes/trajclust/internal/cohort"
)

// observation is one visit row of the feature table.
type observation struct {
	Patient string
	Time    string
	Weeks   float64
	Value   float64
	Label   string
	Style   string
}

// observations extracts the visit rows of t for a domain. labelCol and
// styleCol are optional.
func observations(t *cohort.Table, domain, labelCol, styleCol string, cols cohort.Columns) ([]observation, error) {
	pcol, err := t.Col(cols.Patient)
	if err != nil {
		return nil, err
	}
	tcol, err := t.Col(cols.Time)
	if err != nil {
		return nil, err
	}
	wcol, err := t.Col(cols.Weeks)
	if err != nil {
		return nil, err
	}
	dcol, err := t.Col(domain)
	if err != nil {
		return nil, err
	}
	lcol, scol := -1, -1
	if labelCol != "" {
		if lcol, err = t.Col(labelCol); err != nil {
			return nil, err
		}
	}
	if styleCol != "" {
		if scol, err = t.Col(styleCol); err != nil {
			return nil, err
		}
	}
	out := make([]observation, 0, t.Len())
	for i := range t.Rows {
		o := observation{
			Patient: t.String(i, pcol),
			Time:    t.String(i, tcol),
			Weeks:   t.Float(i, wcol),
			Value:   t.Float(i, dcol),
		}
		if lcol >= 0 {
			o.Label = t.String(i, lcol)
		}
		if scol >= 0 {
			o.Style = t.String(i, scol)
		}
		out = append(out, o)
	}
	return out, nil
}

// sortedKeys returns the distinct values of key, ordered numerically when
// every value is a number and lexically otherwise.
func sortedKeys(obs []observation, key func(observation) string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, o := range obs {
		k := key(o)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sortNatural(keys)
	return keys
}

func sortNatural(keys []string) {
	nums := make(map[string]float64, len(keys))
	for _, k := range keys {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			sort.Strings(keys)
			return
		}
		nums[k] = f
	}
	sort.SliceStable(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
}

// patientLines groups observations per patient into lines sorted by week.
// Rows with a missing week or value are skipped. Patients keep first-seen order.
func patientLines(obs []observation) (order []string, lines map[string]plotter.XYs, rows map[string]int) {
	lines = map[string]plotter.XYs{}
	rows = map[string]int{}
	for _, o := range obs {
		if _, ok := rows[o.Patient]; !ok {
			order = append(order, o.Patient)
		}
		rows[o.Patient]++
		if math.IsNaN(o.Weeks) || math.IsNaN(o.Value) {
			continue
		}
		lines[o.Patient] = append(lines[o.Patient], plotter.XY{X: o.Weeks, Y: o.Value})
	}
	for _, xys := range lines {
		sort.SliceStable(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
	}
	return order, lines, rows
}

// quantile is the linearly interpolated p-quantile of sorted data, with the
// ranks at (n-1)p as in the usual percentile definition.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1:
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// qualitative returns n distinguishable colours: Set2 for the first eight,
// then the plotutil defaults.
func qualitative(n int) []color.Color {
	out := make([]color.Color, n)
	var set2 []color.Color
	if pal, err := brewer.GetPalette(brewer.TypeQualitative, "Set2", min(max(n, 3), 8)); err == nil {
		set2 = pal.Colors()
	}
	for i := range out {
		if i < len(set2) {
			out[i] = set2[i]
		} else {
			out[i] = plotutil.Color(i)
		}
	}
	return out
}

// sequential is the palette used for heatmaps.
func sequential() palette.Palette {
	if pal, err := brewer.GetPalette(brewer.TypeSequential, "YlGnBu", 9); err == nil {
		return pal
	}
	return palette.Heat(9, 1)
}
