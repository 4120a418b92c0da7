package report

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"

	"github.com/KaramelBytes/trajclust/internal/cohort"
)

// Contingency cross-tabulates two labelings of the same patients.
// Rows follow labeling A and columns labeling B.
type Contingency struct {
	A, B   string
	Rows   []string
	Cols   []string
	Counts *mat.Dense
}

// CompareLabelings counts the patients in every pair of clusters of the
// labelings a and b, using only the rows whose visit equals baseline so every
// patient is counted once.
func CompareLabelings(t *cohort.Table, a, b string, cols cohort.Columns, baseline string) (*Contingency, error) {
	tcol, err := t.Col(cols.Time)
	if err != nil {
		return nil, err
	}
	acol, err := t.Col(a)
	if err != nil {
		return nil, err
	}
	bcol, err := t.Col(b)
	if err != nil {
		return nil, err
	}
	base := t.Filter(func(row int) bool { return t.String(row, tcol) == baseline })
	if base.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows with %s=%q", cohort.ErrEmptyTable, cols.Time, baseline)
	}
	obs := make([]observation, base.Len())
	for i := range base.Rows {
		obs[i] = observation{Label: base.String(i, acol), Style: base.String(i, bcol)}
	}
	rows := sortedKeys(obs, func(o observation) string { return o.Label })
	cs := sortedKeys(obs, func(o observation) string { return o.Style })
	ri := indexOf(rows)
	ci := indexOf(cs)
	counts := mat.NewDense(len(rows), len(cs), nil)
	for _, o := range obs {
		r, c := ri[o.Label], ci[o.Style]
		counts.Set(r, c, counts.At(r, c)+1)
	}
	return &Contingency{A: a, B: b, Rows: rows, Cols: cs, Counts: counts}, nil
}

func indexOf(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

// Total is the number of patients counted.
func (c *Contingency) Total() int {
	return int(mat.Sum(c.Counts))
}

// RowShare divides every count by its row total: the share of patients of an
// A cluster that fall in each B cluster.
func (c *Contingency) RowShare() *mat.Dense {
	r, k := c.Counts.Dims()
	out := mat.NewDense(r, k, nil)
	for i := 0; i < r; i++ {
		row := mat.Row(nil, i, c.Counts)
		if total := floats.Sum(row); total > 0 {
			floats.Scale(1/total, row)
		}
		out.SetRow(i, row)
	}
	return out
}

// ColShare divides every count by its column total.
func (c *Contingency) ColShare() *mat.Dense {
	r, k := c.Counts.Dims()
	out := mat.NewDense(r, k, nil)
	for j := 0; j < k; j++ {
		col := mat.Col(nil, j, c.Counts)
		if total := floats.Sum(col); total > 0 {
			floats.Scale(1/total, col)
		}
		out.SetCol(j, col)
	}
	return out
}

// Markdown renders the counts and both share tables.
func (c *Contingency) Markdown() string {
	var b strings.Builder
	b.WriteString("[CLUSTER COMPARISON]\n")
	b.WriteString(fmt.Sprintf("Rows: %s\nColumns: %s\nPatients: %d\n", c.A, c.B, c.Total()))
	b.WriteString("\n[COMMON PATIENTS]\n")
	writeGrid(&b, c, c.Counts, func(v float64) string { return fmt.Sprintf("%d", int(v)) })
	b.WriteString(fmt.Sprintf("\n[%% PATIENTS WITH %s IN %s]\n", c.A, c.B))
	writeGrid(&b, c, c.RowShare(), percent)
	b.WriteString(fmt.Sprintf("\n[%% PATIENTS WITH %s IN %s]\n", c.B, c.A))
	writeGrid(&b, c, c.ColShare(), percent)
	return b.String()
}

func percent(v float64) string { return fmt.Sprintf("%.0f%%", v*100) }

func writeGrid(b *strings.Builder, c *Contingency, m mat.Matrix, format func(float64) string) {
	b.WriteString("| " + safeCell(c.A) + " \\ " + safeCell(c.B))
	for _, col := range c.Cols {
		b.WriteString(" | " + safeCell(col))
	}
	b.WriteString(" |\n|---")
	for range c.Cols {
		b.WriteString("|---")
	}
	b.WriteString("|\n")
	for i, row := range c.Rows {
		b.WriteString("| " + safeCell(row))
		for j := range c.Cols {
			b.WriteString(" | " + format(m.At(i, j)))
		}
		b.WriteString(" |\n")
	}
}

func safeCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(empty)"
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}

// grid adapts a matrix to plotter.GridXYZ with row 0 drawn at the top.
type grid struct{ m mat.Matrix }

func (g grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g grid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

// ComparisonFigure draws the counts and both share tables as annotated heatmaps.
func ComparisonFigure(c *Contingency, title string) (*Figure, error) {
	fig := NewFigure(title, 1, 3)
	panels := []struct {
		m      mat.Matrix
		title  string
		format func(float64) string
	}{
		{c.Counts, "Number of common patients between clusters of the 2 different clustering", func(v float64) string { return fmt.Sprintf("%d", int(v)) }},
		{c.RowShare(), "% patients with " + c.A + " in " + c.B, percent},
		{c.ColShare(), "% of patients with " + c.B + " in " + c.A, percent},
	}
	for i, pn := range panels {
		if err := heatmap(fig.Panel(0, i), c, pn.m, pn.title, pn.format); err != nil {
			return nil, err
		}
	}
	return fig, nil
}

func heatmap(p *plot.Plot, c *Contingency, m mat.Matrix, title string, format func(float64) string) error {
	p.Title.Text = title
	p.X.Label.Text = c.B
	p.Y.Label.Text = c.A
	g := grid{m: m}

	hm := plotter.NewHeatMap(g, sequential())
	hi := mat.Max(m)
	// zero cells are drawn white
	hm.Min = math.SmallestNonzeroFloat32
	hm.Max = math.Max(hi, 2*hm.Min)
	hm.Underflow = color.White
	p.Add(hm)

	cols, rows := g.Dims()
	labels := plotter.XYLabels{}
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: g.X(col), Y: g.Y(r)})
			labels.Labels = append(labels.Labels, format(g.Z(col, r)))
		}
	}
	annot, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	for i := range annot.TextStyle {
		annot.TextStyle[i].XAlign = text.XCenter
		annot.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(annot)

	p.NominalX(c.Cols...)
	yNames := make([]string, len(c.Rows))
	for i, name := range c.Rows {
		yNames[len(c.Rows)-1-i] = name
	}
	p.NominalY(yNames...)
	return nil
}
