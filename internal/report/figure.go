// Package report renders clustering results as figures and text summaries.
//
// Every function returns a Figure value; nothing is drawn to a shared state.
// Callers decide where and in which format a figure is written.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/trajclust/internal/utils"
)

// ErrNoPanels is returned when saving a figure without any panel.
var ErrNoPanels = errors.New("figure has no panels")

// Figure is a titled grid of plots.
type Figure struct {
	Title  string
	Panels [][]*plot.Plot
}

// NewFigure allocates a rows x cols grid of empty panels.
func NewFigure(title string, rows, cols int) *Figure {
	f := &Figure{Title: title, Panels: make([][]*plot.Plot, rows)}
	for r := range f.Panels {
		f.Panels[r] = make([]*plot.Plot, cols)
		for c := range f.Panels[r] {
			f.Panels[r][c] = plot.New()
		}
	}
	return f
}

// Panel returns the plot at row r, column c.
func (f *Figure) Panel(r, c int) *plot.Plot { return f.Panels[r][c] }

// Dims returns the grid size.
func (f *Figure) Dims() (rows, cols int) {
	rows = len(f.Panels)
	for _, row := range f.Panels {
		cols = max(cols, len(row))
	}
	return rows, cols
}

// Save writes the figure to path. The format follows the extension
// (png, svg, pdf, jpg, tif, eps); width and height are in inches.
func (f *Figure) Save(path string, width, height float64) error {
	rows, cols := f.Dims()
	if rows == 0 || cols == 0 {
		return ErrNoPanels
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("save %s: missing file extension", path)
	}
	w, h := vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch
	cw, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	dc := draw.New(cw)

	tiles := draw.Tiles{Rows: rows, Cols: cols, PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4, PadTop: vg.Millimeter * 2}
	if f.Title != "" {
		sty := titleStyle()
		tiles.PadTop += sty.Height(f.Title) + vg.Millimeter*2
		dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y - vg.Millimeter}, f.Title)
	}

	grid := make([][]*plot.Plot, rows)
	for r := range grid {
		grid[r] = make([]*plot.Plot, cols)
		for c := range grid[r] {
			if c < len(f.Panels[r]) && f.Panels[r][c] != nil {
				grid[r][c] = f.Panels[r][c]
			} else {
				blank := plot.New()
				blank.HideAxes()
				grid[r][c] = blank
			}
		}
	}
	canvases := plot.Align(grid, tiles, dc)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create figure dir: %w", err)
	}
	var buf bytes.Buffer
	if _, err := cw.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func titleStyle() text.Style {
	sty := plot.New().Title.TextStyle
	sty.Font.Size = vg.Points(14)
	sty.XAlign = text.XCenter
	sty.YAlign = text.YTop
	return sty
}

// clusterColor is the colour of cluster index i.
func clusterColor(i int) color.Color { return plotutil.Color(i) }

func translucent(c color.Color, alpha uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}
