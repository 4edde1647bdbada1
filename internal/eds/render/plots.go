// Package render produces figures from dictionaries, fitted factorizations
// and quantification results: spectrum overlays as PNG via gonum/plot and
// browsable HTML reports via go-echarts.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/adriente/esmpy/internal/eds"
)

// PhaseSpectrumPlot draws one phase's modelled spectrum: the total G*W[:,phase]
// curve plus the per-column contributions weighted by that phase's W column.
// energies must match the dictionary's channel count.
func PhaseSpectrumPlot(path string, energies []float64, dict *eds.Dictionary, w *mat.Dense, phase int) error {
	g := dict.Matrix()
	if g == nil {
		return fmt.Errorf("render: dictionary has no model matrix")
	}
	channels, cols := g.Dims()
	if len(energies) != channels {
		return fmt.Errorf("render: %d energies for %d channels", len(energies), channels)
	}
	wRows, wCols := w.Dims()
	if wRows != cols {
		return fmt.Errorf("render: weight matrix has %d rows, dictionary has %d columns", wRows, cols)
	}
	if phase < 0 || phase >= wCols {
		return fmt.Errorf("render: phase %d out of range [0,%d)", phase, wCols)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Phase %d model spectrum", phase)
	p.X.Label.Text = "Energy (keV)"
	p.Y.Label.Text = "Intensity (a.u.)"

	names := columnNames(dict)
	colors := generateColors(cols)

	total := make([]float64, channels)
	for j := 0; j < cols; j++ {
		weight := w.At(j, phase)
		pts := make(plotter.XYs, channels)
		for i := 0; i < channels; i++ {
			v := g.At(i, j) * weight
			total[i] += v
			pts[i].X = energies[i]
			pts[i].Y = v
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("render: contribution line for %s: %w", names[j], err)
		}
		line.Width = vg.Points(1)
		line.Color = colors[j]
		line.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(names[j], line)
	}

	totalPts := make(plotter.XYs, channels)
	for i := range total {
		totalPts[i].X = energies[i]
		totalPts[i].Y = total[i]
	}
	totalLine, err := plotter.NewLine(totalPts)
	if err != nil {
		return fmt.Errorf("render: total line: %w", err)
	}
	totalLine.Width = vg.Points(2)
	totalLine.Color = color.RGBA{A: 255}
	p.Add(totalLine)
	p.Legend.Add("total", totalLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("render: save spectrum plot: %w", err)
	}
	return nil
}

// AbundanceHeatmaps writes one PNG heatmap per phase row of H into dir,
// named abundance_<phase>.png. H is phases x pixels, row-major on the
// given grid.
func AbundanceHeatmaps(dir string, h *mat.Dense, phases []string, height, width int) error {
	rows, pixels := h.Dims()
	if pixels != height*width {
		return fmt.Errorf("render: %d pixels for a %dx%d grid", pixels, height, width)
	}
	if len(phases) != rows {
		return fmt.Errorf("render: %d phase names for %d rows", len(phases), rows)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("render: create output dir: %w", err)
	}

	for r := 0; r < rows; r++ {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Abundance %s", phases[r])
		p.X.Label.Text = "x (px)"
		p.Y.Label.Text = "y (px)"

		grid := &abundanceGrid{h: h, row: r, height: height, width: width}
		pal := palette.Heat(12, 1)
		hm := plotter.NewHeatMap(grid, pal)
		p.Add(hm)

		file := filepath.Join(dir, fmt.Sprintf("abundance_%s.png", phases[r]))
		if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
			return fmt.Errorf("render: save heatmap %s: %w", phases[r], err)
		}
	}
	return nil
}

// abundanceGrid adapts one row of H to plotter.GridXYZ. The y axis is
// flipped so row 0 plots at the top, matching image orientation.
type abundanceGrid struct {
	h      *mat.Dense
	row    int
	height int
	width  int
}

func (g *abundanceGrid) Dims() (int, int) { return g.width, g.height }
func (g *abundanceGrid) X(c int) float64  { return float64(c) }
func (g *abundanceGrid) Y(r int) float64  { return float64(r) }

func (g *abundanceGrid) Z(c, r int) float64 {
	y := g.height - 1 - r
	v := g.h.At(g.row, y*g.width+c)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func columnNames(dict *eds.Dictionary) []string {
	names := make([]string, 0, dict.Columns())
	names = append(names, dict.Elements()...)
	if dict.HasBackground() {
		names = append(names, eds.BackgroundB0, eds.BackgroundB1)
	}
	return names
}

// generateColors creates a palette of distinct colors for contribution lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
