package render

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/adriente/esmpy/internal/eds"
)

// viridis ramp shared by all heatmap visual maps.
var heatmapRamp = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// WriteHTMLReport renders a standalone HTML page for a quantification
// result: one interactive heatmap per element map plus a bar chart of the
// mean concentration over valid pixels.
func WriteHTMLReport(path string, q *eds.Quantification) error {
	if q == nil || len(q.Elements) == 0 {
		return fmt.Errorf("render: empty quantification")
	}

	page := components.NewPage()
	page.PageTitle = "Quantification report"

	for _, element := range q.Elements {
		chart, err := elementHeatmap(q, element)
		if err != nil {
			return err
		}
		page.AddCharts(chart)
	}
	page.AddCharts(meanConcentrationBar(q))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create report file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render: render report: %w", err)
	}
	return nil
}

func elementHeatmap(q *eds.Quantification, element string) (*charts.HeatMap, error) {
	grid, err := q.Map(element)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	data := make([]opts.HeatMapData, 0, q.Height*q.Width)
	maxVal := 0.0
	for y := 0; y < q.Height; y++ {
		for x := 0; x < q.Width; x++ {
			v := grid[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v > maxVal {
				maxVal = v
			}
			// ECharts heatmap y runs bottom-up; flip to image orientation.
			data = append(data, opts.HeatMapData{Value: [3]interface{}{x, q.Height - 1 - y, v}})
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	xLabels := make([]int, q.Width)
	for x := range xLabels {
		xLabels[x] = x
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s concentration", element), Subtitle: fmt.Sprintf("grid=%dx%d, atomic %%", q.Height, q.Width)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "x (px)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "y (px)"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: heatmapRamp},
		}),
	)
	hm.SetXAxis(xLabels).AddSeries(element, data)
	return hm, nil
}

func meanConcentrationBar(q *eds.Quantification) *charts.Bar {
	x := make([]string, len(q.Elements))
	y := make([]opts.BarData, len(q.Elements))
	for i, element := range q.Elements {
		x[i] = element
		y[i] = opts.BarData{Value: meanValid(q, i)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean concentration", Subtitle: "atomic %, masked pixels excluded"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("mean", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func meanValid(q *eds.Quantification, row int) float64 {
	_, pixels := q.Maps.Dims()
	sum, n := 0.0, 0
	for p := 0; p < pixels; p++ {
		v := q.Maps.At(row, p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
