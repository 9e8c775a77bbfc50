package report

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"signal-controller-go/internal/models"
)

var laneColors = map[models.LaneID]color.RGBA{
	models.LaneNorth: {R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
	models.LaneSouth: {R: 0x10, G: 0xb9, B: 0x81, A: 0xff},
	models.LaneEast:  {R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff},
	models.LaneWest:  {R: 0xef, G: 0x44, B: 0x44, A: 0xff},
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// DensityLineChart plots the density history of every lane with video
func DensityLineChart(snap models.Snapshot) *charts.Line {
	longest := 0
	for _, l := range snap.Lanes {
		if l.HasVideo && len(l.DensityHistory) > longest {
			longest = len(l.DensityHistory)
		}
	}
	x := make([]string, longest)
	for i := range x {
		x[i] = strconv.Itoa(i + 1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Traffic Density", Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Real-time Density Trends", Subtitle: fmt.Sprintf("session=%s tick=%d/%d", snap.SessionID, snap.Tick, snap.TotalTicks)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Sample", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Density (%)", Min: 0, Max: 100}),
	)
	line.SetXAxis(x)

	for _, l := range snap.Lanes {
		if !l.HasVideo {
			continue
		}
		data := make([]opts.LineData, 0, len(l.DensityHistory))
		for _, d := range l.DensityHistory {
			data = append(data, opts.LineData{Value: roundTo(d, 1)})
		}
		line.AddSeries(l.Name, data,
			charts.WithLineStyleOpts(opts.LineStyle{Color: hexColor(laneColors[l.ID]), Width: 2}),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
		)
	}
	return line
}

// ComparisonBarChart compares average and current density per lane
func ComparisonBarChart(s Summary) *charts.Bar {
	names := make([]string, 0, len(s.Lanes))
	avg := make([]opts.BarData, 0, len(s.Lanes))
	cur := make([]opts.BarData, 0, len(s.Lanes))
	for _, l := range s.Lanes {
		names = append(names, l.Name)
		avg = append(avg, opts.BarData{Value: roundInt(l.AvgDensity)})
		cur = append(cur, opts.BarData{Value: roundInt(l.CurrentDensity)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lane Comparison", Subtitle: fmt.Sprintf("efficiency=%d%% congestion=%s", s.EfficiencyScore, s.Congestion)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Density (%)", Min: 0, Max: 100}),
	)
	bar.SetXAxis(names).
		AddSeries("Average", avg, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("Current", cur, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// RenderCharts writes an HTML page with the density trend and lane comparison charts
func RenderCharts(w io.Writer, snap models.Snapshot) error {
	page := components.NewPage()
	page.PageTitle = "Traffic Analysis"
	page.AddCharts(DensityLineChart(snap), ComparisonBarChart(Summarize(snap)))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

// WriteDensityPlot renders the density history of every lane with video as a PNG
func WriteDensityPlot(w io.Writer, snap models.Snapshot) error {
	p := plot.New()
	p.Title.Text = "Lane density history"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Density (%)"
	p.Y.Min = 0
	p.Y.Max = 100
	p.Add(plotter.NewGrid())

	for _, l := range snap.Lanes {
		if !l.HasVideo || len(l.DensityHistory) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(l.DensityHistory))
		for i, d := range l.DensityHistory {
			pts[i] = plotter.XY{X: float64(i + 1), Y: d}
		}
		ln, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot lane %s: %w", l.ID, err)
		}
		ln.Color = laneColors[l.ID]
		ln.Width = vg.Points(1.5)
		p.Add(ln)
		p.Legend.Add(l.Name, ln)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("encode plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	return f
}
