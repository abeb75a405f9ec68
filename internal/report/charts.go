package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/yardwatch/internal/db"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

var (
	yardColor   = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 0xc0}
	unloadColor = color.RGBA{R: 0xb5, G: 0xde, B: 0x2b, A: 0xc0}
)

func minutes(secs []float64) plotter.Values {
	out := make(plotter.Values, len(secs))
	for i, s := range secs {
		out[i] = s / 60
	}
	return out
}

func bins(n int) int {
	return int(math.Max(1, math.Ceil(math.Sqrt(float64(n)))))
}

// WriteDwellHistogram draws yard and unload dwell histograms as a PNG.
func WriteDwellHistogram(w io.Writer, recs []db.TransitRecord) error {
	yard, unload := Dwells(recs)
	if len(yard) == 0 && len(unload) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Dwell times (%d vehicles)", len(recs))
	p.X.Label.Text = "Dwell (min)"
	p.Y.Label.Text = "Vehicles"

	for _, series := range []struct {
		name string
		data []float64
		fill color.Color
	}{
		{"yard", yard, yardColor},
		{"unload", unload, unloadColor},
	} {
		if len(series.data) == 0 {
			continue
		}
		h, err := plotter.NewHist(minutes(series.data), bins(len(series.data)))
		if err != nil {
			return fmt.Errorf("%s histogram: %w", series.name, err)
		}
		h.FillColor = series.fill
		h.LineStyle.Width = vg.Points(0.5)
		p.Add(h)
		p.Legend.Add(series.name, h)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render dwell histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// WritePerformanceChart renders per-vehicle dwell times as an HTML bar chart.
// Vehicles are plotted oldest first.
func WritePerformanceChart(w io.Writer, recs []db.TransitRecord, now time.Time) error {
	if len(recs) == 0 {
		return ErrNoData
	}

	ids := make([]string, 0, len(recs))
	yard := make([]opts.BarData, 0, len(recs))
	unload := make([]opts.BarData, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		ids = append(ids, r.TorpedoID)
		y, unl := "-", "-"
		if d, ok := r.YardDwell(); ok {
			y = fmt.Sprintf("%.1f", d/60)
		}
		if d, ok := r.UnloadDwell(); ok {
			unl = fmt.Sprintf("%.1f", d/60)
		}
		yard = append(yard, opts.BarData{Value: y})
		unload = append(unload, opts.BarData{Value: unl})
	}

	s := Summarize(recs)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Yard Performance", Width: "100%", Height: "640px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Yard Performance",
			Subtitle: fmt.Sprintf("%s vehicles=%d mean yard dwell=%.1f min", now.Format(time.RFC3339), s.Vehicles, s.YardDwell.Mean/60),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Dwell (min)", NameLocation: "middle", NameGap: 40}),
	)
	bar.SetXAxis(ids).
		AddSeries("Yard dwell", yard).
		AddSeries("Unload dwell", unload)

	return bar.Render(w)
}
