package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/resonance.report/internal/histo"
)

// StatusCount is the number of B± candidates that ended with a given
// selection status.
type StatusCount struct {
	Label string
	Count int
}

// Spectrum is a named 1-D distribution shown as a line chart.
type Spectrum struct {
	Name   string
	Axis   histo.Axis
	Values []float64
}

// Summary is the content of the HTML report of one run.
type Summary struct {
	RunID      string
	Title      string
	AssetsHost string

	Selections  []StatusCount
	Subtraction *histo.Subtraction
	Spectra     []Spectrum
	Histograms  []HistogramInfo
}

// HistogramInfo is one row of the histogram inventory chart.
type HistogramInfo struct {
	Name    string
	Entries int64
}

// SortedStatusCounts converts a status histogram into chart rows in status
// order.
func SortedStatusCounts(counts map[uint8]int, label func(uint8) string) []StatusCount {
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	out := make([]StatusCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, StatusCount{Label: label(uint8(k)), Count: counts[uint8(k)]})
	}
	return out
}

// WriteHTML renders the summary as a single go-echarts page.
func WriteHTML(w io.Writer, s Summary) error {
	page := components.NewPage()
	if s.AssetsHost != "" {
		page.SetAssetsHost(s.AssetsHost)
	}
	if s.Title != "" {
		page.SetPageTitle(s.Title)
	}

	if len(s.Selections) > 0 {
		page.AddCharts(s.selectionChart())
	}
	if s.Subtraction != nil {
		page.AddCharts(s.subtractionChart())
	}
	for _, sp := range s.Spectra {
		c, err := s.spectrumChart(sp)
		if err != nil {
			return err
		}
		page.AddCharts(c)
	}
	if len(s.Histograms) > 0 {
		page.AddCharts(s.inventoryChart())
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func (s Summary) initOpts() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:  s.Title,
		Width:      "100%",
		Height:     "480px",
		AssetsHost: s.AssetsHost,
	})
}

func (s Summary) selectionChart() *charts.Bar {
	x := make([]string, 0, len(s.Selections))
	y := make([]opts.BarData, 0, len(s.Selections))
	for _, sc := range s.Selections {
		x = append(x, sc.Label)
		y = append(y, opts.BarData{Value: sc.Count})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		s.initOpts(),
		charts.WithTitleOpts(opts.Title{Title: "B± selection", Subtitle: "run " + s.RunID}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("candidates", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func (s Summary) subtractionChart() *charts.Line {
	sub := s.Subtraction
	line := charts.NewLine()
	line.SetGlobalOptions(
		s.initOpts(),
		charts.WithTitleOpts(opts.Title{
			Title:    "K1 invariant mass",
			Subtitle: "mixed-event scale " + strconv.FormatFloat(sub.Scale, 'g', 4, 64),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "M (GeV/c^2)", NameLocation: "middle", NameGap: 25}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(centers(sub.Axis)).
		AddSeries("same event", lineData(sub.Real)).
		AddSeries("mixed (scaled)", lineData(sub.Mixed)).
		AddSeries("signal", lineData(sub.Signal))
	return line
}

func (s Summary) spectrumChart(sp Spectrum) (*charts.Line, error) {
	if len(sp.Values) != sp.Axis.NBins() {
		return nil, fmt.Errorf("%w: spectrum %q has %d values for %d bins", histo.ErrIncompatible, sp.Name, len(sp.Values), sp.Axis.NBins())
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		s.initOpts(),
		charts.WithTitleOpts(opts.Title{Title: sp.Name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: sp.Axis.Name, NameLocation: "middle", NameGap: 25}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(centers(sp.Axis)).AddSeries(sp.Name, lineData(sp.Values))
	return line, nil
}

func (s Summary) inventoryChart() *charts.Bar {
	x := make([]string, 0, len(s.Histograms))
	y := make([]opts.BarData, 0, len(s.Histograms))
	for _, h := range s.Histograms {
		x = append(x, h.Name)
		y = append(y, opts.BarData{Value: h.Entries})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		s.initOpts(),
		charts.WithTitleOpts(opts.Title{Title: "Histogram entries"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("entries", y)
	return bar
}

func centers(a histo.Axis) []string {
	out := make([]string, a.NBins())
	for i := range out {
		out[i] = strconv.FormatFloat(a.Center(i), 'f', 4, 64)
	}
	return out
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}
	return out
}

// Inventory lists the histograms of reg that received entries, in
// definition order.
func Inventory(reg *histo.Registry) []HistogramInfo {
	var out []HistogramInfo
	for _, name := range reg.Names() {
		if n := reg.Get(name).Entries(); n > 0 {
			out = append(out, HistogramInfo{Name: name, Entries: n})
		}
	}
	return out
}
