// Package report renders analysis output: PNG spectra through gonum/plot and
// an HTML summary page through go-echarts.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/resonance.report/internal/histo"
)

// Series is one histogram drawn on a spectrum plot.
type Series struct {
	Label string
	H     *hbook.H1D
	Color color.Color
}

var palette = []color.Color{
	color.RGBA{A: 255},
	color.RGBA{R: 200, A: 255},
	color.RGBA{B: 220, A: 255},
	color.RGBA{G: 160, A: 255},
	color.RGBA{R: 255, G: 127, B: 127, A: 255},
}

// WriteSpectra draws the series as outlined histograms and saves the plot to
// path. The image format follows the file extension.
func WriteSpectra(path, title, xlabel string, series []Series) error {
	if len(series) == 0 {
		return fmt.Errorf("plot %q: no series", title)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Counts"

	for i, s := range series {
		if s.H == nil {
			return fmt.Errorf("plot %q: series %q has no histogram", title, s.Label)
		}
		c := s.Color
		if c == nil {
			c = palette[i%len(palette)]
		}
		h := hplot.NewH1D(s.H)
		h.FillColor = nil
		h.LineStyle.Color = c
		h.LineStyle.Width = vg.Points(1)
		h.Infos.Style = hplot.HInfoNone
		p.Add(h)
		if s.Label != "" {
			p.Legend.Add(s.Label, h)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// FromValues builds a 1-D histogram on axis a with one value per bin.
func FromValues(a histo.Axis, values []float64) (*hbook.H1D, error) {
	if len(values) != a.NBins() {
		return nil, fmt.Errorf("%w: %d values for %d bins", histo.ErrIncompatible, len(values), a.NBins())
	}
	h := hbook.NewH1DFromEdges(a.Edges)
	for i, v := range values {
		if v != 0 {
			h.Fill(a.Center(i), v)
		}
	}
	return h, nil
}

// WriteSubtraction plots the real spectrum, the scaled mixed-event
// background and their difference.
func WriteSubtraction(path, title string, sub *histo.Subtraction) error {
	var series []Series
	for _, s := range []struct {
		label  string
		values []float64
	}{
		{"same event", sub.Real},
		{fmt.Sprintf("mixed x %.4g", sub.Scale), sub.Mixed},
		{"signal", sub.Signal},
	} {
		h, err := FromValues(sub.Axis, s.values)
		if err != nil {
			return err
		}
		series = append(series, Series{Label: s.label, H: h})
	}
	return WriteSpectra(path, title, "M (GeV/c^2)", series)
}

// PlotFileName turns a histogram name such as "QAbefore/trkpT_pi" into a
// flat file name with the given extension.
func PlotFileName(name, ext string) string {
	var b strings.Builder
	sep := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
			sep = false
		default:
			if !sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "histogram"
	}
	return out + ext
}

// WriteOneDimensional saves every 1-D histogram of reg that has entries as a
// PNG in dir and returns the files written.
func WriteOneDimensional(dir string, reg *histo.Registry) ([]string, error) {
	var files []string
	for _, name := range reg.Names() {
		h := reg.Get(name)
		if h.Dims() != 1 || h.Entries() == 0 {
			continue
		}
		path := filepath.Join(dir, PlotFileName(name, ".png"))
		series := []Series{{H: h.Project(0, nil)}}
		if err := WriteSpectra(path, name, h.Axes()[0].Name, series); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}
