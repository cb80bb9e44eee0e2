// Package render draws dashboard chart payloads as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/carlens/internal/dashboard"
	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/utils"
)

// ErrNoData is returned for payloads with nothing to draw.
var ErrNoData = errors.New("chart has no data")

// Options controls image size.
type Options struct {
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1000
	}
	if h <= 0 {
		h = 500
	}
	return w, h
}

var background = chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}}

// PNG draws c to w. Charts that carry an inline error are not drawn.
func PNG(w io.Writer, c dashboard.Chart, opt Options) error {
	if c.Error != "" {
		return fmt.Errorf("chart %s: %s", c.Name, c.Error)
	}
	switch c.Kind {
	case dashboard.Bar:
		return bar(w, c, opt)
	case dashboard.Histogram:
		return histogram(w, c, opt)
	case dashboard.Scatter:
		return scatter(w, c, opt)
	}
	return fmt.Errorf("chart %s: unsupported kind %q", c.Name, c.Kind)
}

// WriteFile renders c into dir/<name>.png and returns the path.
func WriteFile(dir string, c dashboard.Chart, opt Options) (string, error) {
	var buf bytes.Buffer
	if err := PNG(&buf, c, opt); err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, c.Name+".png")
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func bar(w io.Writer, c dashboard.Chart, opt Options) error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("chart %s: %w", c.Name, ErrNoData)
	}
	bars := make([]chart.Value, 0, len(c.Categories))
	top := 0
	for _, cc := range c.Categories {
		bars = append(bars, chart.Value{Label: cc.Value, Value: float64(cc.Count)})
		if cc.Count > top {
			top = cc.Count
		}
	}
	return drawBars(w, c, bars, float64(top), opt)
}

// histogram draws bins as adjacent bars labelled by their lower edge; only
// every few labels are kept so they stay readable.
func histogram(w io.Writer, c dashboard.Chart, opt Options) error {
	if len(c.Bins) == 0 {
		return fmt.Errorf("chart %s: %w", c.Name, ErrNoData)
	}
	every := int(math.Ceil(float64(len(c.Bins)) / 10))
	bars := make([]chart.Value, 0, len(c.Bins))
	top := 0
	for i, b := range c.Bins {
		v := chart.Value{Value: float64(b.Count), Style: chart.Style{StrokeWidth: 0, FillColor: chart.ColorBlue}}
		if i%every == 0 {
			v.Label = fmt.Sprintf("%.4g", b.Lower)
		}
		bars = append(bars, v)
		if b.Count > top {
			top = b.Count
		}
	}
	return drawBars(w, c, bars, float64(top), opt)
}

func drawBars(w io.Writer, c dashboard.Chart, bars []chart.Value, top float64, opt Options) error {
	width, height := opt.size()
	if top <= 0 {
		top = 1
	}
	bc := chart.BarChart{
		Title:      c.Title,
		Background: background,
		Width:      width,
		Height:     height,
		BarSpacing: 2,
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  c.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", c.Name, err)
	}
	return nil
}

// scatter draws one dot series per color category.
func scatter(w io.Writer, c dashboard.Chart, opt Options) error {
	if len(c.Points) == 0 {
		return fmt.Errorf("chart %s: %w", c.Name, ErrNoData)
	}
	groups := map[string]*chart.ContinuousSeries{}
	var names []string
	xr := &chart.ContinuousRange{Min: math.Inf(1), Max: math.Inf(-1)}
	yr := &chart.ContinuousRange{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, p := range c.Points {
		s, ok := groups[p.Color]
		if !ok {
			s = &chart.ContinuousSeries{Name: p.Color}
			groups[p.Color] = s
			names = append(names, p.Color)
		}
		s.XValues = append(s.XValues, p.X)
		s.YValues = append(s.YValues, p.Y)
		xr.Min, xr.Max = math.Min(xr.Min, p.X), math.Max(xr.Max, p.X)
		yr.Min, yr.Max = math.Min(yr.Min, p.Y), math.Max(yr.Max, p.Y)
	}
	widen(xr)
	widen(yr)
	sort.Strings(names)

	series := make([]chart.Series, 0, len(names))
	for i, name := range names {
		s := groups[name]
		s.Style = pointStyle(chart.GetDefaultColor(i))
		series = append(series, *s)
	}
	width, height := opt.size()
	ch := chart.Chart{
		Title:      c.Title,
		Background: background,
		Width:      width,
		Height:     height,
		XAxis:      chart.XAxis{Name: c.XLabel, Range: xr, ValueFormatter: numberFormatter},
		YAxis:      chart.YAxis{Name: c.YLabel, Range: yr, ValueFormatter: numberFormatter},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", c.Name, err)
	}
	return nil
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

// widen keeps the axis at zero like the mileage chart's xlim and avoids a
// zero-width range.
func widen(r *chart.ContinuousRange) {
	if r.Min > 0 {
		r.Min = 0
	}
	if r.Max <= r.Min {
		r.Max = r.Min + 1
	}
}

func numberFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return listing.FormatNumber(math.Round(f))
	}
	return fmt.Sprint(v)
}
