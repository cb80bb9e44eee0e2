// Package dashboard runs the full clip, filter and aggregate cycle for one
// session and shapes the results into chart payloads.
package dashboard

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/KaramelBytes/carlens/internal/aggregate"
	"github.com/KaramelBytes/carlens/internal/clip"
	"github.com/KaramelBytes/carlens/internal/filter"
	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/utils"
)

// State is the widget state a render is computed from. It is discarded after
// each render.
type State struct {
	Filters filter.Spec `json:"filters" yaml:"filters"`

	ClipPrice       bool `json:"clip_price" yaml:"clip_price"`
	ClipDaysListed  bool `json:"clip_days_listed" yaml:"clip_days_listed"`
	ClipAfterFilter bool `json:"clip_after_filter" yaml:"clip_after_filter"`

	// ScatterBrand narrows the price/mileage scatter to one brand; "" or All
	// keeps every brand.
	ScatterBrand string `json:"scatter_brand" yaml:"scatter_brand"`

	TopN      int     `json:"top_n" yaml:"top_n"`
	Bins      int     `json:"bins" yaml:"bins"`
	PriceLow  float64 `json:"price_low" yaml:"price_low"`
	PriceHigh float64 `json:"price_high" yaml:"price_high"`
	DaysHigh  float64 `json:"days_high" yaml:"days_high"`
	PriceView float64 `json:"price_view" yaml:"price_view"`
	Preview   int     `json:"preview" yaml:"preview"`
}

// DefaultState returns the dashboard's initial widget state: no filters, no
// clipping, 1st to 99th percentile bounds when clipping is enabled.
func DefaultState() State {
	return State{
		Filters:   filter.Spec{},
		TopN:      10,
		Bins:      50,
		PriceLow:  0.01,
		PriceHigh: 0.99,
		DaysHigh:  0.99,
		PriceView: 0.95,
		Preview:   5,
	}
}

// ChartKind names the rendering a payload is shaped for.
type ChartKind string

const (
	Bar       ChartKind = "bar"
	Histogram ChartKind = "histogram"
	Scatter   ChartKind = "scatter"
)

// Chart is one render-ready payload. When Error is set the data fields are
// empty and the chart should show the message instead.
type Chart struct {
	Name   string    `json:"name" yaml:"name"`
	Kind   ChartKind `json:"kind" yaml:"kind"`
	Title  string    `json:"title" yaml:"title"`
	XLabel string    `json:"x_label" yaml:"x_label"`
	YLabel string    `json:"y_label" yaml:"y_label"`
	Rows   int       `json:"rows" yaml:"rows"`

	Clip *clip.Bounds `json:"clip,omitempty" yaml:"clip,omitempty"`
	// XMax limits the visible x range without changing the binning.
	XMax float64 `json:"x_max,omitempty" yaml:"x_max,omitempty"`

	Categories []aggregate.CategoryCount `json:"categories,omitempty" yaml:"categories,omitempty"`
	Bins       []aggregate.Bin           `json:"bins,omitempty" yaml:"bins,omitempty"`
	Points     []aggregate.Point         `json:"points,omitempty" yaml:"points,omitempty"`
	// Curve is a density line scaled to the histogram's counts.
	Curve []aggregate.Point `json:"curve,omitempty" yaml:"curve,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Preview is the head-of-table view.
type Preview struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Dashboard is the output of one render cycle.
type Dashboard struct {
	SessionID string  `json:"session_id" yaml:"session_id"`
	Dataset   string  `json:"dataset" yaml:"dataset"`
	Rows      int     `json:"rows" yaml:"rows"`
	State     State   `json:"state" yaml:"state"`
	Preview   Preview `json:"preview" yaml:"preview"`

	Brands            Chart `json:"brands" yaml:"brands"`
	DaysListed        Chart `json:"days_listed" yaml:"days_listed"`
	PriceMileage      Chart `json:"price_mileage" yaml:"price_mileage"`
	PriceDistribution Chart `json:"price_distribution" yaml:"price_distribution"`
}

// Charts returns the chart payloads in display order.
func (d *Dashboard) Charts() []Chart {
	return []Chart{d.Brands, d.DaysListed, d.PriceMileage, d.PriceDistribution}
}

// Chart names accepted by Session.Chart.
const (
	ChartBrands  = "brands"
	ChartDays    = "days"
	ChartPrice   = "price"
	ChartScatter = "scatter"
)

// ChartNames lists the chart names in display order.
func ChartNames() []string {
	return []string{ChartBrands, ChartDays, ChartScatter, ChartPrice}
}

// Session owns a private copy of a loaded table. Sessions are not safe for
// concurrent use; each user gets their own.
type Session struct {
	ID      string
	Dataset string

	table *listing.Table
	log   *utils.Logger
}

// NewSession copies t into a new session. log may be nil.
func NewSession(dataset string, t *listing.Table, log *utils.Logger) *Session {
	if log == nil {
		log = utils.Discard()
	}
	return &Session{ID: uuid.NewString(), Dataset: dataset, table: t.Clone(), log: log}
}

// Table returns a copy of the session's table.
func (s *Session) Table() *listing.Table { return s.table.Clone() }

// Render recomputes every chart from st. A failing chart carries its error
// inline; the remaining charts are unaffected.
func (s *Session) Render(st State) *Dashboard {
	st = normalize(st)
	d := &Dashboard{
		SessionID: s.ID,
		Dataset:   s.Dataset,
		Rows:      s.table.Len(),
		State:     st,
		Preview:   preview(s.table, st.Preview),
	}
	d.Brands = s.chart(ChartBrands, st)
	d.DaysListed = s.chart(ChartDays, st)
	d.PriceMileage = s.chart(ChartScatter, st)
	d.PriceDistribution = s.chart(ChartPrice, st)
	return d
}

// Chart renders a single chart by name.
func (s *Session) Chart(name string, st State) (Chart, error) {
	switch name {
	case ChartBrands, ChartDays, ChartScatter, ChartPrice:
		return s.chart(name, normalize(st)), nil
	}
	return Chart{}, fmt.Errorf("unknown chart %q (want one of %v)", name, ChartNames())
}

func (s *Session) chart(name string, st State) Chart {
	var c Chart
	var err error
	switch name {
	case ChartBrands:
		c, err = s.brands(st)
	case ChartDays:
		c, err = s.daysListed(st)
	case ChartScatter:
		c, err = s.priceMileage(st)
	case ChartPrice:
		c, err = s.priceDistribution(st)
	}
	c.Name = name
	if err != nil {
		s.log.Warn("session %s: chart %s: %v", s.ID, name, err)
		c = Chart{Name: name, Kind: c.Kind, Title: c.Title, XLabel: c.XLabel, YLabel: c.YLabel, Error: err.Error()}
	}
	return c
}

// clipFunc applies one clip to a table and reports the bounds used.
type clipFunc func(*listing.Table) (*listing.Table, clip.Bounds, error)

// prepare filters t and, when cf is set, clips it in the order st asks for.
// Bounds always come from the table handed to the clipper.
func prepare(t *listing.Table, spec filter.Spec, cf clipFunc, after bool) (*listing.Table, *clip.Bounds, error) {
	if cf == nil {
		out, err := filter.Apply(t, spec)
		return out, nil, err
	}
	if after {
		out, err := filter.Apply(t, spec)
		if err != nil {
			return nil, nil, err
		}
		out, b, err := cf(out)
		return out, &b, err
	}
	out, b, err := cf(t)
	if err != nil {
		return nil, nil, err
	}
	out, err = filter.Apply(out, spec)
	return out, &b, err
}

func (s *Session) brands(st State) (Chart, error) {
	c := Chart{Kind: Bar, Title: fmt.Sprintf("Top %d Most Common Car Brands", st.TopN), XLabel: "Brand", YLabel: "Number of Listings"}
	t, _, err := prepare(s.table, st.Filters, nil, false)
	if err != nil {
		return c, err
	}
	counts, err := aggregate.CountByCategory(t, listing.Brand)
	if err != nil {
		return c, err
	}
	c.Rows = t.Len()
	c.Categories = aggregate.TopN(counts, st.TopN)
	return c, nil
}

func (s *Session) daysListed(st State) (Chart, error) {
	c := Chart{Kind: Histogram, Title: "Days Listed", XLabel: "Days Listed", YLabel: "Count"}
	var cf clipFunc
	if st.ClipDaysListed {
		cf = func(t *listing.Table) (*listing.Table, clip.Bounds, error) {
			return clip.Duration(t, listing.DaysListed, st.DaysHigh)
		}
	}
	t, b, err := prepare(s.table, st.Filters, cf, st.ClipAfterFilter)
	if err != nil {
		return c, err
	}
	c.Clip = b
	c.Rows = t.Len()
	c.Bins, err = aggregate.Histogram(t, listing.DaysListed, st.Bins)
	return c, err
}

func (s *Session) priceMileage(st State) (Chart, error) {
	c := Chart{Kind: Scatter, Title: "Mileage vs. Price", XLabel: "Mileage (Odometer)", YLabel: "Price"}
	narrow := st.ScatterBrand != "" && st.ScatterBrand != filter.All
	if narrow {
		c.Title = fmt.Sprintf("Mileage vs. Price: %s", st.ScatterBrand)
	}
	var cf clipFunc
	if st.ClipPrice {
		cf = func(t *listing.Table) (*listing.Table, clip.Bounds, error) {
			return clip.Price(t, listing.Price, st.PriceLow, st.PriceHigh)
		}
	}
	t, b, err := prepare(s.table, st.Filters, cf, st.ClipAfterFilter)
	if err != nil {
		return c, err
	}
	// The brand selection narrows the filtered rows; it never widens a
	// brand filter already in st.Filters.
	if narrow {
		if t, err = filter.Apply(t, filter.Spec{listing.Brand: {st.ScatterBrand}}); err != nil {
			return c, err
		}
	}
	c.Clip = b
	c.Rows = t.Len()
	c.Points, err = aggregate.ScatterPairs(t, listing.Odometer, listing.Price, listing.Condition)
	return c, err
}

const densityPoints = 200

// priceDistribution bins the full price range and limits the visible range
// to the PriceView quantile.
func (s *Session) priceDistribution(st State) (Chart, error) {
	c := Chart{
		Kind:   Histogram,
		Title:  fmt.Sprintf("Distribution of Car Prices (%s Quantile)", ordinalPercent(st.PriceView)),
		XLabel: "Price",
		YLabel: "Count",
	}
	t, _, err := prepare(s.table, st.Filters, nil, false)
	if err != nil {
		return c, err
	}
	bins, err := aggregate.Histogram(t, listing.Price, st.Bins)
	if err != nil {
		return c, err
	}
	vals := t.Values(listing.Price)
	sort.Float64s(vals)
	c.XMax = clip.Quantile(vals, st.PriceView)
	c.Rows = t.Len()
	for _, bin := range bins {
		if bin.Lower <= c.XMax {
			c.Bins = append(c.Bins, bin)
		}
	}
	curve, err := aggregate.Density(t, listing.Price, densityPoints)
	if err != nil {
		return c, err
	}
	// density × rows × bin width puts the curve on the count axis
	scale := float64(len(vals)) * (bins[0].Upper - bins[0].Lower)
	for _, p := range curve {
		if p.X <= c.XMax {
			c.Curve = append(c.Curve, aggregate.Point{X: p.X, Y: p.Y * scale})
		}
	}
	return c, nil
}

func preview(t *listing.Table, n int) Preview {
	p := Preview{}
	for _, col := range listing.Columns() {
		p.Columns = append(p.Columns, col.Name())
	}
	head := t.Head(n)
	for i := 0; i < head.Len(); i++ {
		r := head.Row(i)
		rec := make([]string, 0, len(p.Columns))
		for _, col := range listing.Columns() {
			rec = append(rec, r.Value(col).Text)
		}
		p.Rows = append(p.Rows, rec)
	}
	return p
}

func normalize(st State) State {
	def := DefaultState()
	if st.Filters == nil {
		st.Filters = filter.Spec{}
	}
	if st.TopN <= 0 {
		st.TopN = def.TopN
	}
	if st.Bins <= 0 {
		st.Bins = def.Bins
	}
	if st.Preview <= 0 {
		st.Preview = def.Preview
	}
	if st.PriceView <= 0 || st.PriceView > 1 {
		st.PriceView = def.PriceView
	}
	return st
}

func ordinalPercent(q float64) string {
	n := int(q*100 + 0.5)
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
