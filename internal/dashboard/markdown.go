package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/profile"
)

// Markdown renders the dashboard as text for terminals.
func (d *Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("[DASHBOARD]\n")
	b.WriteString(fmt.Sprintf("Session: %s\n", d.SessionID))
	if d.Dataset != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", d.Dataset))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", d.Rows))
	if f := describeFilters(d.State); f != "" {
		b.WriteString(fmt.Sprintf("Filters: %s\n", f))
	}
	b.WriteString("\n[RAW DATA PREVIEW]\n")
	b.WriteString(profile.Table(d.Preview.Columns, d.Preview.Rows))
	for _, c := range d.Charts() {
		b.WriteString("\n")
		b.WriteString(c.Markdown())
	}
	return b.String()
}

// Markdown renders one chart payload as a text table.
func (c Chart) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]\n", strings.ToUpper(c.Title)))
	if c.Error != "" {
		b.WriteString(fmt.Sprintf("✗ %s\n", c.Error))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", c.Rows))
	if c.Clip != nil {
		if c.Clip.Policy == "below" {
			b.WriteString(fmt.Sprintf("Clipped: %s < %s\n", c.Clip.Column, listing.FormatNumber(round2(c.Clip.High))))
		} else {
			b.WriteString(fmt.Sprintf("Clipped: %s < %s < %s\n", listing.FormatNumber(round2(c.Clip.Low)), c.Clip.Column, listing.FormatNumber(round2(c.Clip.High))))
		}
	}
	if c.XMax > 0 {
		b.WriteString(fmt.Sprintf("Visible up to: %s\n", listing.FormatNumber(round2(c.XMax))))
	}
	switch c.Kind {
	case Bar:
		rows := make([][]string, 0, len(c.Categories))
		for _, cc := range c.Categories {
			rows = append(rows, []string{cc.Value, fmt.Sprint(cc.Count)})
		}
		b.WriteString(profile.Table([]string{c.XLabel, c.YLabel}, rows))
	case Histogram:
		rows := make([][]string, 0, len(c.Bins))
		for _, bin := range c.Bins {
			rows = append(rows, []string{
				fmt.Sprintf("%.4g", bin.Lower),
				fmt.Sprintf("%.4g", bin.Upper),
				fmt.Sprint(bin.Count),
			})
		}
		b.WriteString(profile.Table([]string{"from", "to", c.YLabel}, rows))
		if len(c.Curve) > 0 {
			peak := c.Curve[0]
			for _, p := range c.Curve[1:] {
				if p.Y > peak.Y {
					peak = p
				}
			}
			b.WriteString(fmt.Sprintf("Density peak: %s near %s\n", strconv.FormatFloat(round2(peak.Y), 'f', -1, 64), listing.FormatNumber(round2(peak.X))))
		}
	case Scatter:
		b.WriteString(fmt.Sprintf("Points: %d\n", len(c.Points)))
		limit := len(c.Points)
		if limit > 10 {
			limit = 10
		}
		rows := make([][]string, 0, limit)
		for _, p := range c.Points[:limit] {
			rows = append(rows, []string{listing.FormatNumber(p.X), listing.FormatNumber(p.Y), p.Color})
		}
		b.WriteString(profile.Table([]string{c.XLabel, c.YLabel, "condition"}, rows))
	}
	return b.String()
}

func describeFilters(st State) string {
	var parts []string
	for _, col := range st.Filters.Columns() {
		parts = append(parts, fmt.Sprintf("%s=%s", col.Name(), strings.Join(st.Filters[col], ",")))
	}
	if st.ScatterBrand != "" {
		parts = append(parts, "scatter brand="+st.ScatterBrand)
	}
	if st.ClipPrice {
		parts = append(parts, "price clip")
	}
	if st.ClipDaysListed {
		parts = append(parts, "days_listed clip")
	}
	if st.ClipAfterFilter && (st.ClipPrice || st.ClipDaysListed) {
		parts = append(parts, "clip after filter")
	}
	return strings.Join(parts, "; ")
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
