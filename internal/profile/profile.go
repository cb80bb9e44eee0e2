// Package profile builds a dataset overview report: schema, missing values,
// per-column statistics, group summaries and correlations.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/carlens/internal/aggregate"
	"github.com/KaramelBytes/carlens/internal/clip"
	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/loader"
)

// Options controls report contents.
type Options struct {
	// SampleRows determines how many head rows to include; 0 disables
	// samples and a negative value selects the default of 5.
	SampleRows int
	// TopValues limits the categorical top list.
	TopValues int
	// GroupBy computes per-group numeric means for the given column.
	GroupBy []listing.Column
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outliers counts values with robust |z| above OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions mirrors the notebook overview: head of 5 rows, top values,
// correlations and outlier counts.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		TopValues:        8,
		Correlations:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly analysis of a listing table.
type Report struct {
	Name     string           `json:"name" yaml:"name"`
	Rows     int              `json:"rows" yaml:"rows"`
	Cols     []ColumnSummary  `json:"columns" yaml:"columns"`
	Samples  [][]string       `json:"samples,omitempty" yaml:"samples,omitempty"`
	Groups   []GroupResult    `json:"groups,omitempty" yaml:"groups,omitempty"`
	Corr     *CorrMatrix      `json:"correlations,omitempty" yaml:"correlations,omitempty"`
	Cleaning *loader.Cleaning `json:"cleaning,omitempty" yaml:"cleaning,omitempty"`
	Warnings []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ColumnSummary captures the declared kind and statistics of one column.
type ColumnSummary struct {
	Name    string `json:"name" yaml:"name"`
	Kind    string `json:"kind" yaml:"kind"`
	NonNull int    `json:"non_null" yaml:"non_null"`
	Missing int    `json:"missing" yaml:"missing"`
	Unique  int    `json:"unique" yaml:"unique"`

	Min  float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Mean float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std  float64 `json:"std,omitempty" yaml:"std,omitempty"`

	OutliersCount    int     `json:"outliers,omitempty" yaml:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z,omitempty" yaml:"outliers_max_abs_z,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty" yaml:"outlier_threshold,omitempty"`

	TopValues []aggregate.CategoryCount `json:"top_values,omitempty" yaml:"top_values,omitempty"`
	First     string                    `json:"first,omitempty" yaml:"first,omitempty"`
	Last      string                    `json:"last,omitempty" yaml:"last,omitempty"`
}

// GroupResult holds numeric means for one group key.
type GroupResult struct {
	Key     string                `json:"key" yaml:"key"`
	Size    int                   `json:"size" yaml:"size"`
	Metrics map[string]NumSummary `json:"metrics" yaml:"metrics"`
}

type NumSummary struct {
	Count int     `json:"count" yaml:"count"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Mean  float64 `json:"mean" yaml:"mean"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns" yaml:"columns"`
	Values  [][]float64 `json:"values" yaml:"values"`
}

// Analyze profiles t. cleaning may be nil.
func Analyze(name string, t *listing.Table, cleaning *loader.Cleaning, opt Options) *Report {
	rep := &Report{Name: name, Rows: t.Len(), Cleaning: cleaning}
	if opt.SampleRows < 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 8
	}

	var numeric []listing.Column
	for _, col := range listing.Columns() {
		s := ColumnSummary{Name: col.Name(), Kind: col.Kind().String()}
		switch col.Kind() {
		case listing.Categorical:
			summarizeCategorical(t, col, &s, opt)
		case listing.Date:
			summarizeDate(t, col, &s)
		default:
			summarizeNumeric(t, col, &s, opt)
			if s.NonNull > 0 {
				numeric = append(numeric, col)
			}
		}
		rep.Cols = append(rep.Cols, s)
	}

	head := t.Head(opt.SampleRows)
	for i := 0; i < head.Len(); i++ {
		r := head.Row(i)
		rec := make([]string, 0, len(rep.Cols))
		for _, col := range listing.Columns() {
			rec = append(rec, r.Value(col).Text)
		}
		rep.Samples = append(rep.Samples, rec)
	}

	if len(opt.GroupBy) > 0 {
		rep.Groups = groupBy(t, opt.GroupBy, numeric)
	}
	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = correlations(t, numeric)
	}
	if cleaning != nil && cleaning.Duplicates > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d duplicate rows in source", cleaning.Duplicates))
	}
	if cleaning != nil && len(cleaning.Ignored) > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("ignored columns: %s", strings.Join(cleaning.Ignored, ", ")))
	}
	return rep
}

func summarizeCategorical(t *listing.Table, col listing.Column, s *ColumnSummary, opt Options) {
	counts, _ := aggregate.CountByCategory(t, col)
	for _, c := range counts {
		s.NonNull += c.Count
	}
	s.Missing = t.Len() - s.NonNull
	s.Unique = len(counts)
	s.TopValues = aggregate.TopN(counts, opt.TopValues)
}

func summarizeDate(t *listing.Table, col listing.Column, s *ColumnSummary) {
	seen := map[string]struct{}{}
	for i := 0; i < t.Len(); i++ {
		v := t.Row(i).Value(col)
		if v.Missing {
			s.Missing++
			continue
		}
		s.NonNull++
		seen[v.Text] = struct{}{}
		if s.First == "" || v.Text < s.First {
			s.First = v.Text
		}
		if v.Text > s.Last {
			s.Last = v.Text
		}
	}
	s.Unique = len(seen)
}

func summarizeNumeric(t *listing.Table, col listing.Column, s *ColumnSummary, opt Options) {
	vals := t.Values(col)
	s.NonNull = len(vals)
	s.Missing = t.Len() - len(vals)
	if len(vals) == 0 {
		return
	}
	// Welford
	var n int
	var mean, m2 float64
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	seen := map[float64]struct{}{}
	for _, x := range vals {
		seen[x] = struct{}{}
		n++
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	s.Unique = len(seen)
	s.Mean = mean
	if n > 1 {
		s.Std = math.Sqrt(m2 / float64(n-1))
	}
	if opt.Outliers && col.Kind() != listing.Flag && len(vals) >= 8 {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		median, mad := medianMAD(vals)
		s.OutlierThreshold = thr
		if mad > 0 {
			for _, v := range vals {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > thr {
					s.OutliersCount++
				}
				s.OutliersMaxAbsZ = math.Max(s.OutliersMaxAbsZ, az)
			}
		}
	}
}

func groupBy(t *listing.Table, keys []listing.Column, numeric []listing.Column) []GroupResult {
	type acc struct {
		size          int
		sum, min, max map[listing.Column]float64
		cnt           map[listing.Column]int
	}
	groups := map[string]*acc{}
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			v, _ := r.Category(k)
			parts = append(parts, fmt.Sprintf("%s=%s", k.Name(), safeVal(v)))
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[listing.Column]float64{}, min: map[listing.Column]float64{}, max: map[listing.Column]float64{}, cnt: map[listing.Column]int{}}
			groups[key] = g
		}
		g.size++
		for _, c := range numeric {
			x, ok := r.Number(c)
			if !ok {
				continue
			}
			if g.cnt[c] == 0 || x < g.min[c] {
				g.min[c] = x
			}
			if g.cnt[c] == 0 || x > g.max[c] {
				g.max[c] = x
			}
			g.sum[c] += x
			g.cnt[c]++
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, g := range groups {
		gr := GroupResult{Key: k, Size: g.size, Metrics: map[string]NumSummary{}}
		for _, c := range numeric {
			if g.cnt[c] == 0 {
				continue
			}
			gr.Metrics[c.Name()] = NumSummary{Count: g.cnt[c], Min: g.min[c], Max: g.max[c], Mean: g.sum[c] / float64(g.cnt[c])}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

func correlations(t *listing.Table, cols []listing.Column) *CorrMatrix {
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i, c := range cols {
		m.Columns[i] = c.Name()
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := pearson(t, cols[a], cols[b])
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

// pearson uses pairwise-complete rows; undefined results are reported as 0.
func pearson(t *listing.Table, a, b listing.Column) float64 {
	var n, sx, sy, sxx, syy, sxy float64
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		x, okx := r.Number(a)
		y, oky := r.Number(b)
		if !okx || !oky {
			continue
		}
		n++
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
	}
	if n < 2 {
		return 0
	}
	denom := math.Sqrt((n*sxx - sx*sx) * (n*syy - sy*sy))
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	r := (n*sxy - sx*sy) / denom
	return math.Max(-1, math.Min(1, r))
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = clip.Quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = clip.Quantile(dev, 0.5)
	return
}
