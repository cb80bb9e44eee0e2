// Package aggregate reduces a listing table to chart-ready summaries. Every
// function is pure: the input table is only read.
package aggregate

import (
	"math"
	"sort"

	"github.com/KaramelBytes/carlens/internal/clip"
	"github.com/KaramelBytes/carlens/internal/listing"
)

// CategoryCount is one bar of a frequency chart.
type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Bin is one histogram bucket covering [Lower, Upper); the last bin of a
// histogram also includes Upper.
type Bin struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Count int     `json:"count" yaml:"count"`
}

// Point is one scatter mark.
type Point struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Color string  `json:"color" yaml:"color"`
}

// CountByCategory counts rows per value of col, descending by count. Ties keep
// the order in which values first appear in t. Missing cells are skipped, so
// the counts sum to the number of rows with a value.
func CountByCategory(t *listing.Table, col listing.Column) ([]CategoryCount, error) {
	if !col.Valid() {
		return nil, &listing.InvalidFilterError{Column: col.Name(), Reason: "unknown column"}
	}
	index := map[string]int{}
	var out []CategoryCount
	for i := 0; i < t.Len(); i++ {
		v, ok := t.Row(i).Category(col)
		if !ok {
			continue
		}
		j, seen := index[v]
		if !seen {
			j = len(out)
			index[v] = j
			out = append(out, CategoryCount{Value: v})
		}
		out[j].Count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out, nil
}

// TopN returns the first n entries of counts (all when n <= 0).
func TopN(counts []CategoryCount, n int) []CategoryCount {
	if n <= 0 || n >= len(counts) {
		return counts
	}
	return counts[:n]
}

// Histogram splits the observed range of col in t into bins equal-width
// buckets. A constant column is widened by 0.5 on each side.
func Histogram(t *listing.Table, col listing.Column, bins int) ([]Bin, error) {
	if !col.Valid() || !col.Kind().Numeric() {
		return nil, &listing.InvalidFilterError{Column: col.Name(), Reason: "histogram needs a numeric column"}
	}
	if bins <= 0 {
		return nil, &listing.InvalidFilterError{Column: col.Name(), Value: listing.FormatNumber(float64(bins)), Reason: "bin count must be positive"}
	}
	vals := t.Values(col)
	if len(vals) == 0 {
		return nil, &listing.EmptyColumnError{Column: col.Name()}
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		// Float rounding can land a value one bin off its edges.
		for i > 0 && v < out[i].Lower {
			i--
		}
		for i < bins-1 && v >= out[i+1].Lower {
			i++
		}
		out[i].Count++
	}
	return out, nil
}

// Density estimates col's probability density with a Gaussian kernel and
// Scott's bandwidth, evaluated at points evenly spaced over the observed
// range. It returns nil when fewer than two values or no spread exist.
func Density(t *listing.Table, col listing.Column, points int) ([]Point, error) {
	if !col.Valid() || !col.Kind().Numeric() {
		return nil, &listing.InvalidFilterError{Column: col.Name(), Reason: "density needs a numeric column"}
	}
	if points < 2 {
		return nil, &listing.InvalidFilterError{Column: col.Name(), Value: listing.FormatNumber(float64(points)), Reason: "need at least two evaluation points"}
	}
	vals := t.Values(col)
	if len(vals) == 0 {
		return nil, &listing.EmptyColumnError{Column: col.Name()}
	}
	n := float64(len(vals))
	var mean, m2 float64
	lo, hi := vals[0], vals[0]
	for i, v := range vals {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(vals) < 2 || m2 == 0 {
		return nil, nil
	}
	h := math.Sqrt(m2/(n-1)) * math.Pow(n, -0.2)
	norm := 1 / (n * h * math.Sqrt(2*math.Pi))
	step := (hi - lo) / float64(points-1)
	out := make([]Point, points)
	for i := range out {
		x := lo + float64(i)*step
		var sum float64
		for _, v := range vals {
			z := (x - v) / h
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = Point{X: x, Y: sum * norm}
	}
	return out, nil
}

// ScatterPairs projects every row with values in all three columns. color may
// be any column; numeric colors are rendered as text.
func ScatterPairs(t *listing.Table, x, y, color listing.Column) ([]Point, error) {
	for _, c := range []listing.Column{x, y} {
		if !c.Valid() || !c.Kind().Numeric() {
			return nil, &listing.InvalidFilterError{Column: c.Name(), Reason: "scatter axes need numeric columns"}
		}
	}
	if !color.Valid() {
		return nil, &listing.InvalidFilterError{Column: color.Name(), Reason: "unknown column"}
	}
	out := make([]Point, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		xv, okx := r.Number(x)
		yv, oky := r.Number(y)
		cv, okc := r.Category(color)
		if okx && oky && okc {
			out = append(out, Point{X: xv, Y: yv, Color: cv})
		}
	}
	return out, nil
}

// Summary is a describe()-style digest of one numeric column.
type Summary struct {
	Column listing.Column `json:"column" yaml:"column"`
	Count  int            `json:"count" yaml:"count"`
	Mean   float64        `json:"mean" yaml:"mean"`
	Std    float64        `json:"std" yaml:"std"`
	Min    float64        `json:"min" yaml:"min"`
	Q1     float64        `json:"q1" yaml:"q1"`
	Median float64        `json:"median" yaml:"median"`
	Q3     float64        `json:"q3" yaml:"q3"`
	Max    float64        `json:"max" yaml:"max"`
}

// Describe summarizes col. Std is the sample standard deviation (0 for a
// single value).
func Describe(t *listing.Table, col listing.Column) (Summary, error) {
	s := Summary{Column: col}
	if !col.Valid() || !col.Kind().Numeric() {
		return s, &listing.InvalidFilterError{Column: col.Name(), Reason: "describe needs a numeric column"}
	}
	vals := t.Values(col)
	if len(vals) == 0 {
		return s, &listing.EmptyColumnError{Column: col.Name()}
	}
	sort.Float64s(vals)
	s.Count = len(vals)
	var sum float64
	for _, v := range vals {
		sum += v
	}
	s.Mean = sum / float64(s.Count)
	if s.Count > 1 {
		var ss float64
		for _, v := range vals {
			d := v - s.Mean
			ss += d * d
		}
		s.Std = math.Sqrt(ss / float64(s.Count-1))
	}
	s.Min, s.Max = vals[0], vals[len(vals)-1]
	s.Q1 = clip.Quantile(vals, 0.25)
	s.Median = clip.Quantile(vals, 0.5)
	s.Q3 = clip.Quantile(vals, 0.75)
	return s, nil
}
