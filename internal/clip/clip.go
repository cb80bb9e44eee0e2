// Package clip removes statistical outliers from a numeric column using
// quantile bounds computed from the table being clipped.
package clip

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/carlens/internal/listing"
)

// Policy selects which bounds a clip enforces.
type Policy int

const (
	// Between keeps low < v < high.
	Between Policy = iota
	// Below keeps v < high; the low quantile is ignored.
	Below
)

func (p Policy) String() string {
	switch p {
	case Between:
		return "between"
	case Below:
		return "below"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Bounds are the quantile values a clip was computed with.
type Bounds struct {
	Column listing.Column `json:"column" yaml:"column"`
	Policy string         `json:"policy" yaml:"policy"`
	Low    float64        `json:"low" yaml:"low"`
	High   float64        `json:"high" yaml:"high"`
}

// Quantile returns the q-th quantile of sorted using linear interpolation
// between closest ranks. sorted must be ascending and non-empty.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Clip returns the rows of t whose value in col lies inside the bounds given
// by policy. Bounds are computed from t itself; rows missing col are dropped.
func Clip(t *listing.Table, col listing.Column, low, high float64, policy Policy) (*listing.Table, Bounds, error) {
	b := Bounds{Column: col, Policy: policy.String()}
	if !col.Valid() || !col.Kind().Numeric() {
		return nil, b, &listing.InvalidFilterError{Column: col.Name(), Reason: "clipping needs a numeric column"}
	}
	if err := checkQuantiles(col, low, high, policy); err != nil {
		return nil, b, err
	}
	vals := t.Values(col)
	if len(vals) == 0 {
		return nil, b, &listing.EmptyColumnError{Column: col.Name()}
	}
	sort.Float64s(vals)
	b.Low, b.High = Quantile(vals, low), Quantile(vals, high)

	keep := func(v float64) bool { return v > b.Low && v < b.High }
	if policy == Below {
		keep = func(v float64) bool { return v < b.High }
	}
	out := t.Where(func(r listing.Row) bool {
		v, ok := r.Number(col)
		return ok && keep(v)
	})
	return out, b, nil
}

// Price clips col to the open inter-quantile range.
func Price(t *listing.Table, col listing.Column, low, high float64) (*listing.Table, Bounds, error) {
	return Clip(t, col, low, high, Between)
}

// Duration clips col from above only, as used for listing durations.
func Duration(t *listing.Table, col listing.Column, high float64) (*listing.Table, Bounds, error) {
	return Clip(t, col, 0, high, Below)
}

func checkQuantiles(col listing.Column, low, high float64, policy Policy) error {
	bad := func(q float64) bool { return math.IsNaN(q) || q < 0 || q > 1 }
	switch {
	case policy != Between && policy != Below:
		return &listing.InvalidFilterError{Column: col.Name(), Value: policy.String(), Reason: "unknown clip policy"}
	case bad(high):
		return &listing.InvalidFilterError{Column: col.Name(), Value: listing.FormatNumber(high), Reason: "quantile outside [0,1]"}
	case policy == Between && bad(low):
		return &listing.InvalidFilterError{Column: col.Name(), Value: listing.FormatNumber(low), Reason: "quantile outside [0,1]"}
	case policy == Between && low > high:
		return &listing.InvalidFilterError{Column: col.Name(), Reason: "low quantile exceeds high quantile"}
	}
	return nil
}
