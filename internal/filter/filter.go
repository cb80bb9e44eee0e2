// Package filter narrows a listing table to the rows permitted by a set of
// per-column value selections.
//
// Columns are AND-combined; values within a column are OR-combined. A
// selection containing All leaves its column unconstrained, while an empty
// selection matches nothing.
package filter

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/carlens/internal/listing"
)

// All is the reserved selection value meaning "no restriction on this column".
const All = "All"

// Spec maps columns to their permitted values.
type Spec map[listing.Column][]string

// Where returns a copy of s with col restricted to values.
func (s Spec) Where(col listing.Column, values ...string) Spec {
	out := make(Spec, len(s)+1)
	for c, v := range s {
		out[c] = v
	}
	out[col] = append([]string{}, values...)
	return out
}

// Columns returns the constrained columns in schema order.
func (s Spec) Columns() []listing.Column {
	cols := make([]listing.Column, 0, len(s))
	for c := range s {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

// ParseSpec resolves column names; unknown names fail with
// *listing.InvalidFilterError.
func ParseSpec(m map[string][]string) (Spec, error) {
	s := make(Spec, len(m))
	for name, vals := range m {
		col, ok := listing.ParseColumn(name)
		if !ok {
			return nil, &listing.InvalidFilterError{Column: name, Reason: "unknown column"}
		}
		s[col] = append(s[col], vals...)
	}
	return s, s.Validate()
}

// ParseExpr parses "column=v1,v2" expressions, e.g. from repeated CLI flags.
// A bare "column=" selects nothing.
func ParseExpr(exprs ...string) (Spec, error) {
	m := map[string][]string{}
	for _, e := range exprs {
		name, list, ok := strings.Cut(e, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, &listing.InvalidFilterError{Column: e, Reason: "expected column=value[,value...]"}
		}
		if _, exists := m[name]; !exists {
			m[name] = []string{}
		}
		for _, v := range strings.Split(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				m[name] = append(m[name], v)
			}
		}
	}
	return ParseSpec(m)
}

// Validate checks every column and value against the schema.
func (s Spec) Validate() error {
	for _, col := range s.Columns() {
		if !col.Valid() {
			return &listing.InvalidFilterError{Column: col.Name(), Reason: "unknown column"}
		}
		if _, err := matcherFor(col, s[col]); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns the rows of t permitted by s. t is not modified. Each column is
// evaluated independently, so the order of entries never affects the result.
func Apply(t *listing.Table, s Spec) (*listing.Table, error) {
	var ms []matcher
	for _, col := range s.Columns() {
		if !col.Valid() {
			return nil, &listing.InvalidFilterError{Column: col.Name(), Reason: "unknown column"}
		}
		m, err := matcherFor(col, s[col])
		if err != nil {
			return nil, err
		}
		if m != nil {
			ms = append(ms, m)
		}
	}
	if len(ms) == 0 {
		return t.Clone(), nil
	}
	return t.Where(func(r listing.Row) bool {
		for _, m := range ms {
			if !m(r) {
				return false
			}
		}
		return true
	}), nil
}

type matcher func(listing.Row) bool

// matcherFor returns nil when the selection is unconstrained.
func matcherFor(col listing.Column, values []string) (matcher, error) {
	for _, v := range values {
		if v == All {
			return nil, nil
		}
	}
	switch col.Kind() {
	case listing.NumericContinuous, listing.NumericDiscrete, listing.Flag:
		set := make(map[float64]struct{}, len(values))
		for _, v := range values {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(n) {
				return nil, &listing.InvalidFilterError{Column: col.Name(), Value: v, Reason: "not a number"}
			}
			if col.Kind() == listing.Flag && n != 0 && n != 1 {
				return nil, &listing.InvalidFilterError{Column: col.Name(), Value: v, Reason: "flag must be 0 or 1"}
			}
			set[n] = struct{}{}
		}
		return func(r listing.Row) bool {
			n, ok := r.Number(col)
			if !ok {
				return false
			}
			_, hit := set[n]
			return hit
		}, nil
	case listing.Date:
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			d, err := time.Parse(listing.DateLayout, strings.TrimSpace(v))
			if err != nil {
				return nil, &listing.InvalidFilterError{Column: col.Name(), Value: v, Reason: "expected YYYY-MM-DD"}
			}
			set[d.Format(listing.DateLayout)] = struct{}{}
		}
		return categoryMatcher(col, set), nil
	default:
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		return categoryMatcher(col, set), nil
	}
}

func categoryMatcher(col listing.Column, set map[string]struct{}) matcher {
	return func(r listing.Row) bool {
		v, ok := r.Category(col)
		if !ok {
			return false
		}
		_, hit := set[v]
		return hit
	}
}

// Options lists the selectable values for col in first-seen order, preceded
// by All. It backs multi-select widgets.
func Options(t *listing.Table, col listing.Column) []string {
	out := []string{All}
	seen := map[string]struct{}{}
	for i := 0; i < t.Len(); i++ {
		v, ok := t.Row(i).Category(col)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
