package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/carlens/internal/listing"
)

// UnknownPaintColor replaces missing paint_color values.
const UnknownPaintColor = "unknown"

// Options controls how a data file is read.
type Options struct {
	// Delimiter for CSV. If 0, chosen by extension (tab for .tsv, else comma).
	Delimiter rune
	// SheetName selects an XLSX worksheet; SheetIndex (1-based) is used otherwise.
	SheetName  string
	SheetIndex int
}

// Cleaning summarizes the one-time cleaning pass applied at load.
type Cleaning struct {
	Source       string         `json:"source" yaml:"source"`
	Rows         int            `json:"rows" yaml:"rows"`
	Duplicates   int            `json:"duplicates" yaml:"duplicates"`
	RawMissing   map[string]int `json:"raw_missing" yaml:"raw_missing"`
	Filled       map[string]int `json:"filled" yaml:"filled"`
	BrandDerived bool           `json:"brand_derived" yaml:"brand_derived"`
	Ignored      []string       `json:"ignored_columns,omitempty" yaml:"ignored_columns,omitempty"`
}

// Result is a loaded, cleaned dataset.
type Result struct {
	Name     string
	Table    *listing.Table
	Cleaning Cleaning
}

// Load reads the file at path. The file is only read; it is never modified.
func Load(path string, opt Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), opt)
}

// Read loads a dataset from r. filename selects the format by extension.
func Read(r io.Reader, filename string, opt Options) (*Result, error) {
	src := sourceFor(filename)
	rr, err := src.Open(r, filename, opt)
	if err != nil {
		return nil, &listing.ParseError{Column: "(file)", Err: err}
	}
	header, err := rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty file")
		}
		return nil, &listing.ParseError{Column: "(header)", Err: err}
	}

	res := &Result{
		Name: filename,
		Cleaning: Cleaning{
			Source:     src.Name(),
			RawMissing: map[string]int{},
			Filled:     map[string]int{},
		},
	}
	idx := map[listing.Column]int{}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		col, ok := listing.ParseColumn(h)
		if !ok {
			res.Cleaning.Ignored = append(res.Cleaning.Ignored, strings.TrimSpace(h))
			continue
		}
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	for _, c := range listing.RequiredColumns() {
		if _, ok := idx[c]; !ok {
			return nil, &listing.ParseError{Column: c.Name()}
		}
	}
	_, hasBrand := idx[listing.Brand]
	res.Cleaning.BrandDerived = !hasBrand

	seen := map[string]struct{}{}
	var rows []listing.Row
	for n := 1; ; n++ {
		rec, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &listing.ParseError{Column: "(record)", Row: n, Err: err}
		}
		if len(rec) < len(header) {
			tmp := make([]string, len(header))
			copy(tmp, rec)
			rec = tmp
		}
		key := strings.Join(rec, "\x1f")
		if _, dup := seen[key]; dup {
			res.Cleaning.Duplicates++
		} else {
			seen[key] = struct{}{}
		}
		c := cleaner{rec: rec, idx: idx, row: n, stats: &res.Cleaning}
		row, err := c.build(hasBrand)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	res.Cleaning.Rows = len(rows)
	res.Table = listing.NewTable(rows)
	return res, nil
}

// cleaner converts one raw record into a typed Row.
type cleaner struct {
	rec   []string
	idx   map[listing.Column]int
	row   int
	stats *Cleaning
}

func (c *cleaner) raw(col listing.Column) string {
	i, ok := c.idx[col]
	if !ok || i >= len(c.rec) {
		return ""
	}
	v := strings.TrimSpace(c.rec[i])
	if isNA(v) {
		v = ""
	}
	if v == "" {
		c.stats.RawMissing[col.Name()]++
	}
	return v
}

func (c *cleaner) build(hasBrand bool) (listing.Row, error) {
	var r listing.Row
	var err error

	if v := c.raw(listing.Price); v == "" {
		r.Missing = r.Missing.With(listing.Price)
	} else if r.Price, err = strconv.ParseFloat(v, 64); err != nil || math.IsInf(r.Price, 0) || math.IsNaN(r.Price) {
		return r, c.fail(listing.Price, v, errors.New("not a number"))
	}

	// Integer columns filled with 0 when missing.
	for _, f := range []struct {
		col listing.Column
		dst *int
	}{
		{listing.ModelYear, &r.ModelYear},
		{listing.Cylinders, &r.Cylinders},
		{listing.Is4WD, &r.Is4WD},
		{listing.Odometer, &r.Odometer},
	} {
		v := c.raw(f.col)
		if v == "" {
			c.stats.Filled[f.col.Name()]++
			continue
		}
		if *f.dst, err = parseInt(v); err != nil {
			return r, c.fail(f.col, v, err)
		}
	}

	if v := c.raw(listing.DaysListed); v == "" {
		r.Missing = r.Missing.With(listing.DaysListed)
	} else if r.DaysListed, err = parseInt(v); err != nil {
		return r, c.fail(listing.DaysListed, v, err)
	}

	if v := c.raw(listing.DatePosted); v != "" {
		if r.DatePosted, err = time.Parse(listing.DateLayout, v); err != nil {
			return r, c.fail(listing.DatePosted, v, errors.New("expected YYYY-MM-DD"))
		}
	}

	r.Model = c.raw(listing.Model)
	r.Condition = c.raw(listing.Condition)
	r.Fuel = c.raw(listing.Fuel)
	r.Transmission = c.raw(listing.Transmission)
	r.Type = c.raw(listing.Type)
	if r.PaintColor = c.raw(listing.PaintColor); r.PaintColor == "" {
		r.PaintColor = UnknownPaintColor
		c.stats.Filled[listing.PaintColor.Name()]++
	}
	if hasBrand {
		r.Brand = c.raw(listing.Brand)
	} else {
		r.Brand = BrandFromModel(r.Model)
	}
	return r, nil
}

func (c *cleaner) fail(col listing.Column, v string, err error) error {
	return &listing.ParseError{Column: col.Name(), Row: c.row, Value: v, Err: err}
}

// parseInt accepts plain integers and integral floats such as "2011.0".
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.New("not an integer")
	}
	if f != math.Trunc(f) {
		return 0, errors.New("has a fractional part")
	}
	return int(f), nil
}

func isNA(s string) bool {
	switch strings.ToLower(s) {
	case "na", "nan", "null", "none", "n/a":
		return true
	}
	return false
}

// BrandFromModel returns the manufacturer part of a model string such as
// "ford f-150".
func BrandFromModel(model string) string {
	fields := strings.Fields(model)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
