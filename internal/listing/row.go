package listing

import (
	"strconv"
	"time"
)

// DateLayout is the on-disk and display format of date_posted.
const DateLayout = "2006-01-02"

// ColumnSet is a small bitset of columns.
type ColumnSet uint32

// Has reports whether c is in the set.
func (s ColumnSet) Has(c Column) bool { return c.Valid() && s&(1<<uint(c)) != 0 }

// With returns the set with c added.
func (s ColumnSet) With(c Column) ColumnSet {
	if !c.Valid() {
		return s
	}
	return s | 1<<uint(c)
}

// Row is one car listing. Fields listed in Missing carry no value; an empty
// categorical string or a zero date is treated as missing as well.
type Row struct {
	Price        float64   `json:"price"`
	ModelYear    int       `json:"model_year"`
	Model        string    `json:"model"`
	Condition    string    `json:"condition"`
	Cylinders    int       `json:"cylinders"`
	Fuel         string    `json:"fuel"`
	Odometer     int       `json:"odometer"`
	Transmission string    `json:"transmission"`
	Type         string    `json:"type"`
	PaintColor   string    `json:"paint_color"`
	Is4WD        int       `json:"is_4wd"`
	DatePosted   time.Time `json:"date_posted"`
	DaysListed   int       `json:"days_listed"`
	Brand        string    `json:"brand"`
	Missing      ColumnSet `json:"-"`
}

// Value is the canonical reading of one cell.
type Value struct {
	Text    string
	Number  float64
	Time    time.Time
	Missing bool
}

// Value reads column c.
func (r Row) Value(c Column) Value {
	if r.Missing.Has(c) || !c.Valid() {
		return Value{Missing: true}
	}
	switch c.Kind() {
	case Categorical:
		s := r.text(c)
		return Value{Text: s, Missing: s == ""}
	case Date:
		if r.DatePosted.IsZero() {
			return Value{Missing: true}
		}
		return Value{Text: r.DatePosted.Format(DateLayout), Time: r.DatePosted}
	default:
		n := r.number(c)
		return Value{Text: FormatNumber(n), Number: n}
	}
}

// Number returns the numeric value of c; ok is false for missing cells and
// non-numeric columns.
func (r Row) Number(c Column) (float64, bool) {
	if !c.Kind().Numeric() {
		return 0, false
	}
	v := r.Value(c)
	if v.Missing {
		return 0, false
	}
	return v.Number, true
}

// Category returns the canonical text of c; ok is false for missing cells.
func (r Row) Category(c Column) (string, bool) {
	v := r.Value(c)
	return v.Text, !v.Missing
}

func (r Row) text(c Column) string {
	switch c {
	case Model:
		return r.Model
	case Condition:
		return r.Condition
	case Fuel:
		return r.Fuel
	case Transmission:
		return r.Transmission
	case Type:
		return r.Type
	case PaintColor:
		return r.PaintColor
	case Brand:
		return r.Brand
	}
	return ""
}

func (r Row) number(c Column) float64 {
	switch c {
	case Price:
		return r.Price
	case ModelYear:
		return float64(r.ModelYear)
	case Cylinders:
		return float64(r.Cylinders)
	case Odometer:
		return float64(r.Odometer)
	case Is4WD:
		return float64(r.Is4WD)
	case DaysListed:
		return float64(r.DaysListed)
	}
	return 0
}

// FormatNumber renders integral values without a fractional part.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
