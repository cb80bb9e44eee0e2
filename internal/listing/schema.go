package listing

import "strings"

// Kind is the declared semantic type of a column.
type Kind int

const (
	Categorical Kind = iota
	NumericContinuous
	NumericDiscrete
	Date
	Flag
)

func (k Kind) String() string {
	switch k {
	case Categorical:
		return "categorical"
	case NumericContinuous:
		return "numeric-continuous"
	case NumericDiscrete:
		return "numeric-discrete"
	case Date:
		return "date"
	case Flag:
		return "flag"
	default:
		return "unknown"
	}
}

// Numeric reports whether values of this kind carry a number.
func (k Kind) Numeric() bool {
	return k == NumericContinuous || k == NumericDiscrete || k == Flag
}

// Column is one of the known listing columns. The set is closed; names coming
// from users are resolved through ParseColumn.
type Column int

const (
	Price Column = iota
	ModelYear
	Model
	Condition
	Cylinders
	Fuel
	Odometer
	Transmission
	Type
	PaintColor
	Is4WD
	DatePosted
	DaysListed
	Brand

	numColumns
)

var columnMeta = [numColumns]struct {
	name string
	kind Kind
}{
	Price:        {"price", NumericContinuous},
	ModelYear:    {"model_year", NumericDiscrete},
	Model:        {"model", Categorical},
	Condition:    {"condition", Categorical},
	Cylinders:    {"cylinders", NumericDiscrete},
	Fuel:         {"fuel", Categorical},
	Odometer:     {"odometer", NumericContinuous},
	Transmission: {"transmission", Categorical},
	Type:         {"type", Categorical},
	PaintColor:   {"paint_color", Categorical},
	Is4WD:        {"is_4wd", Flag},
	DatePosted:   {"date_posted", Date},
	DaysListed:   {"days_listed", NumericDiscrete},
	Brand:        {"brand", Categorical},
}

// Valid reports whether c is a member of the enumeration.
func (c Column) Valid() bool { return c >= 0 && c < numColumns }

// Name returns the header name used in data files.
func (c Column) Name() string {
	if !c.Valid() {
		return "unknown"
	}
	return columnMeta[c].name
}

func (c Column) String() string { return c.Name() }

// Kind returns the declared semantic type.
func (c Column) Kind() Kind {
	if !c.Valid() {
		return Categorical
	}
	return columnMeta[c].kind
}

// MarshalText encodes the column by name so it can key JSON/YAML maps.
func (c Column) MarshalText() ([]byte, error) { return []byte(c.Name()), nil }

// UnmarshalText resolves a column name.
func (c *Column) UnmarshalText(b []byte) error {
	col, ok := ParseColumn(string(b))
	if !ok {
		return &InvalidFilterError{Column: string(b), Reason: "unknown column"}
	}
	*c = col
	return nil
}

// ParseColumn resolves a header or user-supplied name (case-insensitive,
// spaces and dashes accepted in place of underscores).
func ParseColumn(name string) (Column, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	for c := Column(0); c < numColumns; c++ {
		if columnMeta[c].name == key {
			return c, true
		}
	}
	return 0, false
}

// Columns returns every column in schema order.
func Columns() []Column {
	out := make([]Column, 0, numColumns)
	for c := Column(0); c < numColumns; c++ {
		out = append(out, c)
	}
	return out
}

// RequiredColumns lists the columns a data file must carry. Brand is derived
// from model when absent, so it is not required.
func RequiredColumns() []Column {
	out := make([]Column, 0, numColumns-1)
	for _, c := range Columns() {
		if c != Brand {
			out = append(out, c)
		}
	}
	return out
}
