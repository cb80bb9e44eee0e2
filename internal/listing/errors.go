package listing

import "fmt"

// ParseError indicates a malformed or missing source column. Row is 1-based
// over data rows; 0 means the header.
type ParseError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Row == 0 && e.Err != nil:
		return fmt.Sprintf("parse %s: %v", e.Column, e.Err)
	case e.Row == 0:
		return fmt.Sprintf("parse: missing column %q", e.Column)
	case e.Err != nil:
		return fmt.Sprintf("parse row %d, column %s: value %q: %v", e.Row, e.Column, e.Value, e.Err)
	default:
		return fmt.Sprintf("parse row %d, column %s: invalid value %q", e.Row, e.Column, e.Value)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidFilterError indicates a filter or clip that references an unknown
// column or a value outside the column's domain.
type InvalidFilterError struct {
	Column string
	Value  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid filter on %s: value %q: %s", e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid filter on %s: %s", e.Column, e.Reason)
}

// EmptyColumnError indicates a quantile or bin computation over a column with
// no non-missing values.
type EmptyColumnError struct {
	Column string
}

func (e *EmptyColumnError) Error() string {
	return fmt.Sprintf("column %s has no values", e.Column)
}
