package listing

// Table is an ordered, read-only collection of listings. Every derivation
// returns a new Table; the receiver is never modified.
type Table struct {
	rows []Row
}

// NewTable copies rows into a new Table.
func NewTable(rows []Row) *Table {
	cp := make([]Row, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

// Len returns the number of rows. A nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns a copy of all rows.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	cp := make([]Row, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return NewTable(nil)
	}
	return NewTable(t.rows)
}

// Head returns the first n rows (all rows when n exceeds the length).
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Len() {
		n = t.Len()
	}
	return NewTable(t.rows[:n])
}

// Where returns the rows for which keep is true, in their original order.
func (t *Table) Where(keep func(Row) bool) *Table {
	out := make([]Row, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if keep(t.rows[i]) {
			out = append(out, t.rows[i])
		}
	}
	return &Table{rows: out}
}

// Values returns the non-missing numeric values of c in row order.
func (t *Table) Values(c Column) []float64 {
	var out []float64
	for i := 0; i < t.Len(); i++ {
		if v, ok := t.rows[i].Number(c); ok {
			out = append(out, v)
		}
	}
	return out
}
