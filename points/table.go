package points

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Table is an ordered, column-named set of rows with untyped cells.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// NewTable creates an empty table with the given column order.
func NewTable(columns ...string) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

// Append adds one row. The number of values must match the column count.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, append([]any(nil), values...))
	return nil
}

// AppendMap adds one row from a column -> value map. Columns missing from
// the map are left nil; keys that are not columns are ignored.
func (t *Table) AppendMap(row map[string]any) {
	vals := make([]any, len(t.columns))
	for c, v := range row {
		if i, ok := t.index[c]; ok {
			vals[i] = v
		}
	}
	t.rows = append(t.rows, vals)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Value returns the cell at row for col.
func (t *Table) Value(row int, col string) (any, bool) {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return nil, false
	}
	return t.rows[row][i], true
}

// Row returns a copy of the values of one row in column order.
func (t *Table) Row(row int) []any {
	return append([]any(nil), t.rows[row]...)
}

// Clone returns a deep copy of the row slices; cell values are shared.
func (t *Table) Clone() *Table {
	c := NewTable(t.columns...)
	c.rows = make([][]any, len(t.rows))
	for i, r := range t.rows {
		c.rows[i] = append([]any(nil), r...)
	}
	return c
}

// Rename returns a copy of the table with columns renamed by renames
// (old name -> new name). Unknown names in renames are ignored.
func (t *Table) Rename(renames map[string]string) *Table {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if n, ok := renames[c]; ok && n != "" {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	c := t.Clone()
	c.columns = cols
	c.index = make(map[string]int, len(cols))
	for i, name := range cols {
		c.index[name] = i
	}
	return c
}

// set replaces one cell in place. Only used on tables owned by this package.
func (t *Table) set(row int, col string, v any) {
	t.rows[row][t.index[col]] = v
}

// ReadCSV reads a table from CSV with a header row. Every cell is kept as a
// string; Extract does the typing.
func ReadCSV(r io.Reader) (*Table, error) {
	csvr := csv.NewReader(r)
	csvr.TrimLeadingSpace = true
	rec, err := csvr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("read csv: missing header row")
	}
	head := make([]string, len(rec[0]))
	for i, h := range rec[0] {
		head[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	t := NewTable(head...)
	for _, row := range rec[1:] {
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = v
		}
		if err := t.Append(vals...); err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
	}
	return t, nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// WriteCSV writes the table with a header row. Floats are written in plain
// decimal notation, other cells with %v.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	rec := make([]string, len(t.columns))
	for _, r := range t.rows {
		for i, v := range r {
			rec[i] = cellString(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
