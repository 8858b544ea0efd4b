package dbal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Record is a row fetched with FetchObj. Columns keep result order.
type Record struct {
	columns []string
	values  []any
}

// Get returns the value of the named column.
func (r *Record) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Columns returns the column names in result order.
func (r *Record) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Values returns the column values in result order.
func (r *Record) Values() []any {
	return append([]any(nil), r.values...)
}

// Cursor is a buffered result set plus the fetch-mode state of a statement.
// Backends load the rows of each execution into it and delegate Fetch,
// SetFetchMode and Columns.
//
// Fetch-time attributes (AttrCase, AttrOracleNulls, AttrStringifyFetches,
// AttrMaxColumnLen) are read from the owning connection at Load time.
type Cursor struct {
	attrs *Attributes

	mode   FetchMode
	column int

	executed bool
	columns  []string
	rows     [][]any
	pos      int
}

// NewCursor creates an empty cursor reading attributes from attrs.
func NewCursor(attrs *Attributes) *Cursor {
	return &Cursor{attrs: attrs}
}

// SetFetchMode sets the row shape. FetchColumn takes an optional
// non-negative column index.
func (c *Cursor) SetFetchMode(mode FetchMode, args ...any) bool {
	if !mode.Valid() {
		return false
	}
	column := 0
	if mode == FetchColumn && len(args) > 0 {
		idx, ok := args[0].(int)
		if !ok || idx < 0 {
			return false
		}
		column = idx
	}
	c.mode = mode
	c.column = column
	return true
}

// Load replaces the result set. Pass nil columns for statements that return
// no rows.
func (c *Cursor) Load(columns []string, rows [][]any) {
	c.columns = c.foldColumns(columns)
	c.rows = rows
	c.pos = 0
	c.executed = true
	for _, row := range c.rows {
		for i, v := range row {
			row[i] = c.convert(v)
		}
	}
}

// Reset discards the result set and marks the cursor as not executed.
func (c *Cursor) Reset() {
	c.columns = nil
	c.rows = nil
	c.pos = 0
	c.executed = false
}

// Executed reports whether a result set (possibly empty) is loaded.
func (c *Cursor) Executed() bool {
	return c.executed
}

// Len returns the number of buffered rows.
func (c *Cursor) Len() int {
	return len(c.rows)
}

// Columns returns the folded column names of the loaded result set.
func (c *Cursor) Columns() []string {
	return append([]string(nil), c.columns...)
}

// Fetch returns the next row, io.EOF when exhausted, or ErrNotExecuted when
// nothing has been loaded.
func (c *Cursor) Fetch() (any, error) {
	if !c.executed {
		return nil, ErrNotExecuted
	}
	if c.pos >= len(c.rows) {
		return nil, io.EOF
	}
	row := c.rows[c.pos]

	mode := c.effectiveMode()
	if mode == FetchColumn && c.column >= len(row) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrInvalidColumn, c.column, len(row))
	}
	c.pos++

	switch mode {
	case FetchNum:
		return append([]any(nil), row...), nil
	case FetchObj:
		return &Record{columns: c.Columns(), values: append([]any(nil), row...)}, nil
	case FetchColumn:
		return row[c.column], nil
	default:
		m := make(map[string]any, len(row))
		for i, v := range row {
			if i < len(c.columns) {
				m[c.columns[i]] = v
			}
		}
		return m, nil
	}
}

func (c *Cursor) effectiveMode() FetchMode {
	if c.mode != FetchDefault {
		return c.mode
	}
	if v, ok := c.attrs.Get(AttrDefaultFetchMode); ok {
		if m, ok := v.(FetchMode); ok && m.Valid() && m != FetchDefault {
			return m
		}
	}
	return FetchAssoc
}

func (c *Cursor) foldColumns(columns []string) []string {
	if columns == nil {
		return nil
	}
	folding := CaseNatural
	if v, ok := c.attrs.Get(AttrCase); ok {
		if f, ok := v.(Case); ok {
			folding = f
		}
	}
	maxLen := 0
	if v, ok := c.attrs.Get(AttrMaxColumnLen); ok {
		if n, ok := v.(int); ok && n > 0 {
			maxLen = n
		}
	}

	out := make([]string, len(columns))
	for i, name := range columns {
		switch folding {
		case CaseLower:
			name = strings.ToLower(name)
		case CaseUpper:
			name = strings.ToUpper(name)
		}
		if maxLen > 0 && len(name) > maxLen {
			name = name[:maxLen]
		}
		out[i] = name
	}
	return out
}

func (c *Cursor) convert(v any) any {
	nulls := NullNatural
	if n, ok := c.attrs.Get(AttrOracleNulls); ok {
		if m, ok := n.(Nulls); ok {
			nulls = m
		}
	}
	switch nulls {
	case NullEmptyString:
		if s, ok := v.(string); ok && s == "" {
			return nil
		}
	case NullToString:
		if v == nil {
			return ""
		}
	}

	if !BoolOf(c.attrs, AttrStringifyFetches) {
		return v
	}
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		return t.Format(time.RFC3339Nano)
	}
	return v
}
