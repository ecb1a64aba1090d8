package sheets

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Cell is one value of a sheet row. The remote store is loosely typed: the
// same column may carry strings, numbers, bools or nulls depending on how the
// row was edited. Cell keeps the raw text and coerces on access, defaulting
// to zero values the way the sheet contract requires.
type Cell string

// UnmarshalJSON accepts string, number, bool and null cells.
func (c *Cell) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*c = Cell(s)
		return nil
	}
	// числа и bool храним как есть, в текстовом виде
	*c = Cell(b)
	return nil
}

func (c Cell) String() string { return string(c) }

// Empty reports whether the cell has no usable content.
func (c Cell) Empty() bool { return strings.TrimSpace(string(c)) == "" }

// Int parses the cell as an integer; unparseable cells count as 0.
func (c Cell) Int() int {
	s := strings.TrimSpace(string(c))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// sheet cells sometimes hold "3.0" for integral values
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// Float parses the cell as a float; unparseable cells count as 0.
func (c Cell) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(c)), 64)
	if err != nil {
		return 0
	}
	return f
}

// Decimal parses the cell as a money value; unparseable cells count as 0.
func (c Cell) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(string(c)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Bool follows the sheet convention: checkbox columns serialize as the
// literal TRUE/true.
func (c Cell) Bool() bool {
	s := strings.TrimSpace(string(c))
	return s == "TRUE" || s == "true"
}

// Table is a decoded query result: a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// NewTable splits raw sheet data into header and rows. An empty or
// header-only table yields no rows.
func NewTable(data [][]Cell) Table {
	if len(data) == 0 {
		return Table{}
	}
	header := make([]string, len(data[0]))
	for i, c := range data[0] {
		header[i] = c.String()
	}
	return Table{Header: header, Rows: data[1:]}
}

// Col returns the index of a named header column, or -1.
func (t Table) Col(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row[col] or the empty cell when the row is short.
func (t Table) Cell(row []Cell, col int) Cell {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
