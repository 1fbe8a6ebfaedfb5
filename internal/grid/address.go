package grid

import (
	"strconv"
	"strings"
)

// CellAddress identifies one cell by its column letter and 1-based row.
type CellAddress struct {
	Col byte // 'A'..'Z'
	Row int
}

// Addr builds an address from 0-based column and row indexes, the way the
// renderer walks the grid.
func Addr(col, row int) CellAddress {
	return CellAddress{Col: byte('A' + col), Row: row + 1}
}

// ColIndex returns the 0-based column index.
func (a CellAddress) ColIndex() int { return int(a.Col - 'A') }

// RowIndex returns the 0-based row index.
func (a CellAddress) RowIndex() int { return a.Row - 1 }

func (a CellAddress) String() string {
	return string(a.Col) + strconv.Itoa(a.Row)
}

// ParseCellAddress accepts exactly one uppercase letter followed by a
// positive row number, e.g. "B12".
func ParseCellAddress(text string) (CellAddress, bool) {
	if len(text) < 2 || !isUpper(text[0]) {
		return CellAddress{}, false
	}
	row, ok := parseRow(text[1:])
	if !ok {
		return CellAddress{}, false
	}
	return CellAddress{Col: text[0], Row: row}, true
}

// Range is the rectangle spanned by two corners, inclusive.
type Range struct {
	Start, End CellAddress
}

// ParseRange parses "A1:C3". It fails when either corner is missing or is
// not a cell address.
func ParseRange(text string) (Range, bool) {
	left, right, found := strings.Cut(text, ":")
	if !found {
		return Range{}, false
	}
	start, ok1 := ParseCellAddress(strings.TrimSpace(left))
	end, ok2 := ParseCellAddress(strings.TrimSpace(right))
	if !ok1 || !ok2 {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// Cells expands the range row-major: the outer loop walks rows, the inner
// loop walks columns. Corners may be given in any order.
func (r Range) Cells() []CellAddress {
	rmin, rmax := min(r.Start.Row, r.End.Row), max(r.Start.Row, r.End.Row)
	cmin, cmax := min(r.Start.Col, r.End.Col), max(r.Start.Col, r.End.Col)
	out := make([]CellAddress, 0, (rmax-rmin+1)*int(cmax-cmin+1))
	for row := rmin; row <= rmax; row++ {
		for col := cmin; col <= cmax; col++ {
			out = append(out, CellAddress{Col: col, Row: row})
		}
	}
	return out
}

func (r Range) String() string {
	return r.Start.String() + ":" + r.End.String()
}
