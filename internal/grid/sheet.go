package grid

import (
	"sort"
	"strings"

	"sheetlab/internal/value"
)

// CellData is one stored cell. Formula carries the same text as RawInput;
// it is a formula when it starts with "=". Computed is nil while a formula
// is pending.
type CellData struct {
	RawInput string
	Formula  string
	Computed *value.Value
}

// NewCellData builds the cell produced by committing raw as an edit.
func NewCellData(raw string) CellData {
	c := CellData{RawInput: raw, Formula: raw}
	if !c.IsFormula() {
		v := value.FromInput(raw)
		c.Computed = &v
	}
	return c
}

// IsFormula reports whether the cell holds a formula.
func (c CellData) IsFormula() bool {
	return strings.HasPrefix(c.Formula, "=")
}

// WithComputed returns a copy of c caching v as its computed value.
func (c CellData) WithComputed(v value.Value) CellData {
	c.Computed = &v
	return c
}

// Sheet maps addresses to cells. The evaluation engine treats a Sheet as a
// read-only snapshot; only the recompute driver and editors replace entries.
type Sheet map[CellAddress]CellData

// NewSheet returns an empty cols x rows grid, every cell present and blank.
func NewSheet(cols, rows int) Sheet {
	s := make(Sheet, cols*rows)
	cols = min(cols, MaxColumns)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s[Addr(c, r)] = NewCellData("")
		}
	}
	return s
}

// Clone copies the map and every cached value so the copy can be edited
// without touching the original snapshot.
func (s Sheet) Clone() Sheet {
	out := make(Sheet, len(s))
	for k, c := range s {
		if c.Computed != nil {
			v := *c.Computed
			c.Computed = &v
		}
		out[k] = c
	}
	return out
}

// Set commits raw as an edit of addr.
func (s Sheet) Set(addr CellAddress, raw string) {
	s[addr] = NewCellData(raw)
}

// Raw returns the typed text of addr, or "" if the cell is absent.
func (s Sheet) Raw(addr CellAddress) string {
	return s[addr].RawInput
}

// Addresses lists the sheet's keys row-major so drivers and writers walk
// cells in a stable order.
func (s Sheet) Addresses() []CellAddress {
	out := make([]CellAddress, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Bounds returns the highest 0-based column and row holding non-blank
// input, or -1, -1 for a blank sheet.
func (s Sheet) Bounds() (maxCol, maxRow int) {
	maxCol, maxRow = -1, -1
	for k, c := range s {
		if c.RawInput == "" {
			continue
		}
		maxCol = max(maxCol, k.ColIndex())
		maxRow = max(maxRow, k.RowIndex())
	}
	return maxCol, maxRow
}
