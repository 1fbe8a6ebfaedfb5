package calc

import (
	"strings"

	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

// ResolveCell returns the cached computed value of addr, falling back to
// its raw input and then to Empty when the cell is absent.
func ResolveCell(addr grid.CellAddress, sheet grid.Sheet) value.Value {
	cell, ok := sheet[addr]
	if !ok {
		return value.Empty()
	}
	if cell.Computed != nil {
		return *cell.Computed
	}
	return value.FromInput(cell.RawInput)
}

// ResolveRange resolves "A1:B3" to its row-major values. A malformed range
// yields no values. Text without a colon is resolved as one cell; text that
// is not an address resolves to a single Empty.
func ResolveRange(text string, sheet grid.Sheet) []value.Value {
	text = strings.TrimSpace(text)
	if strings.Contains(text, ":") {
		r, ok := grid.ParseRange(text)
		if !ok {
			return nil
		}
		cells := r.Cells()
		out := make([]value.Value, len(cells))
		for i, addr := range cells {
			out[i] = ResolveCell(addr, sheet)
		}
		return out
	}
	addr, ok := grid.ParseCellAddress(text)
	if !ok {
		return []value.Value{value.Empty()}
	}
	return []value.Value{ResolveCell(addr, sheet)}
}

// CellValue classifies a single argument token: a quoted string, a number,
// a boolean, a cell reference, and otherwise the token itself as text.
func CellValue(token string, sheet grid.Sheet) value.Value {
	if isQuoted(token) {
		return value.Text(token[1 : len(token)-1])
	}
	if f, ok := value.ParseNumber(token); ok {
		return value.Number(f)
	}
	if b, ok := value.ParseBool(token); ok {
		return value.Bool(b)
	}
	if addr, ok := grid.ParseCellAddress(token); ok {
		return ResolveCell(addr, sheet)
	}
	return value.Text(token)
}

// isReference reports whether arg names a cell or a range rather than a
// literal or an expression.
func isReference(arg string) bool {
	if _, ok := grid.ParseRange(arg); ok {
		return true
	}
	_, ok := grid.ParseCellAddress(arg)
	return ok
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}
