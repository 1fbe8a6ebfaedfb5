package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxColumns is the widest grid a single-letter column can address.
const MaxColumns = 26

// ColToName: 0 -> A, 25 -> Z, 26 -> AA and so on
func ColToName(col int) string {
	if col < 0 {
		return "?"
	}
	result := ""
	n := col + 1
	for n > 0 {
		n--
		result = string(rune('A'+(n%26))) + result
		n /= 26
	}
	return result
}

// ColRowToName builds cell name from 0-based col,row -> e.g., col 0,row 0 -> "A1"
func ColRowToName(col, row int) string {
	return fmt.Sprintf("%s%d", ColToName(col), row+1)
}

// ParseCellRef parses user-typed names like a1, $B$2 or Sheet!C3 into a
// CellAddress. It is the lenient counterpart of ParseCellAddress used by
// the editor commands; formulas always go through ParseCellAddress.
func ParseCellRef(name string) (CellAddress, bool) {
	name = strings.TrimSpace(name)
	// remove sheet! prefix if present
	if idx := strings.LastIndex(name, "!"); idx != -1 {
		name = strings.TrimSpace(name[idx+1:])
	}
	// remove $ from absolute refs
	name = strings.ReplaceAll(name, "$", "")
	return ParseCellAddress(strings.ToUpper(name))
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func parseRow(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
