package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

// ----------------------------- Drawing -----------------------------

func (a *App) Draw(s tcell.Screen) {
	s.Clear()
	w, h := s.Size()

	// header row: column names
	x := a.LeftGutter
	for c := a.ViewCol; c < len(a.ColWidths); c++ {
		wc := a.ColWidths[c]
		name := grid.ColToName(c)

		// invert the active column
		hdrStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if c == a.CurCol {
			hdrStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
			for dx := 0; dx < wc; dx++ {
				if x+dx >= 0 && x+dx < w {
					s.SetContent(x+dx, 0, ' ', nil, hdrStyle)
				}
			}
		}

		innerX := x + a.CellPadding
		innerW := max(0, wc-2*a.CellPadding)
		if innerW > 0 {
			a.printTextFixedWidth(s, innerX, 0, name, hdrStyle, innerW)
		} else {
			a.printTextFixedWidth(s, x, 0, name, hdrStyle, wc)
		}

		x += wc
		if x >= w {
			break
		}
	}

	target, hasTarget := a.target()

	// draw rows
	y := 1
	for r := a.ViewRow; r < len(a.RowHeights); r++ {
		if y >= h-a.StatusLines {
			break
		}
		rowNum := strconv.Itoa(r + 1)
		gutterStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if r == a.CurRow {
			gutterStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
			for gx := 0; gx < a.LeftGutter-1 && gx < w; gx++ {
				s.SetContent(gx, y, ' ', nil, gutterStyle)
			}
		}
		a.printTextFixedWidth(s, 0, y, rowNum, gutterStyle, a.LeftGutter-1)

		x = a.LeftGutter
		hh := a.RowHeights[r]
		for c := a.ViewCol; c < len(a.ColWidths); c++ {
			if y >= h-a.StatusLines {
				break
			}
			wc := a.ColWidths[c]
			dispText := a.GetDisplayText(r, c)
			if a.Mode == "insert" && r == a.CurRow && c == a.CurCol {
				dispText = a.InputBuf
			}
			lines := a.splitLines(dispText, hh)

			baseStyle := tcell.StyleDefault
			switch {
			case r == a.CurRow && c == a.CurCol:
				baseStyle = baseStyle.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGray)
			case hasTarget && target == grid.Addr(c, r):
				baseStyle = baseStyle.Foreground(tcell.ColorBlack).Background(tcell.ColorDarkCyan)
			case a.WB.Value(grid.Addr(c, r)).IsError():
				baseStyle = baseStyle.Foreground(tcell.ColorRed)
			}

			// clear cell rectangle
			for dy := 0; dy < hh; dy++ {
				for dx := 0; dx < wc; dx++ {
					if x+dx >= 0 && y+dy >= 0 && x+dx < w && y+dy < h {
						s.SetContent(x+dx, y+dy, ' ', nil, baseStyle)
					}
				}
			}

			// print lines with left/right padding
			innerX := x + a.CellPadding
			innerW := max(0, wc-2*a.CellPadding)
			for dy := 0; dy < hh; dy++ {
				txt := ""
				if dy < len(lines) {
					txt = lines[dy]
				}
				if innerW > 0 {
					a.printTextFixedWidth(s, innerX, y+dy, txt, baseStyle, innerW)
				} else {
					a.printTextFixedWidth(s, x, y+dy, txt, baseStyle, wc)
				}
			}

			x += wc
			if x >= w {
				break
			}
		}
		y += hh
	}

	// Status area
	statusY := max(0, h-a.StatusLines)
	statusStyle := tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorWhite)

	cur := a.cursor()
	statusLeft := fmt.Sprintf("Mode:%s  %s  %s", a.Mode, cur, a.WB.Sheet.Raw(cur))
	a.printTextFixedWidth(s, 0, statusY, statusLeft, statusStyle, w)
	a.printTextFixedWidth(s, 0, statusY+1, a.statusLesson(), statusStyle, w)
	a.printTextFixedWidth(s, 0, statusY+2, a.statusMessage(), statusStyle, w)

	if a.Overlay != "" {
		a.drawHelpPopup(s, a.Overlay)
	}

	if a.Mode == "insert" {
		a.drawInsertCursor(s)
	} else {
		s.HideCursor()
	}

	s.Show()
}

func (a *App) target() (grid.CellAddress, bool) {
	l, ok := a.WB.Lesson()
	if !ok || !l.HasTask() {
		return grid.CellAddress{}, false
	}
	return l.Target()
}

func (a *App) drawInsertCursor(s tcell.Screen) {
	w, h := s.Size()
	// cell top-left
	cellX := a.LeftGutter
	for cc := a.ViewCol; cc < a.CurCol && cc < len(a.ColWidths); cc++ {
		cellX += a.ColWidths[cc]
	}
	cellY := 1
	for rr := a.ViewRow; rr < a.CurRow && rr < len(a.RowHeights); rr++ {
		cellY += a.RowHeights[rr]
	}
	if cellX < 0 || cellY < 0 || cellX >= w || cellY >= h-a.StatusLines {
		s.HideCursor()
		return
	}

	lines := strings.Split(a.InputBuf, "\n")
	lastIdx := len(lines) - 1
	lastLine := lines[lastIdx]
	colW := a.DefaultWidth
	rowH := a.DefaultHeight
	if a.CurCol >= 0 && a.CurCol < len(a.ColWidths) {
		colW = a.ColWidths[a.CurCol]
	}
	if a.CurRow >= 0 && a.CurRow < len(a.RowHeights) {
		rowH = a.RowHeights[a.CurRow]
	}

	cx := cellX + min(runeLen(lastLine), max(0, colW-1))
	if innerW := colW - 2*a.CellPadding; innerW >= 1 {
		cx = cellX + a.CellPadding + min(runeLen(lastLine), innerW-1)
	}
	cy := cellY + min(lastIdx, max(0, rowH-1))
	if cx >= 0 && cx < w && cy >= 0 && cy < h {
		s.SetContent(cx, cy, '▏', nil,
			tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorLightGray))
	} else {
		s.HideCursor()
	}
}

// ----------------------------- Helpers -----------------------------

// EnsureColExists widens the grid to include column idx.
func (a *App) EnsureColExists(idx int) {
	idx = min(idx, grid.MaxColumns-1)
	for len(a.ColWidths) <= idx {
		a.ColWidths = append(a.ColWidths, a.DefaultWidth)
	}
	a.WB.Grow(len(a.ColWidths), a.WB.Rows)
}

// EnsureRowExists lengthens the grid to include row idx.
func (a *App) EnsureRowExists(idx int) {
	for len(a.RowHeights) <= idx {
		a.RowHeights = append(a.RowHeights, a.DefaultHeight)
	}
	a.WB.Grow(a.WB.Cols, len(a.RowHeights))
}

func (a *App) printTextFixedWidth(s tcell.Screen, x, y int, str string, style tcell.Style, width int) {
	runes := []rune(str)
	for i := 0; i < width; i++ {
		var ch rune = ' '
		if i < len(runes) {
			ch = runes[i]
		}
		if x+i >= 0 && y >= 0 {
			s.SetContent(x+i, y, ch, nil, style)
		}
	}
}

func (a *App) splitLines(text string, maxLines int) []string {
	if maxLines <= 0 {
		return []string{}
	}
	out := make([]string, maxLines)
	parts := strings.Split(text, "\n")
	copy(out, parts)
	return out
}

func (a *App) drawHelpPopup(s tcell.Screen, help string) {
	w, h := s.Size()
	if w < 10 || h < 5 {
		return
	}

	padding := 2
	maxPW := w - 6
	maxPH := h - 4

	innerW := minInt(maxPW-padding*2, 60)
	if innerW < 30 {
		innerW = maxInt(30, maxPW-padding*2)
	}
	innerW = minInt(innerW, maxPW-padding*2)

	lines := wrapText(help, innerW)
	if len(lines) > maxPH-padding*2 {
		lines = lines[:maxPH-padding*2]
	}
	innerH := maxInt(len(lines), 3)

	pw := innerW + padding*2
	ph := innerH + padding*2

	left := (w - pw) / 2
	top := (h - ph) / 2

	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDefault)
	bgStyle := tcell.StyleDefault.Background(tcell.ColorDefault).Foreground(tcell.ColorWhite)

	for yy := 0; yy < ph; yy++ {
		for xx := 0; xx < pw; xx++ {
			s.SetContent(left+xx, top+yy, ' ', nil, bgStyle)
		}
	}

	s.SetContent(left, top, '┌', nil, borderStyle)
	s.SetContent(left+pw-1, top, '┐', nil, borderStyle)
	s.SetContent(left, top+ph-1, '└', nil, borderStyle)
	s.SetContent(left+pw-1, top+ph-1, '┘', nil, borderStyle)
	for xx := 1; xx < pw-1; xx++ {
		s.SetContent(left+xx, top, '─', nil, borderStyle)
		s.SetContent(left+xx, top+ph-1, '─', nil, borderStyle)
	}
	for yy := 1; yy < ph-1; yy++ {
		s.SetContent(left, top+yy, '│', nil, borderStyle)
		s.SetContent(left+pw-1, top+yy, '│', nil, borderStyle)
	}

	vOffset := (ph - padding*2 - innerH) / 2
	for i, ln := range lines {
		a.printTextFixedWidth(s, left+padding, top+padding+vOffset+i, ln, bgStyle, innerW)
	}
}

func wrapText(s string, max int) []string {
	if max <= 2 {
		return []string{s}
	}

	var result []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			result = append(result, "")
			continue
		}

		cur := " " // left margin
		for _, w := range words {
			if runeLen(w) > max-1 {
				// long words get lines of their own
				for _, c := range chunkString(w, max-1) {
					if runeLen(cur) > 1 {
						result = append(result, cur)
					}
					cur = " " + c
				}
				continue
			}

			if runeLen(cur)+1+runeLen(w) <= max {
				if runeLen(cur) > 1 {
					cur += " " + w
				} else {
					cur += w
				}
			} else {
				result = append(result, cur)
				cur = " " + w
			}
		}
		result = append(result, cur)
	}
	return result
}

func runeLen(s string) int {
	return len([]rune(s))
}

func chunkString(s string, size int) []string {
	r := []rune(s)
	var out []string
	for i := 0; i < len(r); i += size {
		j := minInt(i+size, len(r))
		out = append(out, string(r[i:j]))
	}
	return out
}

// displayText formats a cell value for the grid.
func displayText(v value.Value) string {
	if !v.IsNumber() {
		return v.String()
	}
	f := v.Float()
	if math.Abs(f-math.Round(f)) < 1e-9 {
		return fmt.Sprintf("%.0f", math.Round(f))
	}
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// ----------------------------- Viewport / Geometry -----------------------------

func (a *App) ComputeVisible(s tcell.Screen) (visibleRows, visibleCols int) {
	w, h := s.Size()
	usableW := maxInt(1, w-a.LeftGutter)
	usableH := maxInt(1, h-a.StatusLines-1)
	sumW := 0
	cols := 0
	for c := a.ViewCol; c < len(a.ColWidths); c++ {
		wc := a.ColWidths[c]
		if sumW+wc > usableW {
			break
		}
		sumW += wc
		cols++
	}
	sumH := 0
	rows := 0
	for r := a.ViewRow; r < len(a.RowHeights); r++ {
		hh := a.RowHeights[r]
		if sumH+hh > usableH {
			break
		}
		sumH += hh
		rows++
	}
	return maxInt(rows, 1), maxInt(cols, 1)
}

func (a *App) EnsureCursorVisible(s tcell.Screen) {
	if s == nil {
		return
	}
	visibleRows, visibleCols := a.ComputeVisible(s)

	if a.CurCol < a.ViewCol {
		a.ViewCol = a.CurCol
	} else if a.CurCol >= a.ViewCol+visibleCols {
		a.ViewCol = a.CurCol - visibleCols + 1
	}
	a.ViewCol = maxInt(0, minInt(a.ViewCol, len(a.ColWidths)-1))

	if a.CurRow < a.ViewRow {
		a.ViewRow = a.CurRow
	} else if a.CurRow >= a.ViewRow+visibleRows {
		a.ViewRow = a.CurRow - visibleRows + 1
	}
	a.ViewRow = maxInt(0, minInt(a.ViewRow, len(a.RowHeights)-1))
}

// ----------------------------- Misc -----------------------------

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
