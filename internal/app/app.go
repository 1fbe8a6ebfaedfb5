package app

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"sheetlab/internal/grid"
	"sheetlab/internal/lesson"
	"sheetlab/internal/storage"
	"sheetlab/internal/workbook"
)

type App struct {
	// layout
	LeftGutter    int
	StatusLines   int
	DefaultWidth  int
	DefaultHeight int

	CellPadding int

	ColWidths  []int
	RowHeights []int

	WB *workbook.Workbook

	// cursor / view
	CurRow  int
	CurCol  int
	ViewRow int
	ViewCol int

	// UI state
	Mode     string // normal | insert
	InputBuf string
	Message  string
	Quit     bool

	// editing behavior options
	EnterStartsEdit     bool
	PrintableStartsEdit bool
	MoveAfterEnter      bool
	SelectAllOnEdit     bool
	ReplaceOnNextRune   bool

	// text of the popup drawn over the grid, "" when hidden
	Overlay string
}

const helpText = "\n i / Enter - edit \n Shift/Alt+Enter - newline \n Ctrl+Enter - save&stay \n Del - clear cell \n = - formula \n : - command \n l - lesson text \n n / p - next / previous lesson \n Ctrl←/Ctrl→ - col width \n Ctrl↑/Ctrl↓ - row height \n F2/F3 - add row/col \n F4/F5 - clear row/col \n PgUp/PgDn/Home/End - scroll \n :lesson id | :solve | :reset | :check \n :goto A1 | :cw n | :rh n \n :w file | :o file (csv, sheet, xlsx) \n "

func NewApp(wb *workbook.Workbook, colWidth int) *App {
	if colWidth <= 0 {
		colWidth = 12
	}
	a := &App{
		LeftGutter:        4,
		StatusLines:       3,
		DefaultWidth:      colWidth,
		DefaultHeight:     1,
		CellPadding:       1,
		WB:                wb,
		Mode:              "normal",
		EnterStartsEdit:   true,
		MoveAfterEnter:    true,
		SelectAllOnEdit:   true,
		ReplaceOnNextRune: false,
	}
	a.resetLayout()
	return a
}

// resetLayout sizes every column and row of the workbook to the defaults.
func (a *App) resetLayout() {
	a.ColWidths = a.ColWidths[:0]
	a.RowHeights = a.RowHeights[:0]
	a.EnsureColExists(a.WB.Cols - 1)
	a.EnsureRowExists(a.WB.Rows - 1)
}

func (a *App) cursor() grid.CellAddress {
	return grid.Addr(a.CurCol, a.CurRow)
}

// ----------------------------- Events / Input -----------------------------

func (a *App) HandleKeyEvent(s tcell.Screen, ev *tcell.EventKey) {
	if a.Mode == "insert" {
		mod := ev.Modifiers()
		switch ev.Key() {
		case tcell.KeyEsc:
			// cancel edit
			a.Mode = "normal"
			a.InputBuf = ""
			a.ReplaceOnNextRune = false
		case tcell.KeyEnter:
			// Shift+Enter or Alt+Enter -> newline inside the cell
			if mod&tcell.ModShift != 0 || mod&tcell.ModAlt != 0 {
				a.InputBuf += "\n"
				return
			}
			a.SetCellValue(a.InputBuf)
			a.Mode = "normal"
			a.InputBuf = ""
			a.ReplaceOnNextRune = false
			// move after enter unless Ctrl held
			if mod&tcell.ModCtrl == 0 && a.MoveAfterEnter {
				a.CurRow++
				a.EnsureRowExists(a.CurRow)
			}
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if r := []rune(a.InputBuf); len(r) > 0 {
				a.InputBuf = string(r[:len(r)-1])
			}
			a.ReplaceOnNextRune = false
		default:
			r := ev.Rune()
			if r != 0 {
				if a.ReplaceOnNextRune {
					a.InputBuf = string(r)
					a.ReplaceOnNextRune = false
				} else {
					a.InputBuf += string(r)
				}
			}
		}
		return
	}

	// the popup swallows keys until closed with Esc, Enter or '?'
	if a.Overlay != "" {
		if ev.Key() == tcell.KeyEsc || ev.Key() == tcell.KeyEnter || ev.Rune() == '?' {
			a.Overlay = ""
		}
		return
	}

	a.Message = ""
	mod := ev.Modifiers()
	switch ev.Key() {
	case tcell.KeyEsc:
		// noop
	case tcell.KeyCtrlC:
		a.Quit = true
	case tcell.KeyUp:
		if mod&tcell.ModCtrl != 0 {
			if a.CurRow >= 0 && a.CurRow < len(a.RowHeights) && a.RowHeights[a.CurRow] > 1 {
				a.RowHeights[a.CurRow]--
			}
		} else if a.CurRow > 0 {
			a.CurRow--
		}
	case tcell.KeyDown:
		if mod&tcell.ModCtrl != 0 {
			if a.CurRow >= 0 && a.CurRow < len(a.RowHeights) {
				a.RowHeights[a.CurRow]++
			}
		} else {
			a.CurRow++
			a.EnsureRowExists(a.CurRow)
		}
	case tcell.KeyLeft:
		if mod&tcell.ModCtrl != 0 {
			if a.CurCol >= 0 && a.CurCol < len(a.ColWidths) && a.ColWidths[a.CurCol] > 4 {
				a.ColWidths[a.CurCol]--
			}
		} else if a.CurCol > 0 {
			a.CurCol--
		}
	case tcell.KeyRight:
		if mod&tcell.ModCtrl != 0 {
			if a.CurCol >= 0 && a.CurCol < len(a.ColWidths) {
				a.ColWidths[a.CurCol]++
			}
		} else if a.CurCol < grid.MaxColumns-1 {
			a.CurCol++
			a.EnsureColExists(a.CurCol)
		}
	case tcell.KeyPgUp:
		vr, _ := a.ComputeVisible(s)
		a.ViewRow = max(0, a.ViewRow-vr)
		a.CurRow = max(0, a.CurRow-vr)
	case tcell.KeyPgDn:
		vr, _ := a.ComputeVisible(s)
		a.ViewRow = min(a.ViewRow+vr, max(0, len(a.RowHeights)-1))
		a.CurRow = min(a.CurRow+vr, max(0, len(a.RowHeights)-1))
	case tcell.KeyHome:
		a.ViewCol, a.ViewRow = 0, 0
		a.CurCol, a.CurRow = 0, 0
	case tcell.KeyEnd:
		maxCol, maxRow := a.WB.Sheet.Bounds()
		a.CurCol, a.CurRow = max(0, maxCol), max(0, maxRow)
	case tcell.KeyDelete:
		a.SetCellValue("")
	case tcell.KeyF2:
		a.EnsureRowExists(len(a.RowHeights))
	case tcell.KeyF3:
		if len(a.ColWidths) < grid.MaxColumns {
			a.EnsureColExists(len(a.ColWidths))
		}
	case tcell.KeyF4:
		a.clear(func(addr grid.CellAddress) bool { return addr.RowIndex() == a.CurRow })
	case tcell.KeyF5:
		a.clear(func(addr grid.CellAddress) bool { return addr.ColIndex() == a.CurCol })
	default:
		r := ev.Rune()

		if ev.Key() == tcell.KeyEnter && a.EnterStartsEdit {
			a.startEdit()
			return
		}

		switch r {
		case 0:
		case 'q':
			a.Quit = true
		case 'i':
			a.startEdit()
		case ':':
			if command, ok := a.PopupInput(s, ":", ""); ok {
				a.ExecuteCommand(command)
			}
		case '=':
			if formula, ok := a.PopupInput(s, "", "="); ok {
				a.SetCellValue(formula)
			}
		case '?':
			a.Overlay = helpText
		case 'l':
			a.showLesson()
		case 'n':
			a.openLesson(a.WB.Step(1))
		case 'p':
			a.openLesson(a.WB.Step(-1))
		default:
			if a.PrintableStartsEdit {
				a.Mode = "insert"
				a.InputBuf = string(r)
				a.ReplaceOnNextRune = false
			}
		}
	}
}

func (a *App) startEdit() {
	a.Mode = "insert"
	a.InputBuf = a.WB.Sheet.Raw(a.cursor())
	a.ReplaceOnNextRune = a.SelectAllOnEdit
}

// SetCellValue commits value into the cursor cell. Editing the lesson's
// target cell reports the check result in the status line.
func (a *App) SetCellValue(value string) {
	a.EnsureColExists(a.CurCol)
	a.EnsureRowExists(a.CurRow)
	out := a.WB.Set(a.cursor(), value)
	if l, ok := a.WB.Lesson(); ok && l.HasTask() {
		if target, _ := l.Target(); target == a.cursor() {
			a.Message = l.Feedback(out)
		}
	}
}

// clear blanks every non-empty cell matching in.
func (a *App) clear(in func(grid.CellAddress) bool) {
	edits := map[grid.CellAddress]string{}
	for addr, c := range a.WB.Sheet {
		if c.RawInput != "" && in(addr) {
			edits[addr] = ""
		}
	}
	if len(edits) > 0 {
		a.WB.Apply(edits)
	}
}

// ----------------------------- Commands / Storage -----------------------------

func (a *App) ExecuteCommand(cmd string) {
	parts := strings.Fields(strings.TrimPrefix(strings.TrimSpace(cmd), ":"))
	if len(parts) == 0 {
		return
	}
	arg := ""
	if len(parts) >= 2 {
		arg = parts[1]
	}
	switch parts[0] {
	case "q", "quit":
		a.Quit = true
	case "cw":
		if v, err := strconv.Atoi(arg); err == nil && v >= 4 {
			for i := range a.ColWidths {
				a.ColWidths[i] = v
			}
		}
	case "rh":
		if v, err := strconv.Atoi(arg); err == nil && v >= 1 {
			for i := range a.RowHeights {
				a.RowHeights[i] = v
			}
		}
	case "w":
		if arg == "" {
			a.Message = "usage: :w file"
			return
		}
		doc := a.WB.Document()
		doc.ColWidths = slices.Clone(a.ColWidths)
		doc.RowHeights = slices.Clone(a.RowHeights)
		if err := storage.Save(arg, doc); err != nil {
			log.Error().Err(err).Str("path", arg).Msg("save failed")
			a.Message = "error saving: " + err.Error()
			return
		}
		a.Message = "saved " + arg
	case "o":
		if arg == "" {
			a.Message = "usage: :o file"
			return
		}
		doc, err := storage.Open(arg)
		if err == nil {
			err = a.WB.Load(doc)
		}
		if err != nil {
			log.Error().Err(err).Str("path", arg).Msg("open failed")
			a.Message = "error opening: " + err.Error()
			return
		}
		a.resetLayout()
		maxCol, maxRow := a.WB.Sheet.Bounds()
		a.EnsureColExists(maxCol)
		a.EnsureRowExists(maxRow)
		copy(a.ColWidths, doc.ColWidths)
		copy(a.RowHeights, doc.RowHeights)
		a.home()
		a.Message = "opened " + arg
	case "lesson":
		if arg == "" {
			a.showLessons()
			return
		}
		a.openLesson(a.WB.Open(arg))
	case "lessons":
		a.showLessons()
	case "next":
		a.openLesson(a.WB.Step(1))
	case "prev":
		a.openLesson(a.WB.Step(-1))
	case "task":
		a.showLesson()
	case "check":
		l, ok := a.WB.Lesson()
		if !ok {
			a.Message = workbook.ErrNoLesson.Error()
			return
		}
		out := a.WB.Outcome()
		a.Message = out.Result.String() + ": " + l.Feedback(out)
	case "solve":
		out, err := a.WB.Solve()
		if err != nil {
			a.Message = err.Error()
			return
		}
		l, _ := a.WB.Lesson()
		if target, ok := l.Target(); ok {
			a.CurCol, a.CurRow = target.ColIndex(), target.RowIndex()
		}
		a.Message = l.Feedback(out)
	case "reset":
		a.WB.Reset()
		a.Message = "sheet reset"
	case "goto", "g":
		addr, ok := grid.ParseCellRef(arg)
		if !ok {
			a.Message = "invalid cell " + arg
			return
		}
		a.CurCol, a.CurRow = addr.ColIndex(), addr.RowIndex()
		a.EnsureColExists(a.CurCol)
		a.EnsureRowExists(a.CurRow)
	default:
		a.Message = "unknown command " + parts[0]
	}
}

// openLesson reports err, or moves to the freshly opened lesson.
func (a *App) openLesson(err error) {
	if err != nil {
		a.Message = err.Error()
		return
	}
	a.resetLayout()
	a.home()
	a.showLesson()
}

func (a *App) home() {
	a.CurRow, a.CurCol, a.ViewRow, a.ViewCol = 0, 0, 0, 0
}

func (a *App) showLesson() {
	l, ok := a.WB.Lesson()
	if !ok {
		a.Message = workbook.ErrNoLesson.Error()
		return
	}
	text := "\n" + l.Title + "\n\n" + strings.TrimSpace(l.Content) + "\n"
	if l.HasTask() {
		text += "\nGoal: " + l.Goal + "\n"
	}
	a.Overlay = text
}

func (a *App) showLessons() {
	var b strings.Builder
	b.WriteString("\n")
	cur, _ := a.WB.Lesson()
	for _, l := range a.WB.Lessons() {
		mark := "  "
		if l.ID == cur.ID {
			mark = "> "
		}
		b.WriteString(mark + l.ID + " - " + l.Title + "\n")
	}
	a.Overlay = b.String()
}

// ----------------------------- Display -----------------------------

// GetDisplayText renders the computed value of a cell. Numbers show at
// most six decimals.
func (a *App) GetDisplayText(r, c int) string {
	return displayText(a.WB.Value(grid.Addr(c, r)))
}

// statusLesson is the lesson line of the status area.
func (a *App) statusLesson() string {
	l, ok := a.WB.Lesson()
	if !ok {
		return "free sheet  (:lesson id to start a lesson, ? for help)"
	}
	pos := lesson.Index(a.WB.Lessons(), l.ID) + 1
	line := "[" + strconv.Itoa(pos) + "/" + strconv.Itoa(len(a.WB.Lessons())) + "] " + l.Title
	if l.HasTask() {
		line += "  (" + a.WB.Outcome().Result.String() + ")"
	}
	return line
}

// statusMessage is the last line: the edit buffer, a message, or the
// current task feedback.
func (a *App) statusMessage() string {
	switch {
	case a.Mode == "insert":
		return "EDIT: " + a.InputBuf
	case a.Message != "":
		return a.Message
	}
	if l, ok := a.WB.Lesson(); ok {
		return l.Feedback(a.WB.Outcome())
	}
	return ""
}
