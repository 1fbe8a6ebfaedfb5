// Package workbook ties a sheet to the lesson being worked on: edits are
// recomputed, checked against the lesson task and recorded for the user.
package workbook

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"sheetlab/internal/calc"
	"sheetlab/internal/grid"
	"sheetlab/internal/lesson"
	"sheetlab/internal/progress"
	"sheetlab/internal/recalc"
	"sheetlab/internal/storage"
	"sheetlab/internal/value"
)

// ErrNoLesson is returned by lesson operations on a free sheet.
var ErrNoLesson = errors.New("no lesson selected")

// Options configures a Workbook. Zero sizes select the lesson grid.
type Options struct {
	Cols, Rows int
	Mode       recalc.Mode
	User       string
	Lessons    []lesson.Lesson
	// Tracker is optional; without one nothing is recorded.
	Tracker *progress.Tracker
}

// Workbook is not safe for concurrent use.
type Workbook struct {
	Sheet      grid.Sheet
	Cols, Rows int
	Mode       recalc.Mode
	User       string

	lessons []lesson.Lesson
	current int
	tracker *progress.Tracker
	outcome lesson.Outcome
}

// New returns a workbook holding a blank sheet and no lesson.
func New(o Options) *Workbook {
	w := &Workbook{
		Cols:    o.Cols,
		Rows:    o.Rows,
		Mode:    o.Mode,
		User:    o.User,
		lessons: o.Lessons,
		current: -1,
		tracker: o.Tracker,
	}
	if w.Cols <= 0 {
		w.Cols = lesson.SheetColumns
	}
	w.Cols = min(w.Cols, grid.MaxColumns)
	if w.Rows <= 0 {
		w.Rows = lesson.SheetRows
	}
	if w.Mode == "" {
		w.Mode = recalc.Converge
	}
	w.Sheet = recalc.Run(w.Mode, grid.NewSheet(w.Cols, w.Rows))
	return w
}

// Lessons returns the catalog the workbook was built with.
func (w *Workbook) Lessons() []lesson.Lesson { return w.lessons }

// Lesson returns the current lesson.
func (w *Workbook) Lesson() (lesson.Lesson, bool) {
	if w.current < 0 {
		return lesson.Lesson{}, false
	}
	return w.lessons[w.current], true
}

// Open switches to lesson id with a fresh sheet and records the visit.
func (w *Workbook) Open(id string) error {
	i := lesson.Index(w.lessons, id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, lesson.ErrNotFound)
	}
	w.current = i
	w.load(w.lessons[i].NewSheet())
	if w.tracker != nil {
		if err := w.tracker.Visit(w.User, id); err != nil {
			log.Warn().Err(err).Str("lesson", id).Msg("tracking visit")
		}
	}
	log.Info().Str("lesson", id).Str("user", w.User).Msg("lesson opened")
	return nil
}

// Step opens the lesson delta places away in the catalog.
func (w *Workbook) Step(delta int) error {
	if len(w.lessons) == 0 {
		return ErrNoLesson
	}
	i := w.current + delta
	if w.current < 0 {
		i = 0
	}
	if i < 0 || i >= len(w.lessons) {
		return fmt.Errorf("no lesson %+d from %s", delta, w.lessons[w.current].ID)
	}
	return w.Open(w.lessons[i].ID)
}

// Reset restores the current lesson's starting sheet, or blanks a free
// sheet.
func (w *Workbook) Reset() {
	if l, ok := w.Lesson(); ok {
		w.load(l.NewSheet())
		return
	}
	w.load(nil)
}

// load replaces the sheet with a blank grid overlaid with cells. The grid
// grows to cover every non-blank cell.
func (w *Workbook) load(cells grid.Sheet) {
	maxC, maxR := cells.Bounds()
	w.Cols = min(max(w.Cols, maxC+1), grid.MaxColumns)
	w.Rows = max(w.Rows, maxR+1)
	sheet := grid.NewSheet(w.Cols, w.Rows)
	for addr, c := range cells {
		if c.RawInput != "" {
			sheet.Set(addr, c.RawInput)
		}
	}
	w.Sheet = recalc.Run(w.Mode, sheet)
	w.outcome = w.check()
}

// Set commits raw into addr, recomputes the sheet and checks the task.
func (w *Workbook) Set(addr grid.CellAddress, raw string) lesson.Outcome {
	log.Debug().Str("cell", addr.String()).Str("formula", raw).Msg("cell set")
	return w.Apply(map[grid.CellAddress]string{addr: raw})
}

// Apply commits several edits with a single recompute.
func (w *Workbook) Apply(edits map[grid.CellAddress]string) lesson.Outcome {
	for addr, raw := range edits {
		w.Sheet.Set(addr, raw)
	}
	w.Sheet = recalc.Run(w.Mode, w.Sheet)
	w.outcome = w.check()
	w.track(w.outcome)
	return w.outcome
}

// Grow enlarges the grid to at least cols x rows.
func (w *Workbook) Grow(cols, rows int) {
	cols = min(max(cols, w.Cols), grid.MaxColumns)
	rows = max(rows, w.Rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if _, ok := w.Sheet[grid.Addr(c, r)]; !ok {
				w.Sheet[grid.Addr(c, r)] = grid.NewCellData("")
			}
		}
	}
	w.Cols, w.Rows = cols, rows
}

// Solve writes the lesson's solution into its target cell.
func (w *Workbook) Solve() (lesson.Outcome, error) {
	l, ok := w.Lesson()
	if !ok {
		return lesson.Outcome{}, ErrNoLesson
	}
	addr, ok := l.Target()
	if !ok || l.SolutionFormula == "" {
		return lesson.Outcome{}, fmt.Errorf("lesson %s has no solution", l.ID)
	}
	return w.Set(addr, l.SolutionFormula), nil
}

// Outcome is the result of the last check.
func (w *Workbook) Outcome() lesson.Outcome { return w.outcome }

func (w *Workbook) check() lesson.Outcome {
	l, ok := w.Lesson()
	if !ok {
		return lesson.Outcome{Result: lesson.Pending}
	}
	return lesson.Check(l, w.Sheet)
}

func (w *Workbook) track(out lesson.Outcome) {
	l, ok := w.Lesson()
	if !ok || w.tracker == nil {
		return
	}
	var err error
	switch out.Result {
	case lesson.Success:
		err = w.tracker.Success(w.User, l.ID)
	case lesson.Incorrect, lesson.WrongMethod:
		if out.Formula != "" {
			err = w.tracker.Incorrect(w.User, l.ID, out.Formula)
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("lesson", l.ID).Str("user", w.User).Msg("tracking result")
	}
}

// Value returns the computed value of addr.
func (w *Workbook) Value(addr grid.CellAddress) value.Value {
	return calc.ResolveCell(addr, w.Sheet)
}

// Eval evaluates text against the sheet without storing it.
func (w *Workbook) Eval(text string) value.Value {
	return calc.Evaluate(text, w.Sheet)
}

// Document captures the sheet for saving.
func (w *Workbook) Document() storage.Document {
	doc := storage.NewDocument(w.Sheet)
	if l, ok := w.Lesson(); ok {
		doc.Lesson = l.ID
	}
	return doc
}

// Load replaces the sheet with doc's cells. A document naming a known
// lesson reselects that lesson without a new visit.
func (w *Workbook) Load(doc storage.Document) error {
	cells, err := doc.Sheet()
	if err != nil {
		return err
	}
	w.current = lesson.Index(w.lessons, doc.Lesson)
	if doc.Lesson != "" && w.current < 0 {
		log.Warn().Str("lesson", doc.Lesson).Msg("document lesson not in catalog")
	}
	w.load(cells)
	return nil
}
