package workbook

import (
	"errors"
	"testing"

	"sheetlab/internal/grid"
	"sheetlab/internal/lesson"
	"sheetlab/internal/progress"
	"sheetlab/internal/recalc"
	"sheetlab/internal/storage"
	"sheetlab/internal/value"
)

func newWorkbook(t *testing.T) (*Workbook, *progress.Tracker) {
	t.Helper()
	lessons, err := lesson.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	tr, _ := progress.NewTracker(nil)
	return New(Options{Lessons: lessons, Tracker: tr, User: "T01", Mode: recalc.Converge}), tr
}

var c6 = grid.CellAddress{Col: 'C', Row: 6}

func TestOpenAndTrack(t *testing.T) {
	w, tr := newWorkbook(t)
	if _, ok := w.Lesson(); ok {
		t.Fatal("new workbook has a lesson")
	}
	if err := w.Open("func-sum"); err != nil {
		t.Fatal(err)
	}
	if got := w.Value(grid.CellAddress{Col: 'C', Row: 4}); got != value.Number(2.5) {
		t.Errorf("C4 = %v", got)
	}

	if out := w.Set(c6, "=SUM(C2:C4)"); out.Result != lesson.Incorrect {
		t.Errorf("partial sum = %s", out.Result)
	}
	if out := w.Set(c6, "7.5"); out.Result != lesson.WrongMethod {
		t.Errorf("typed answer = %s", out.Result)
	}
	if out := w.Set(c6, "=SUM(C2:C5)"); out.Result != lesson.Success || !value.LooseEqual(out.Value, value.Number(7.5)) {
		t.Errorf("solution = %+v", out)
	}

	p := tr.Sessions()["T01"].Progress["func-sum"]
	if p.Status != progress.StatusSuccess {
		t.Errorf("status = %s", p.Status)
	}
	// the typed number is not a formula so it is not recorded
	if len(p.IncorrectFormulas) != 1 || p.IncorrectFormulas[0] != "=SUM(C2:C4)" {
		t.Errorf("incorrect = %v", p.IncorrectFormulas)
	}
}

func TestDependentCellsUpdate(t *testing.T) {
	w, _ := newWorkbook(t)
	w.Set(grid.CellAddress{Col: 'A', Row: 1}, "2")
	w.Set(grid.CellAddress{Col: 'A', Row: 3}, "=A2*10")
	w.Set(grid.CellAddress{Col: 'A', Row: 2}, "=A1+1")
	if got := w.Value(grid.CellAddress{Col: 'A', Row: 3}); got != value.Number(30) {
		t.Errorf("A3 = %v", got)
	}
	if got := w.Eval("=A3/3"); got != value.Number(10) {
		t.Errorf("Eval = %v", got)
	}
	if w.Outcome().Result != lesson.Pending {
		t.Errorf("free sheet outcome = %s", w.Outcome().Result)
	}
}

func TestStepSolveReset(t *testing.T) {
	w, _ := newWorkbook(t)
	if _, err := w.Solve(); !errors.Is(err, ErrNoLesson) {
		t.Errorf("Solve on free sheet: %v", err)
	}
	if err := w.Step(1); err != nil {
		t.Fatal(err)
	}
	if l, _ := w.Lesson(); l.ID != "intro-excel" {
		t.Errorf("first step = %s", l.ID)
	}
	if err := w.Step(-1); err == nil {
		t.Error("stepped before the first lesson")
	}
	w.Step(1)
	l, _ := w.Lesson()
	if l.ID != "xlookup-concept" {
		t.Errorf("second lesson = %s", l.ID)
	}
	out, err := w.Solve()
	if err != nil || out.Result != lesson.Success {
		t.Fatalf("Solve = %+v, %v", out, err)
	}
	w.Reset()
	if w.Outcome().Result != lesson.Pending {
		t.Errorf("after reset = %s", w.Outcome().Result)
	}
	if err := w.Open("missing"); !errors.Is(err, lesson.ErrNotFound) {
		t.Errorf("Open(missing) = %v", err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	w, _ := newWorkbook(t)
	w.Open("func-sum")
	w.Set(c6, "=SUM(C2:C5)")
	doc := w.Document()
	if doc.Lesson != "func-sum" || doc.Cells["C6"] != "=SUM(C2:C5)" {
		t.Fatalf("doc = %+v", doc)
	}

	other, _ := newWorkbook(t)
	if err := other.Load(doc); err != nil {
		t.Fatal(err)
	}
	if l, ok := other.Lesson(); !ok || l.ID != "func-sum" {
		t.Errorf("lesson after load = %v", l.ID)
	}
	if other.Outcome().Result != lesson.Success {
		t.Errorf("outcome after load = %s", other.Outcome().Result)
	}
	if len(other.Sheet) != lesson.SheetColumns*lesson.SheetRows {
		t.Errorf("sheet has %d cells", len(other.Sheet))
	}
}

func TestGrowAndApply(t *testing.T) {
	w, _ := newWorkbook(t)
	w.Grow(30, 25)
	if w.Cols != grid.MaxColumns || w.Rows != 25 || len(w.Sheet) != grid.MaxColumns*25 {
		t.Errorf("grown to %dx%d with %d cells", w.Cols, w.Rows, len(w.Sheet))
	}
	w.Grow(1, 1)
	if w.Cols != grid.MaxColumns || w.Rows != 25 {
		t.Errorf("Grow shrank the grid to %dx%d", w.Cols, w.Rows)
	}

	a1, a2, b1 := grid.CellAddress{Col: 'A', Row: 1}, grid.CellAddress{Col: 'A', Row: 2}, grid.CellAddress{Col: 'B', Row: 1}
	w.Apply(map[grid.CellAddress]string{a1: "3", a2: "4", b1: "=A1*A2"})
	if got := w.Value(b1); got != value.Number(12) {
		t.Errorf("B1 = %v", got)
	}
	w.Apply(map[grid.CellAddress]string{a1: "", a2: ""})
	if got := w.Value(b1); got != value.Number(0) {
		t.Errorf("B1 after clearing = %v", got)
	}
}

func TestLoadGrowsGrid(t *testing.T) {
	w, _ := newWorkbook(t)
	doc := storage.Document{Cells: map[string]string{"L25": "=A1+1", "A1": "1"}}
	if err := w.Load(doc); err != nil {
		t.Fatal(err)
	}
	if w.Cols != 12 || w.Rows != 25 {
		t.Errorf("grid is %dx%d", w.Cols, w.Rows)
	}
	if got := w.Value(grid.CellAddress{Col: 'L', Row: 25}); got != value.Number(2) {
		t.Errorf("L25 = %v", got)
	}
	if _, ok := w.Lesson(); ok {
		t.Error("document without a lesson selected one")
	}
}
