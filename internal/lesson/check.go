package lesson

import (
	"strings"

	"github.com/xuri/efp"

	"sheetlab/internal/calc"
	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

// Result is the state of a lesson task.
type Result int

const (
	Pending Result = iota
	Success
	// WrongMethod means the value is right but the formula does not use
	// the function or operator the lesson teaches.
	WrongMethod
	Incorrect
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case WrongMethod:
		return "wrong method"
	case Incorrect:
		return "incorrect"
	}
	return "pending"
}

// Outcome is the result of checking a sheet, with the value and formula
// found in the target cell.
type Outcome struct {
	Result  Result
	Value   value.Value
	Formula string
}

// Check inspects the target cell of sheet. The cell's cached value is
// used when present; a pending formula is evaluated on the spot. Values
// compare loosely, so "2.50" matches 2.5.
func Check(l Lesson, sheet grid.Sheet) Outcome {
	addr, ok := l.Target()
	if !ok || !l.HasTask() {
		return Outcome{Result: Pending}
	}
	cell, ok := sheet[addr]
	if !ok || cell.RawInput == "" {
		return Outcome{Result: Pending}
	}

	var got value.Value
	switch {
	case cell.Computed != nil:
		got = *cell.Computed
	case cell.IsFormula():
		got = calc.Evaluate(cell.RawInput, sheet)
	default:
		got = value.FromInput(cell.RawInput)
	}
	out := Outcome{Value: got}
	if cell.IsFormula() {
		out.Formula = cell.Formula
	}

	switch {
	case !value.LooseEqual(got, value.FromInput(l.ExpectedValue)):
		out.Result = Incorrect
	case l.ExpectedFormula != "" && !Uses(cell.Formula, l.ExpectedFormula):
		out.Result = WrongMethod
	default:
		out.Result = Success
	}
	return out
}

// Feedback is the one-line message shown to the learner for o.
func (l Lesson) Feedback(o Outcome) string {
	switch o.Result {
	case Success:
		return "Solved! " + l.TargetCell + " = " + o.Value.String()
	case WrongMethod:
		return "Right value, now get it with " + l.ExpectedFormula
	case Incorrect:
		return "Not yet: " + l.TargetCell + " is " + o.Value.String() + ", expected " + l.ExpectedValue
	}
	if l.HasTask() {
		return l.Goal
	}
	return ""
}

// Uses reports whether formula calls the function name or applies the
// operator op. Names inside string literals do not count.
func Uses(formula, name string) bool {
	if !strings.HasPrefix(formula, "=") || name == "" {
		return false
	}
	ps := efp.ExcelParser()
	for _, token := range ps.Parse(formula[1:]) {
		switch {
		case token.TType == efp.TokenTypeFunction && token.TSubType == efp.TokenSubTypeStart:
			if strings.EqualFold(token.TValue, name) {
				return true
			}
		case token.TType == efp.TokenTypeOperatorInfix:
			if token.TValue == name {
				return true
			}
		}
	}
	return false
}
