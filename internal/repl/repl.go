// Package repl is a line-oriented front end to a workbook.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/peterh/liner"

	"sheetlab/internal/calc"
	"sheetlab/internal/grid"
	"sheetlab/internal/storage"
	"sheetlab/internal/workbook"
)

const prompt = "fx> "

const helpText = `Enter:
  =FORMULA         evaluate against the sheet without storing it
  A1 TEXT          store TEXT (a literal or =formula) in A1
  A1               show the raw input and value of A1
Commands:
  :show            print the sheet
  :lessons         list lessons
  :lesson ID       open a lesson
  :next, :prev     move through the lessons
  :task            show the current lesson
  :check           check the lesson task
  :solve           fill in the solution
  :reset           restart the lesson sheet
  :open FILE       load a .csv, .sheet or .xlsx file
  :save FILE       save the sheet
  :funcs           list functions
  :quit            leave
`

// REPL executes lines against a workbook, writing results to Out.
type REPL struct {
	WB  *workbook.Workbook
	Out io.Writer
}

// New returns a REPL printing to out.
func New(wb *workbook.Workbook, out io.Writer) *REPL {
	return &REPL{WB: wb, Out: out}
}

// Run reads lines until :quit or EOF. History is kept in historyPath
// when it is set.
func (r *REPL) Run(historyPath string) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	fmt.Fprintln(r.Out, "sheetlab: type :help for commands")
	r.task()
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.Out)
			break
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if r.Execute(line) {
			break
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return nil
}

// Execute runs one input line and reports whether the session should end.
func (r *REPL) Execute(line string) (quit bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, ":"):
		return r.command(line)
	case strings.HasPrefix(line, "="):
		fmt.Fprintln(r.Out, r.WB.Eval(line))
		return false
	}

	ref, raw, _ := strings.Cut(line, " ")
	addr, ok := grid.ParseCellRef(ref)
	if !ok || addr.ColIndex() >= r.WB.Cols || addr.RowIndex() >= r.WB.Rows {
		fmt.Fprintf(r.Out, "unknown cell %q. Type :help for help.\n", ref)
		return false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		fmt.Fprintf(r.Out, "%s: %q = %s\n", addr, r.WB.Sheet.Raw(addr), r.WB.Value(addr))
		return false
	}
	out := r.WB.Set(addr, raw)
	fmt.Fprintf(r.Out, "%s = %s\n", addr, r.WB.Value(addr))
	if l, ok := r.WB.Lesson(); ok && l.HasTask() {
		if target, _ := l.Target(); target == addr {
			fmt.Fprintln(r.Out, l.Feedback(out))
		}
	}
	return false
}

func (r *REPL) command(line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case ":help", ":h":
		fmt.Fprint(r.Out, helpText)
	case ":quit", ":q", ":exit":
		return true
	case ":show":
		r.show()
	case ":lessons":
		tw := tabwriter.NewWriter(r.Out, 0, 4, 2, ' ', 0)
		for _, l := range r.WB.Lessons() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.Category, l.Title)
		}
		tw.Flush()
	case ":lesson":
		if arg == "" {
			fmt.Fprintln(r.Out, "usage: :lesson <id>")
			return false
		}
		r.report(r.WB.Open(arg))
	case ":next":
		r.report(r.WB.Step(1))
	case ":prev":
		r.report(r.WB.Step(-1))
	case ":task":
		r.task()
	case ":check":
		l, ok := r.WB.Lesson()
		if !ok {
			fmt.Fprintln(r.Out, workbook.ErrNoLesson)
			return false
		}
		out := r.WB.Outcome()
		fmt.Fprintf(r.Out, "%s: %s\n", out.Result, l.Feedback(out))
	case ":solve":
		out, err := r.WB.Solve()
		if err != nil {
			fmt.Fprintln(r.Out, err)
			return false
		}
		l, _ := r.WB.Lesson()
		fmt.Fprintf(r.Out, "%s = %s\n%s\n", l.TargetCell, l.SolutionFormula, l.Feedback(out))
	case ":reset":
		r.WB.Reset()
		fmt.Fprintln(r.Out, "sheet reset")
	case ":open", ":o":
		doc, err := storage.Open(arg)
		if err == nil {
			err = r.WB.Load(doc)
		}
		if err != nil {
			fmt.Fprintf(r.Out, "cannot open %s: %v\n", arg, err)
			return false
		}
		fmt.Fprintf(r.Out, "opened %s\n", arg)
	case ":save", ":w":
		if err := storage.Save(arg, r.WB.Document()); err != nil {
			fmt.Fprintf(r.Out, "cannot save %s: %v\n", arg, err)
			return false
		}
		fmt.Fprintf(r.Out, "saved %s\n", arg)
	case ":funcs":
		fmt.Fprintln(r.Out, strings.Join(calc.Builtins(), " "))
	default:
		fmt.Fprintf(r.Out, "unknown command %s. Type :help for help.\n", cmd)
	}
	return false
}

// report prints err, or the newly opened lesson.
func (r *REPL) report(err error) {
	if err != nil {
		fmt.Fprintln(r.Out, err)
		return
	}
	r.task()
}

func (r *REPL) task() {
	l, ok := r.WB.Lesson()
	if !ok {
		return
	}
	fmt.Fprintf(r.Out, "[%s] %s\n%s\n", l.ID, l.Title, strings.TrimSpace(l.Content))
	if l.HasTask() {
		fmt.Fprintf(r.Out, "Goal: %s\n", l.Goal)
	}
}

// show prints the used part of the sheet as computed values.
func (r *REPL) show() {
	maxCol, maxRow := r.WB.Sheet.Bounds()
	if maxCol < 0 {
		fmt.Fprintln(r.Out, "(empty sheet)")
		return
	}
	tw := tabwriter.NewWriter(r.Out, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "\t")
	for c := 0; c <= maxCol; c++ {
		fmt.Fprintf(tw, "%s\t", grid.ColToName(c))
	}
	fmt.Fprintln(tw)
	for row := 0; row <= maxRow; row++ {
		fmt.Fprintf(tw, "%d\t", row+1)
		for c := 0; c <= maxCol; c++ {
			fmt.Fprintf(tw, "%s\t", r.WB.Value(grid.Addr(c, row)))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
