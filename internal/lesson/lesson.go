// Package lesson holds the exercise catalog and checks a learner's sheet
// against the task of the active lesson.
package lesson

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"sheetlab/internal/grid"
)

// Default grid of a lesson sheet, A-J by 20 rows.
const (
	SheetColumns = 10
	SheetRows    = 20
)

// ErrNotFound is returned by Find for an unknown lesson id.
var ErrNotFound = errors.New("lesson not found")

// Category groups lessons in the catalog.
type Category string

const (
	Basics    Category = "basics"
	Functions Category = "functions"
	Practice  Category = "practice"
)

// Lesson is one catalog entry. A lesson without a target cell and expected
// value is reading material only.
type Lesson struct {
	ID              string            `yaml:"id"`
	Title           string            `yaml:"title"`
	Description     string            `yaml:"description"`
	Category        Category          `yaml:"category"`
	Content         string            `yaml:"content"`
	Sheet           map[string]string `yaml:"sheet,omitempty"`
	Goal            string            `yaml:"goal,omitempty"`
	TargetCell      string            `yaml:"target_cell,omitempty"`
	ExpectedValue   string            `yaml:"expected_value,omitempty"`
	ExpectedFormula string            `yaml:"expected_formula,omitempty"`
	SolutionFormula string            `yaml:"solution_formula,omitempty"`
}

type catalogFile struct {
	Lessons []Lesson `yaml:"lessons"`
}

//go:embed lessons.yaml
var catalogData []byte

var builtin = sync.OnceValues(func() ([]Lesson, error) {
	return Parse(catalogData)
})

// Catalog returns the built-in lessons in teaching order. The returned
// lessons share their sheet maps and must not be modified.
func Catalog() ([]Lesson, error) {
	lessons, err := builtin()
	return slices.Clone(lessons), err
}

// LoadFile reads a catalog file with the same layout as the built-in one.
func LoadFile(path string) ([]Lesson, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lessons, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lessons, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]Lesson, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error decoding lessons: %w", err)
	}
	seen := map[string]bool{}
	for _, l := range file.Lessons {
		if err := l.validate(); err != nil {
			return nil, err
		}
		if seen[l.ID] {
			return nil, fmt.Errorf("duplicate lesson id %q", l.ID)
		}
		seen[l.ID] = true
	}
	return file.Lessons, nil
}

func (l Lesson) validate() error {
	if l.ID == "" {
		return errors.New("lesson without id")
	}
	switch l.Category {
	case Basics, Functions, Practice:
	default:
		return fmt.Errorf("lesson %s: unknown category %q", l.ID, l.Category)
	}
	if l.TargetCell != "" {
		if _, ok := grid.ParseCellAddress(l.TargetCell); !ok {
			return fmt.Errorf("lesson %s: invalid target cell %q", l.ID, l.TargetCell)
		}
	}
	for ref := range l.Sheet {
		addr, ok := grid.ParseCellAddress(ref)
		if !ok || addr.ColIndex() >= SheetColumns || addr.Row > SheetRows {
			return fmt.Errorf("lesson %s: cell %q outside the lesson grid", l.ID, ref)
		}
	}
	return nil
}

// Find returns the lesson with id.
func Find(lessons []Lesson, id string) (Lesson, error) {
	if i := Index(lessons, id); i >= 0 {
		return lessons[i], nil
	}
	return Lesson{}, fmt.Errorf("%q: %w", id, ErrNotFound)
}

// Index returns the position of id in lessons, or -1.
func Index(lessons []Lesson, id string) int {
	return slices.IndexFunc(lessons, func(l Lesson) bool { return l.ID == id })
}

// HasTask reports whether the lesson can be checked.
func (l Lesson) HasTask() bool {
	return l.TargetCell != "" && l.ExpectedValue != ""
}

// Target returns the address of the cell the task is checked on.
func (l Lesson) Target() (grid.CellAddress, bool) {
	return grid.ParseCellAddress(l.TargetCell)
}

// NewSheet builds the starting sheet: a blank lesson grid with the
// lesson's cells filled in.
func (l Lesson) NewSheet() grid.Sheet {
	sheet := grid.NewSheet(SheetColumns, SheetRows)
	for ref, raw := range l.Sheet {
		if addr, ok := grid.ParseCellAddress(ref); ok {
			sheet.Set(addr, raw)
		}
	}
	return sheet
}

// Solve writes the solution formula into the target cell. It reports
// false when the lesson has no solution.
func (l Lesson) Solve(sheet grid.Sheet) bool {
	addr, ok := l.Target()
	if !ok || l.SolutionFormula == "" {
		return false
	}
	sheet.Set(addr, l.SolutionFormula)
	return true
}
