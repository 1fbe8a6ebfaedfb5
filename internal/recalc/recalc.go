// Package recalc drives whole-sheet recomputation on top of calc.Evaluate.
package recalc

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/efp"

	"sheetlab/internal/calc"
	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

// Mode selects the recompute strategy.
type Mode string

const (
	// Single evaluates every formula once against the input snapshot.
	Single Mode = "single"
	// Converge repeats Single until nothing changes.
	Converge Mode = "converge"
	// Ordered evaluates formulas after the cells they reference.
	Ordered Mode = "ordered"
)

// DefaultPasses bounds Converge when no limit is configured.
const DefaultPasses = 8

// ParseMode validates a mode name; "" selects Converge.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Converge, nil
	case Single, Converge, Ordered:
		return m, nil
	}
	return "", fmt.Errorf("unknown recompute mode %q", s)
}

// Run recomputes sheet with mode and returns the new snapshot.
func Run(mode Mode, sheet grid.Sheet) grid.Sheet {
	switch mode {
	case Single:
		return Recompute(sheet)
	case Ordered:
		out, cyclic := OrderedRecompute(sheet)
		if len(cyclic) > 0 {
			log.Warn().Int("cells", len(cyclic)).Str("first", cyclic[0].String()).Msg("circular references")
		}
		return out
	}
	out, passes := ConvergeRecompute(sheet, DefaultPasses)
	log.Debug().Int("passes", passes).Int("cells", len(out)).Msg("recomputed sheet")
	return out
}

// Recompute runs one cycle: every formula cell is evaluated against the
// input snapshot and cached in a new snapshot. Non-formula cells cache
// their literal value. sheet itself is not modified.
func Recompute(sheet grid.Sheet) grid.Sheet {
	out := make(grid.Sheet, len(sheet))
	for addr, cell := range sheet {
		out[addr] = cell.WithComputed(evaluate(cell, sheet))
	}
	return out
}

func evaluate(cell grid.CellData, sheet grid.Sheet) value.Value {
	if cell.IsFormula() {
		return calc.Evaluate(cell.RawInput, sheet)
	}
	return value.FromInput(cell.RawInput)
}

// ConvergeRecompute repeats Recompute until no computed value changes or
// maxPasses cycles have run, and reports the number of cycles.
func ConvergeRecompute(sheet grid.Sheet, maxPasses int) (grid.Sheet, int) {
	if maxPasses < 1 {
		maxPasses = 1
	}
	cur := sheet
	for pass := 1; ; pass++ {
		next := Recompute(cur)
		if pass >= maxPasses || sameComputed(cur, next) {
			return next, pass
		}
		cur = next
	}
}

func sameComputed(a, b grid.Sheet) bool {
	if len(a) != len(b) {
		return false
	}
	for addr, cb := range b {
		ca, ok := a[addr]
		if !ok || ca.Computed == nil || cb.Computed == nil {
			return false
		}
		if *ca.Computed != *cb.Computed {
			return false
		}
	}
	return true
}

// OrderedRecompute evaluates formula cells after every cell they reference,
// each against the snapshot built so far. Cells on a reference cycle, or
// depending on one, are returned row-major and cached as #ERROR.
func OrderedRecompute(sheet grid.Sheet) (grid.Sheet, []grid.CellAddress) {
	out := make(grid.Sheet, len(sheet))
	deps := map[grid.CellAddress][]grid.CellAddress{}
	for _, addr := range sheet.Addresses() {
		cell := sheet[addr]
		if !cell.IsFormula() {
			out[addr] = cell.WithComputed(value.FromInput(cell.RawInput))
			continue
		}
		deps[addr] = References(cell.RawInput)
	}

	// Kahn's algorithm over formula cells only: literals are already final.
	pending := make(map[grid.CellAddress]int, len(deps))
	dependents := map[grid.CellAddress][]grid.CellAddress{}
	for addr := range deps {
		pending[addr] = 0
	}
	for addr, refs := range deps {
		for _, ref := range refs {
			if _, isFormula := deps[ref]; !isFormula {
				continue
			}
			pending[addr]++
			dependents[ref] = append(dependents[ref], addr)
		}
	}
	var queue []grid.CellAddress
	for _, addr := range sheet.Addresses() {
		if n, ok := pending[addr]; ok && n == 0 {
			queue = append(queue, addr)
		}
	}
	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]
		cell := sheet[addr]
		out[addr] = cell.WithComputed(calc.Evaluate(cell.RawInput, out))
		delete(pending, addr)
		for _, d := range dependents[addr] {
			pending[d]--
			if pending[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	var cyclic []grid.CellAddress
	for _, addr := range sheet.Addresses() {
		if _, stuck := pending[addr]; stuck {
			out[addr] = sheet[addr].WithComputed(value.Err(value.Generic))
			cyclic = append(cyclic, addr)
		}
	}
	return out, cyclic
}

// References lists the cells a formula reads, ranges expanded, in the
// order they first appear. Sheet prefixes and "$" anchors are ignored.
func References(formula string) []grid.CellAddress {
	body := strings.TrimPrefix(formula, "=")
	if body == "" {
		return nil
	}
	ps := efp.ExcelParser()
	tokens := ps.Parse(body)

	seen := map[grid.CellAddress]bool{}
	var refs []grid.CellAddress
	add := func(addr grid.CellAddress) {
		if !seen[addr] {
			seen[addr] = true
			refs = append(refs, addr)
		}
	}
	for _, token := range tokens {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref := token.TValue
		if i := strings.LastIndexByte(ref, '!'); i >= 0 {
			ref = ref[i+1:]
		}
		left, right, isRange := strings.Cut(ref, ":")
		start, ok := grid.ParseCellRef(left)
		if !ok {
			continue
		}
		if !isRange {
			add(start)
			continue
		}
		end, ok := grid.ParseCellRef(right)
		if !ok {
			continue
		}
		for _, addr := range (grid.Range{Start: start, End: end}).Cells() {
			add(addr)
		}
	}
	return refs
}
