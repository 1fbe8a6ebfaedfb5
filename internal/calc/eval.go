// Package calc evaluates spreadsheet formulas against a sheet snapshot.
//
// Evaluation is a pure function of the formula text and the snapshot: the
// sheet is never written, nothing is cached between calls, and every call
// returns a value.Value. Failures are reported as value.Err values, never as
// Go errors or panics, so callers can render results directly in a cell.
package calc

import (
	"regexp"
	"strings"

	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

// MaxDepth bounds formula nesting. Deeper formulas evaluate to #ERROR.
const MaxDepth = 64

// Evaluate computes text against sheet. Text that does not start with "="
// is returned unchanged as Text.
func Evaluate(text string, sheet grid.Sheet) value.Value {
	if !strings.HasPrefix(text, "=") {
		return value.Text(text)
	}
	e := &evaluator{sheet: sheet}
	return e.formula(text[1:])
}

type evaluator struct {
	sheet grid.Sheet
	depth int
}

// formula evaluates a body with the leading "=" already removed.
func (e *evaluator) formula(body string) value.Value {
	if e.depth >= MaxDepth {
		return value.Err(value.Generic)
	}
	e.depth++
	defer func() { e.depth-- }()

	body = strings.TrimSpace(body)
	if name, args, ok := splitCall(body); ok {
		return e.call(name, args)
	}
	return evalExpression(body, e.sheet)
}

// call runs a builtin. Any panic below this point becomes #ERROR.
func (e *evaluator) call(name, argText string) (v value.Value) {
	defer func() {
		if r := recover(); r != nil {
			v = value.Err(value.Generic)
		}
	}()
	return builtins[name](e, SplitArguments(argText))
}

// splitCall recognises NAME(args) where NAME is a builtin and the closing
// parenthesis of the first "(" is the last character of body.
func splitCall(body string) (name, args string, ok bool) {
	open := strings.IndexByte(body, '(')
	if open < 0 || !strings.HasSuffix(body, ")") {
		return "", "", false
	}
	name = strings.ToUpper(body[:open])
	if _, known := builtins[name]; !known {
		return "", "", false
	}
	if matchingParen(body, open) != len(body)-1 {
		return "", "", false
	}
	return name, body[open+1 : len(body)-1], true
}

// matchingParen returns the index of the ")" closing the "(" at open, or -1.
func matchingParen(s string, open int) int {
	depth := 0
	inQuotes := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var callPrefix = regexp.MustCompile(`^[A-Za-z]+\s*\(`)

// arg evaluates one function argument: nested calls and expressions are
// evaluated recursively, anything else is classified by CellValue.
func (e *evaluator) arg(arg string) value.Value {
	arg = strings.TrimSpace(arg)
	if callPrefix.MatchString(arg) {
		return e.formula(arg)
	}
	if !isPlainString(arg) && strings.ContainsAny(arg, "+-*/&") {
		if f, ok := value.ParseNumber(arg); ok {
			return value.Number(f)
		}
		return e.formula(arg)
	}
	return CellValue(arg, e.sheet)
}

// isPlainString reports a single quoted literal with no inner quotes.
func isPlainString(s string) bool {
	return isQuoted(s) && !strings.Contains(s[1:len(s)-1], `"`)
}

// values flattens aggregate arguments. Cell and range references expand
// through ResolveRange; other arguments are evaluated as one value each.
func (e *evaluator) values(args []string) []value.Value {
	var out []value.Value
	for _, a := range args {
		if isReference(a) {
			out = append(out, ResolveRange(a, e.sheet)...)
			continue
		}
		out = append(out, e.arg(a))
	}
	return out
}
