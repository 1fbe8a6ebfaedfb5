package calc

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sheetlab/internal/value"
)

type builtinFunc func(e *evaluator, args []string) value.Value

// builtins is filled in init to break the reference cycle through
// evaluator.formula.
var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"SUM":     fnSum,
		"AVERAGE": fnAverage,
		"MAX":     fnMax,
		"MIN":     fnMin,
		"IF":      fnIf,
		"COUNTIF": fnCountIf,
		"CONCAT":  fnConcat,
		"LEN":     fnLen,
		"UPPER":   fnUpper,
		"LOWER":   fnLower,
		"PROPER":  fnProper,
		"LEFT":    fnLeft,
		"RIGHT":   fnRight,
		"XLOOKUP": fnXLookup,
	}
}

// Builtins lists the recognised function names.
func Builtins() []string {
	return []string{"SUM", "AVERAGE", "MAX", "MIN", "IF", "COUNTIF", "CONCAT",
		"LEN", "UPPER", "LOWER", "PROPER", "LEFT", "RIGHT", "XLOOKUP"}
}

// conditionOps is ordered so two-character operators win over their
// one-character prefixes.
var conditionOps = []string{">=", "<=", "<>", ">", "<", "="}

func numbers(vals []value.Value) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.AsNumber(); ok {
			out = append(out, f)
		}
	}
	return out
}

func fnSum(e *evaluator, args []string) value.Value {
	sum := 0.0
	for _, f := range numbers(e.values(args)) {
		sum += f
	}
	return value.Number(sum)
}

func fnAverage(e *evaluator, args []string) value.Value {
	nums := numbers(e.values(args))
	if len(nums) == 0 {
		return value.Err(value.DivByZero)
	}
	sum := 0.0
	for _, f := range nums {
		sum += f
	}
	return value.Number(sum / float64(len(nums)))
}

// fnMax and fnMin return 0 when nothing numeric is found.
func fnMax(e *evaluator, args []string) value.Value {
	best := math.Inf(-1)
	for _, f := range numbers(e.values(args)) {
		best = math.Max(best, f)
	}
	if math.IsInf(best, -1) {
		return value.Number(0)
	}
	return value.Number(best)
}

func fnMin(e *evaluator, args []string) value.Value {
	best := math.Inf(1)
	for _, f := range numbers(e.values(args)) {
		best = math.Min(best, f)
	}
	if math.IsInf(best, 1) {
		return value.Number(0)
	}
	return value.Number(best)
}

func fnIf(e *evaluator, args []string) value.Value {
	if len(args) < 2 {
		return value.Err(value.Generic)
	}
	cond, whenTrue, whenFalse := args[0], args[1], "FALSE"
	if len(args) > 2 && args[2] != "" {
		whenFalse = args[2]
	}

	var ok bool
	if op, at := findOperator(cond); op != "" {
		left := e.arg(cond[:at])
		right := e.arg(cond[at+len(op):])
		ok = compareWith(op, left, right)
	} else {
		ok = e.arg(cond).Truthy()
	}
	if ok {
		return e.arg(whenTrue)
	}
	return e.arg(whenFalse)
}

// findOperator picks the first operator of conditionOps that occurs in s
// outside quotes and parentheses, and returns it with its byte offset.
func findOperator(s string) (string, int) {
	for _, op := range conditionOps {
		if at := topLevelIndex(s, op); at >= 0 {
			return op, at
		}
	}
	return "", -1
}

func topLevelIndex(s, sub string) int {
	depth := 0
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inQuotes = !inQuotes
			continue
		case inQuotes:
			continue
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sub) {
			return i
		}
	}
	return -1
}

func fnCountIf(e *evaluator, args []string) value.Value {
	if len(args) < 2 {
		return value.Err(value.Generic)
	}
	cells := ResolveRange(args[0], e.sheet)
	criteria := CellValue(args[1], e.sheet).String()

	op, target := "=", criteria
	for _, candidate := range conditionOps {
		if strings.HasPrefix(criteria, candidate) {
			op, target = candidate, criteria[len(candidate):]
			break
		}
	}
	targetNum, targetIsNum := value.ParseNumber(target)
	lowerTarget := strings.ToLower(target)

	count := 0
	for _, v := range cells {
		var c int
		if n, ok := v.AsNumber(); ok && targetIsNum {
			c = compareFloat(n, targetNum)
		} else {
			c = strings.Compare(strings.ToLower(v.String()), lowerTarget)
		}
		if matches(op, c) {
			count++
		}
	}
	return value.Number(float64(count))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func matches(op string, c int) bool {
	switch op {
	case ">":
		return c > 0
	case "<":
		return c < 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	case "<>":
		return c != 0
	}
	return c == 0
}

func fnConcat(e *evaluator, args []string) value.Value {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(e.arg(a).String())
	}
	return value.Text(b.String())
}

func fnLen(e *evaluator, args []string) value.Value {
	if len(args) != 1 {
		return value.Err(value.Generic)
	}
	return value.Number(float64(utf8.RuneCountInString(e.arg(args[0]).String())))
}

func fnUpper(e *evaluator, args []string) value.Value {
	if len(args) < 1 {
		return value.Err(value.Generic)
	}
	return value.Text(cases.Upper(language.Und).String(e.arg(args[0]).String()))
}

func fnLower(e *evaluator, args []string) value.Value {
	if len(args) < 1 {
		return value.Err(value.Generic)
	}
	return value.Text(cases.Lower(language.Und).String(e.arg(args[0]).String()))
}

// fnProper lowercases the text, then capitalises every letter that starts
// a run of word characters (letters, digits, underscore).
func fnProper(e *evaluator, args []string) value.Value {
	if len(args) < 1 {
		return value.Err(value.Generic)
	}
	s := cases.Lower(language.Und).String(e.arg(args[0]).String())
	var b strings.Builder
	inWord := false
	for _, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if word && !inWord {
			r = unicode.ToUpper(r)
		}
		inWord = word
		b.WriteRune(r)
	}
	return value.Text(b.String())
}

func fnLeft(e *evaluator, args []string) value.Value {
	return substring(e, args, false)
}

func fnRight(e *evaluator, args []string) value.Value {
	return substring(e, args, true)
}

// substring takes n characters from the start of the text, or from its end
// when fromEnd is set. n must be a non-negative number.
func substring(e *evaluator, args []string, fromEnd bool) value.Value {
	if len(args) < 2 {
		return value.Err(value.Generic)
	}
	text := []rune(e.arg(args[0]).String())
	f, ok := e.arg(args[1]).AsNumber()
	if !ok || f < 0 {
		return value.Err(value.InvalidValue)
	}
	n := min(int(f), len(text))
	if fromEnd {
		return value.Text(string(text[len(text)-n:]))
	}
	return value.Text(string(text[:n]))
}

// fnXLookup supports match mode 0 (exact, case-insensitive) and -1 (exact
// or next smaller, numeric). Other modes never match.
func fnXLookup(e *evaluator, args []string) value.Value {
	if len(args) < 3 {
		return value.Err(value.NotApplicable)
	}
	needle := e.arg(args[0])
	lookup := ResolveRange(args[1], e.sheet)
	results := ResolveRange(args[2], e.sheet)
	notFound := value.Err(value.NotApplicable)
	if len(args) > 3 {
		notFound = e.arg(args[3])
	}
	mode := 0
	if len(args) > 4 {
		mode = matchMode(CellValue(args[4], e.sheet))
	}
	if len(lookup) == 0 || len(results) == 0 {
		return value.Err(value.InvalidReference)
	}

	index := -1
	switch mode {
	case 0:
		want := strings.ToLower(needle.String())
		for i, v := range lookup {
			if strings.ToLower(v.String()) == want {
				index = i
				break
			}
		}
	case -1:
		target, ok := needle.AsNumber()
		if !ok {
			return value.Err(value.InvalidValue)
		}
		bestDiff := math.Inf(1)
		for i, v := range lookup {
			cur, ok := v.AsNumber()
			if !ok {
				continue
			}
			if cur == target {
				index = i
				break
			}
			if cur < target && target-cur < bestDiff {
				bestDiff = target - cur
				index = i
			}
		}
	}

	if index >= 0 && index < len(results) {
		return results[index]
	}
	return notFound
}

// matchMode truncates the mode argument to an integer. Anything that is
// not numeric selects no mode at all.
func matchMode(v value.Value) int {
	f, ok := v.AsNumber()
	if !ok {
		return math.MinInt
	}
	return int(f)
}
