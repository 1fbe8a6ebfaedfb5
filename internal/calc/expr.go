package calc

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

var cellToken = regexp.MustCompile(`[A-Z][0-9]+`)

// evalExpression is the arithmetic and concatenation path for bodies that
// are not builtin calls. The body is uppercased, string literals included.
// References outside quotes are substituted textually, "&" becomes "+",
// the result is checked against the operator alphabet and then parsed.
func evalExpression(body string, sheet grid.Sheet) value.Value {
	src := mapUnquoted(strings.ToUpper(body), func(seg string) string {
		seg = cellToken.ReplaceAllStringFunc(seg, func(tok string) string {
			addr, ok := grid.ParseCellAddress(tok)
			if !ok {
				return tok
			}
			return literal(ResolveCell(addr, sheet))
		})
		return strings.ReplaceAll(seg, "&", "+")
	})
	if !allowedExpression(src) {
		return value.Err(value.Generic)
	}
	p := parser{input: src}
	v, err := p.parseExpr()
	if err == nil {
		p.skipSpaces()
		if p.pos < len(p.input) {
			err = value.InvalidValue
		}
	}
	if err != nil {
		if k, ok := err.(value.ErrorKind); ok && k == value.DivByZero {
			return value.Err(value.DivByZero)
		}
		return value.Err(value.InvalidValue)
	}
	if v.IsNumber() && (math.IsNaN(v.Float()) || math.IsInf(v.Float(), 0)) {
		return value.Err(value.InvalidValue)
	}
	return v
}

// literal renders a resolved cell as expression source. Text (errors
// included) is quoted and blanks read as 0.
func literal(v value.Value) string {
	switch v.Kind() {
	case value.KindEmpty:
		return "0"
	case value.KindNumber:
		if v.Float() < 0 {
			return "(" + value.FormatNumber(v.Float()) + ")"
		}
		return value.FormatNumber(v.Float())
	case value.KindBool:
		// booleans have no literal in the operator alphabet
		if v.Boolean() {
			return "(1=1)"
		}
		return "(1=0)"
	}
	return `"` + v.String() + `"`
}

// mapUnquoted applies fn to every segment of s that lies outside double
// quotes. Quoted literals are copied through untouched.
func mapUnquoted(s string, fn func(string) string) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '"')
		if i < 0 {
			b.WriteString(fn(s))
			return b.String()
		}
		b.WriteString(fn(s[:i]))
		j := strings.IndexByte(s[i+1:], '"')
		if j < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		b.WriteString(s[i : i+j+2])
		s = s[i+j+2:]
	}
}

// allowedExpression checks the characters outside string literals.
func allowedExpression(s string) bool {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if isDigit(c) || strings.IndexByte(".+-*/() <>!=", c) >= 0 {
			continue
		}
		return false
	}
	return true
}

type parser struct {
	input string
	pos   int
	depth int
}

// nest counts one level of parenthesis or sign nesting. Past MaxDepth the
// expression is rejected.
func (p *parser) nest() error {
	p.depth++
	if p.depth > MaxDepth {
		return value.InvalidValue
	}
	return nil
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) parseExpr() (value.Value, error) {
	return p.parseComparison()
}

var comparisonOps = []string{"===", "!==", "==", "!=", "<>", "<=", ">=", "<", ">", "="}

func (p *parser) parseComparison() (value.Value, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return value.Value{}, err
	}
	for {
		p.skipSpaces()
		op := ""
		for _, candidate := range comparisonOps {
			if strings.HasPrefix(p.input[p.pos:], candidate) {
				op = candidate
				break
			}
		}
		if op == "" {
			return left, nil
		}
		p.pos += len(op)
		right, err := p.parseAddSub()
		if err != nil {
			return value.Value{}, err
		}
		left = value.Bool(compareWith(op, left, right))
	}
}

func (p *parser) parseAddSub() (value.Value, error) {
	val, err := p.parseMulDiv()
	if err != nil {
		return value.Value{}, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			break
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			break
		}
		p.pos++
		right, err := p.parseMulDiv()
		if err != nil {
			return value.Value{}, err
		}
		if op == '+' && (val.IsText() || right.IsText()) {
			val = value.Text(val.String() + right.String())
			continue
		}
		x, y, err := numericOperands(val, right)
		if err != nil {
			return value.Value{}, err
		}
		if op == '+' {
			val = value.Number(x + y)
		} else {
			val = value.Number(x - y)
		}
	}
	return val, nil
}

func (p *parser) parseMulDiv() (value.Value, error) {
	val, err := p.parseFactor()
	if err != nil {
		return value.Value{}, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			break
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			break
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return value.Value{}, err
		}
		x, y, err := numericOperands(val, right)
		if err != nil {
			return value.Value{}, err
		}
		if op == '*' {
			val = value.Number(x * y)
		} else {
			if y == 0 {
				return value.Value{}, value.DivByZero
			}
			val = value.Number(x / y)
		}
	}
	return val, nil
}

func (p *parser) parseFactor() (value.Value, error) {
	p.skipSpaces()
	if p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '+' || ch == '-' {
			p.pos++
			if err := p.nest(); err != nil {
				return value.Value{}, err
			}
			v, err := p.parseFactor()
			p.depth--
			if err != nil {
				return value.Value{}, err
			}
			f, ok := operandNumber(v)
			if !ok {
				return value.Value{}, value.InvalidValue
			}
			if ch == '-' {
				f = -f
			}
			return value.Number(f), nil
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (value.Value, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return value.Value{}, value.InvalidValue
	}
	ch := p.input[p.pos]
	switch {
	case ch == '(':
		p.pos++
		if err := p.nest(); err != nil {
			return value.Value{}, err
		}
		v, err := p.parseExpr()
		p.depth--
		if err != nil {
			return value.Value{}, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return value.Value{}, value.InvalidValue
		}
		p.pos++
		return v, nil
	case ch == '"':
		end := strings.IndexByte(p.input[p.pos+1:], '"')
		if end < 0 {
			return value.Value{}, value.InvalidValue
		}
		s := p.input[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return value.Text(s), nil
	case isDigit(ch) || ch == '.':
		start := p.pos
		seenDot := false
		for p.pos < len(p.input) {
			c := p.input[p.pos]
			if c == '.' {
				if seenDot {
					break
				}
				seenDot = true
			} else if !isDigit(c) {
				break
			}
			p.pos++
		}
		f, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return value.Value{}, value.InvalidValue
		}
		return value.Number(f), nil
	}
	return value.Value{}, value.InvalidValue
}

// operandNumber reads an arithmetic operand; booleans count as 1 and 0.
func operandNumber(v value.Value) (float64, bool) {
	if v.Kind() == value.KindBool {
		if v.Boolean() {
			return 1, true
		}
		return 0, true
	}
	return v.AsNumber()
}

func numericOperands(a, b value.Value) (float64, float64, error) {
	x, ok1 := operandNumber(a)
	y, ok2 := operandNumber(b)
	if !ok1 || !ok2 {
		return 0, 0, value.InvalidValue
	}
	return x, y, nil
}

// compareWith applies a comparison operator using value ordering.
func compareWith(op string, a, b value.Value) bool {
	c := value.Compare(a, b)
	switch op {
	case ">":
		return c > 0
	case "<":
		return c < 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	case "<>", "!=", "!==":
		return c != 0
	}
	return c == 0
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
