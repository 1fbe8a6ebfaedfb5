// Package value holds the result type every formula evaluation step returns.
package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant stored in a Value.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindBool
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Value is a tagged union: Number, Text, Boolean, Empty or Error.
// The zero Value is Empty.
type Value struct {
	kind Kind
	num  float64
	text string
	b    bool
	err  ErrorKind
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Text(s string) Value    { return Value{kind: KindText, text: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Empty() Value           { return Value{} }
func Err(k ErrorKind) Value  { return Value{kind: KindError, err: k} }

// FromInput classifies text typed into a non-formula cell.
// Blank input is Empty, numeric input is a Number, anything else is Text.
func FromInput(raw string) Value {
	if raw == "" {
		return Empty()
	}
	if f, ok := ParseNumber(raw); ok {
		return Number(f)
	}
	return Text(raw)
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsEmpty() bool   { return v.kind == KindEmpty }
func (v Value) IsError() bool   { return v.kind == KindError }
func (v Value) IsText() bool    { return v.kind == KindText }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) Float() float64  { return v.num }
func (v Value) Boolean() bool   { return v.b }
func (v Value) RawText() string { return v.text }

// ErrorKind returns the error kind and true if v is an Error.
func (v Value) ErrorKind() (ErrorKind, bool) {
	if v.kind != KindError {
		return 0, false
	}
	return v.err, true
}

// String renders v the way a cell displays it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return v.err.String()
	}
	return ""
}

// AsNumber coerces v by parsing its textual form as a float.
// Booleans, Empty and errors are not numeric.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		return ParseNumber(v.text)
	}
	return 0, false
}

// Truthy reports how v reads as an IF condition.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindText:
		return v.text != ""
	case KindBool:
		return v.b
	case KindError:
		return true
	}
	return false
}

// ParseNumber is a strict float parse: surrounding spaces are allowed,
// trailing garbage, hex floats, NaN and infinities are not.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xXnNiI_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseBool accepts TRUE and FALSE in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToUpper(s) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	}
	return false, false
}

// FormatNumber renders f in its shortest round-trip decimal form.
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
