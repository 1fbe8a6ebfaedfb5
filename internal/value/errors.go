package value

// ErrorKind is one of the six spreadsheet error codes.
type ErrorKind uint8

const (
	DivByZero ErrorKind = iota + 1
	NotApplicable
	InvalidValue
	InvalidReference
	Generic
	UnknownName
)

var errorLiterals = map[ErrorKind]string{
	DivByZero:        "#DIV/0!",
	NotApplicable:    "#N/A",
	InvalidValue:     "#VALUE!",
	InvalidReference: "#REF!",
	Generic:          "#ERROR",
	UnknownName:      "#NAME?",
}

// String returns the literal shown in a cell, e.g. "#DIV/0!".
func (k ErrorKind) String() string {
	if s, ok := errorLiterals[k]; ok {
		return s
	}
	return "#ERROR"
}

// Error lets an ErrorKind travel as a Go error inside the engine.
func (k ErrorKind) Error() string { return k.String() }

// ParseErrorLiteral maps "#N/A" and friends back to their kind.
func ParseErrorLiteral(s string) (ErrorKind, bool) {
	for k, lit := range errorLiterals {
		if lit == s {
			return k, true
		}
	}
	return 0, false
}
