package calc

import "strings"

// SplitArguments splits s on top-level commas. Commas inside double quotes
// or nested parentheses do not split, and every segment is trimmed.
//
//	SplitArguments(`"a,b", SUM(1,2)`) => [`"a,b"` `SUM(1,2)`]
func SplitArguments(s string) []string {
	var (
		args     []string
		current  strings.Builder
		inQuotes bool
		depth    int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == '(' && !inQuotes:
			depth++
		case c == ')' && !inQuotes:
			depth--
		}
		if c == ',' && !inQuotes && depth == 0 {
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteByte(c)
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}
