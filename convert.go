package logicclient

import (
	"fmt"
	"strconv"

	"github.com/nitrogenlogic/logicclient/kvp"
)

// ParamType is a logic system parameter type name.
type ParamType string

const (
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeString ParamType = "string"
	TypeData   ParamType = "data"
)

// ConvertValue converts a raw protocol value to the Go value for t: int64 for
// int, float64 for float, string for string. Numbers are parsed leniently from
// their leading numeric prefix and default to zero. Data values are never
// carried inline and always fail.
func ConvertValue(raw string, t ParamType) (any, error) {
	switch t {
	case TypeInt:
		return parseIntPrefix(raw), nil
	case TypeFloat:
		return parseFloatPrefix(raw), nil
	case TypeString:
		return kvp.Unescape(raw, true), nil
	default:
		return nil, &UnsupportedTypeError{Type: t}
	}
}

// FormatValue renders a converted value the way the server prints it:
// strings quoted and escaped, numbers bare.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return kvp.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '.', 'e', 'I', 'N':
				return s
			}
		}
		return s + ".0"
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// parseIntPrefix parses an optional sign and the digits that follow,
// stopping at the first other character. Leading whitespace is skipped.
func parseIntPrefix(s string) int64 {
	i := skipSpace(s, 0)
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digits {
		return 0
	}

	// Out of range values saturate.
	n, _ := strconv.ParseInt(s[start:i], 10, 64)
	return n
}

// parseFloatPrefix parses the longest leading decimal floating point literal.
func parseFloatPrefix(s string) float64 {
	i := skipSpace(s, 0)
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	mantissa := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		mantissa++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if frac > 0 {
			i = j
			mantissa += frac
		}
	}
	if mantissa == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > exp {
			i = j
		}
	}

	f, _ := strconv.ParseFloat(s[start:i], 64)
	return f
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == '\v' || s[i] == '\f') {
		i++
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
