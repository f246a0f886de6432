package kvp

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const escapeChar = '\\'

// unescapes maps the character following a backslash to its replacement.
var unescapes = [256]byte{
	't': '\t',
	'n': '\n',
	'r': '\r',
	'v': '\v',
	'f': '\f',
	'a': '\a',
	'"': '"',
}

// escapes is the inverse of unescapes.
var escapes = [256]byte{
	'\t': 't',
	'\n': 'n',
	'\r': 'r',
	'\v': 'v',
	'\f': 'f',
	'\a': 'a',
	'"':  '"',
}

// Unescape parses C-style escapes in s and returns the result as a new string.
// When dequote is true a leading double quote is removed, and so is a final
// unescaped double quote if the string was quoted. A lone backslash at the end
// of s is dropped.
func Unescape(s string, dequote bool) string {
	if len(s) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	i := 0
	quoted := false
	if dequote && s[0] == '"' {
		quoted = true
		i++
	}

	for ; i < len(s); i++ {
		c := s[i]
		if c != escapeChar {
			if !(quoted && i == len(s)-1 && c == '"') {
				b.WriteByte(c)
			}
			continue
		}

		if i == len(s)-1 {
			break
		}

		i++
		c = s[i]
		switch {
		case c == 'x':
			// TODO: decode up to two hex digits once the server starts emitting them.
			log.Debug().Str("input", s).Int("offset", i-1).Msg("kvp: hexadecimal escape not supported")
		case c == escapeChar:
			b.WriteByte(escapeChar)
		case unescapes[c] != 0:
			b.WriteByte(unescapes[c])
		default:
			b.WriteByte(escapeChar)
			b.WriteByte(c)
		}
	}

	return b.String()
}

// Escape reverses Unescape for the recognized escapes. It does not add quotes.
func Escape(s string) string {
	if !needsEscape(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == escapeChar:
			b.WriteString(`\\`)
		case escapes[c] != 0:
			b.WriteByte(escapeChar)
			b.WriteByte(escapes[c])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Quote escapes s and wraps it in double quotes.
func Quote(s string) string {
	return `"` + Escape(s) + `"`
}

func needsEscape(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == escapeChar || escapes[s[i]] != 0 {
			return true
		}
	}
	return false
}
