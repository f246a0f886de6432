package kvp

import "strings"

// Pair is one key=value token with escapes already decoded.
type Pair struct {
	Key   string
	Value string
}

// Pairs is the ordered result of parsing one line.
type Pairs []Pair

// Get returns the value stored for key.
func (p Pairs) Get(key string) (string, bool) {
	for _, pair := range p {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return "", false
}

// Value returns the value stored for key, or an empty string.
func (p Pairs) Value(key string) string {
	v, _ := p.Get(key)
	return v
}

// Has reports whether key is present.
func (p Pairs) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Keys returns the keys in line order.
func (p Pairs) Keys() []string {
	keys := make([]string, len(p))
	for i, pair := range p {
		keys[i] = pair.Key
	}
	return keys
}

// Map copies the pairs into a map.
func (p Pairs) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, pair := range p {
		m[pair.Key] = pair.Value
	}
	return m
}

// String formats the pairs back into a line, quoting every key and value.
func (p Pairs) String() string {
	var b strings.Builder
	for i, pair := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Quote(pair.Key))
		b.WriteByte('=')
		b.WriteString(Quote(pair.Value))
	}
	return b.String()
}

func (p *Pairs) set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Pair{Key: key, Value: value})
}

// ParseLine extracts every key=value pair from line. Keys and values are
// dequoted and unescaped. Malformed tokens contribute nothing.
func ParseLine(line string) Pairs {
	var pairs Pairs

	i := 0
	for i < len(line) {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			break
		}

		start := i
		key, value, end, ok := scanPair(line, start)
		if ok {
			pairs.set(Unescape(key, true), Unescape(value, true))
			i = end
		} else {
			i = start + 1
		}

		// A new token only begins after whitespace.
		for i < len(line) && !isSpace(line[i]) {
			i++
		}
	}

	return pairs
}

// scanPair reads one key=value token starting at i and returns the raw key
// and value text along with the offset just past the value.
func scanPair(line string, i int) (key, value string, end int, ok bool) {
	keyEnd, ok := scanKey(line, i)
	if !ok || keyEnd >= len(line) || line[keyEnd] != '=' {
		return "", "", 0, false
	}

	valueStart := keyEnd + 1
	valueEnd := scanValue(line, valueStart)
	if valueEnd == valueStart {
		return "", "", 0, false
	}

	return line[i:keyEnd], line[valueStart:valueEnd], valueEnd, true
}

func scanKey(line string, i int) (int, bool) {
	if line[i] == '"' {
		j, closed := scanQuoted(line, i)
		return j, closed
	}

	j := i
	for j < len(line) && !isBreak(line[j]) && line[j] != '=' {
		j++
	}
	return j, j > i
}

func scanValue(line string, i int) int {
	if i >= len(line) {
		return i
	}
	if line[i] == '"' {
		// An unterminated quoted value runs to the end of the line.
		j, _ := scanQuoted(line, i)
		return j
	}

	j := i
	for j < len(line) && !isBreak(line[j]) {
		j++
	}
	return j
}

// scanQuoted returns the offset just past the closing quote of the quoted
// string starting at i, and whether a closing quote was found.
func scanQuoted(line string, i int) (int, bool) {
	j := i + 1
	for j < len(line) {
		switch line[j] {
		case '\\':
			j += 2
		case '"':
			return j + 1, true
		default:
			j++
		}
	}
	return len(line), false
}

// isSpace reports whether c may precede a pair.
func isSpace(c byte) bool {
	return isBreak(c) || c == '\v' || c == '\f'
}

// isBreak reports whether c ends a bare key or value.
func isBreak(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}
