package kvp

import (
	"strings"
	"testing"
)

func FuzzQuoteRoundTrip(f *testing.F) {
	f.Add("")
	f.Add("plain")
	f.Add("tab\tand\nnewline")
	f.Add(`quote " inside`)
	f.Add(`back\slash`)
	f.Add(`\x41`)

	f.Fuzz(func(t *testing.T, s string) {
		if got := Unescape(Quote(s), true); got != s {
			t.Fatalf("Unescape(Quote(%q)) = %q", s, got)
		}
	})
}

func FuzzParseLine(f *testing.F) {
	f.Add(`objid=1 index=0 type=int value=5 obj_name="osc 1"`)
	f.Add(`"k"="v" broken= ="x" a="unterminated`)
	f.Add(`\\\"=\"`)

	f.Fuzz(func(t *testing.T, line string) {
		pairs := ParseLine(line)

		seen := make(map[string]bool, len(pairs))
		for _, p := range pairs {
			if seen[p.Key] {
				t.Fatalf("duplicate key %q in %v", p.Key, pairs)
			}
			seen[p.Key] = true
		}

		// Keys and values without whitespace or quotes survive a format/parse cycle.
		for _, p := range pairs {
			if strings.ContainsAny(p.Key+p.Value, " \t\r\n\v\f\"\\=") {
				return
			}
		}
		if again := ParseLine(pairs.String()); len(again) != len(pairs) {
			t.Fatalf("reparse of %q gave %d pairs, want %d", pairs.String(), len(again), len(pairs))
		}
	})
}
