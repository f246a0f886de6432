// Package kvp implements the key="value" line encoding used by the logic
// system protocol for structured response lines (lstk exports, inf graph info,
// SUB notifications).
//
// # Grammar
//
// A line is a whitespace-separated sequence of key=value tokens:
//
//	objid=1 index=0 type="int" obj_name="Oscillator \"A\"" value=5
//
// A key is either a double-quoted string with C-style escapes or a bare run of
// characters other than whitespace and '='. A value is either a double-quoted
// string or a bare run of non-whitespace characters. A quoted value that is
// never closed runs to the end of the line.
//
// Tokens that do not form a key=value pair are skipped. Parsing never fails.
//
// # Escapes
//
// Unescape recognizes \t \n \r \v \f \a \" and \\. Any other escape passes
// through as the two-character sequence. Hexadecimal escapes (\xHH) are not
// implemented: the \x is dropped and a debug message is logged through the
// global zerolog logger.
//
// # Duplicate keys
//
// A key repeated within one line keeps the position of its first occurrence
// and the value of its last.
package kvp
