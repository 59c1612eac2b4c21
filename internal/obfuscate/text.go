package obfuscate

import (
	"strings"
	"unicode"
)

// String runs every character of s through the codec. The result has the
// same number of characters as s and character i of the result is the
// replacement of character i of s.
func (c *Codec) String(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(c.Char(r))
	}
	return b.String()
}

// StringPreservingHead works like String but lets the first remaining
// non-whitespace characters through unchanged. Whitespace never consumes
// the budget and passes through untouched while budget is left. Once the
// budget is spent every following character, whitespace included, goes
// through the codec.
//
// The updated budget is returned so it can be carried over to the next text
// run in document order.
func (c *Codec) StringPreservingHead(s string, remaining int) (string, int) {
	if remaining <= 0 {
		return c.String(s), 0
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case remaining > 0 && !unicode.IsSpace(r):
			remaining--
			b.WriteRune(r)
		case remaining > 0:
			b.WriteRune(r)
		default:
			b.WriteRune(c.Char(r))
		}
	}
	return b.String(), remaining
}
