// Package obfuscate replaces human-readable characters with random
// characters drawn from configured Unicode ranges.
//
// A Codec is built once from an ordered list of Mapping values and is then
// read-only, so a single Codec can be shared by every request handler.
// Random draws come from math/rand/v2, whose top-level source is safe for
// concurrent use and keeps independent state per goroutine.
package obfuscate

import (
	"fmt"
	"math/rand/v2"
	"unicode/utf8"
)

// Placeholder is returned when a random draw lands on a code point that is
// not a valid Unicode scalar value (for example a surrogate).
const Placeholder = '?'

// Mapping maps every character of the inclusive source range onto a random
// character of the inclusive target range.
type Mapping struct {
	SourceStart rune
	SourceEnd   rune
	TargetStart rune
	TargetEnd   rune
	Comment     string
}

// Contains reports whether r falls inside the source range.
func (m Mapping) Contains(r rune) bool {
	return r >= m.SourceStart && r <= m.SourceEnd
}

// Validate checks that both ranges are ordered and inside the Unicode space.
func (m Mapping) Validate() error {
	if m.SourceStart > m.SourceEnd {
		return fmt.Errorf("source range %U-%U is reversed", m.SourceStart, m.SourceEnd)
	}
	if m.TargetStart > m.TargetEnd {
		return fmt.Errorf("target range %U-%U is reversed", m.TargetStart, m.TargetEnd)
	}
	for _, r := range []rune{m.SourceStart, m.SourceEnd, m.TargetStart, m.TargetEnd} {
		if r < 0 || r > utf8.MaxRune {
			return fmt.Errorf("code point %U is outside the Unicode range", r)
		}
	}
	return nil
}

// Codec maps single characters according to an ordered mapping table.
// The first mapping whose source range contains the character wins.
type Codec struct {
	mappings []Mapping

	// intN returns a uniform value in [0, n). Tests replace it.
	intN func(n int64) int64
}

// NewCodec creates a Codec over a copy of mappings. An empty table yields
// the identity codec.
func NewCodec(mappings []Mapping) *Codec {
	return &Codec{
		mappings: append([]Mapping(nil), mappings...),
		intN:     rand.Int64N,
	}
}

// Mappings returns a copy of the mapping table.
func (c *Codec) Mappings() []Mapping {
	return append([]Mapping(nil), c.mappings...)
}

// Char returns a random replacement for r, or r itself when no mapping
// covers it.
func (c *Codec) Char(r rune) rune {
	for _, m := range c.mappings {
		if m.Contains(r) {
			return c.draw(m.TargetStart, m.TargetEnd)
		}
	}
	return r
}

func (c *Codec) draw(lo, hi rune) rune {
	span := int64(hi) - int64(lo) + 1
	if span <= 0 {
		return Placeholder
	}
	r := rune(int64(lo) + c.intN(span))
	if !utf8.ValidRune(r) {
		return Placeholder
	}
	return r
}
