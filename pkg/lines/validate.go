package lines

import (
	"bytes"
	"unicode"
	"unicode/utf8"
)

// Default validation limits.
const (
	DefaultMaxRunes = 32
	DefaultMaxBytes = 511
)

// Rules decide which lines are words.
type Rules struct {
	// MaxRunes is the longest accepted line in characters, after trimming.
	MaxRunes int
	// MaxBytes is the longest accepted line in UTF-8 bytes.
	MaxBytes int
}

// DefaultRules returns the standard limits.
func DefaultRules() Rules {
	return Rules{MaxRunes: DefaultMaxRunes, MaxBytes: DefaultMaxBytes}
}

func (r Rules) withDefaults() Rules {
	if r.MaxRunes <= 0 {
		r.MaxRunes = DefaultMaxRunes
	}
	if r.MaxBytes <= 0 {
		r.MaxBytes = DefaultMaxBytes
	}
	return r
}

// isSpace is unicode.IsSpace plus the information separators U+001C to
// U+001F, which wordlists carried over from other tools treat as
// whitespace too.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Normalize trims surrounding whitespace from a decoded line and reports
// whether the rest is a word: non-empty, every character printable, at
// most MaxRunes characters and MaxBytes bytes. The returned slice aliases
// line.
func (r Rules) Normalize(line []byte) ([]byte, bool) {
	r = r.withDefaults()

	line = bytes.TrimFunc(line, isSpace)
	if len(line) == 0 || len(line) > r.MaxBytes {
		return nil, false
	}

	runes := 0
	for i := 0; i < len(line); {
		c, size := utf8.DecodeRune(line[i:])
		if c == utf8.RuneError && size <= 1 {
			return nil, false
		}
		if !unicode.IsPrint(c) {
			return nil, false
		}
		runes++
		if runes > r.MaxRunes {
			return nil, false
		}
		i += size
	}
	return line, true
}
