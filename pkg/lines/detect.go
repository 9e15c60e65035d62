package lines

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used whenever detection has no usable answer.
const DefaultEncoding = "utf-8"

// MinConfidence is the chardet confidence (0-100) below which a guess is
// ignored in favor of DefaultEncoding.
const MinConfidence = 30

// Names chardet reports that neither index resolves.
var charsetAliases = map[string]string{
	"gb-18030":   "gb18030",
	"ibm420_ltr": "ibm420",
	"ibm420_rtl": "ibm420",
	"ibm424_ltr": "ibm424",
	"ibm424_rtl": "ibm424",
}

// DetectEncoding guesses the text encoding of sample and returns its
// name. An empty sample, or one without NUL bytes that is valid UTF-8
// apart from a rune cut off at the end, is UTF-8. Otherwise the best
// chardet guess is used if it is confident enough and resolvable to a
// decoder.
func DetectEncoding(sample []byte) string {
	if len(sample) == 0 {
		return DefaultEncoding
	}
	if bytes.IndexByte(sample, 0) < 0 && validUTF8Prefix(sample) {
		return DefaultEncoding
	}

	best, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || best == nil || best.Confidence < MinConfidence {
		return DefaultEncoding
	}
	name := strings.ToLower(best.Charset)
	if _, ok := lookup(name); !ok {
		return DefaultEncoding
	}
	return name
}

// validUTF8Prefix reports whether b is valid UTF-8, ignoring an
// incomplete rune in its last three bytes.
func validUTF8Prefix(b []byte) bool {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax+1; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				b = b[:i]
			}
			break
		}
	}
	return utf8.Valid(b)
}

// Decoder returns a decoder for the named encoding, falling back to
// UTF-8. The decoder replaces invalid input with U+FFFD and honors a
// leading byte order mark.
func Decoder(name string) *encoding.Decoder {
	enc, ok := lookup(name)
	if !ok {
		enc = unicode.UTF8
	}
	return &encoding.Decoder{Transformer: unicode.BOMOverride(enc.NewDecoder())}
}

func lookup(name string) (encoding.Encoding, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		return enc, true
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, true
	}
	return nil, false
}
