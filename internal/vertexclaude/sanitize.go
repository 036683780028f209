package vertexclaude

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// sanitizeSurrogates replaces every unpaired UTF-16 surrogate with U+FFFD.
//
// Go strings cannot hold surrogate code units as runes, but text decoded from
// WTF-8/CESU-8 sources carries them as three-byte ED A0..BF sequences. A high/low
// pair is recombined into its supplementary rune; any other surrogate becomes
// utf8.RuneError. All other bytes pass through untouched.
func sanitizeSurrogates(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if r1, ok := surrogateAt(s, i); ok {
			if r1 < 0xDC00 {
				if r2, ok := surrogateAt(s, i+3); ok && r2 >= 0xDC00 {
					b.WriteRune(utf16.DecodeRune(r1, r2))
					i += 6
					continue
				}
			}
			b.WriteRune(utf8.RuneError)
			i += 3
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// surrogateAt decodes a surrogate code unit encoded as three bytes at s[i].
func surrogateAt(s string, i int) (rune, bool) {
	if i+2 >= len(s) || s[i] != 0xED || s[i+1]&0xE0 != 0xA0 || s[i+2]&0xC0 != 0x80 {
		return 0, false
	}
	return 0xD000 | rune(s[i+1]&0x3F)<<6 | rune(s[i+2]&0x3F), true
}
