// Package partialjson parses JSON objects that may still be streaming in.
package partialjson

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Parse returns the best-effort object decoded from buf. It never fails: empty,
// unrecoverable or non-object input yields an empty map. The result depends only on
// the full buffer, so callers reparse the whole accumulation after every fragment.
func Parse(buf string) map[string]any {
	if strings.TrimSpace(buf) == "" {
		return map[string]any{}
	}
	if obj, ok := decodeObject(buf); ok {
		return obj
	}
	if obj, ok := decodeObject(repair(buf)); ok {
		return obj
	}
	return map[string]any{}
}

func decodeObject(s string) (map[string]any, bool) {
	if !gjson.Valid(s) {
		return nil, false
	}
	res := gjson.Parse(s)
	if !res.IsObject() {
		return nil, false
	}
	obj, ok := res.Value().(map[string]any)
	return obj, ok
}

// repair completes a truncated document: it terminates an open string, drops a
// dangling key, separator or partial scalar, and closes every open container.
func repair(s string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := s
	if inString {
		if escaped {
			out = out[:len(out)-1]
		} else if i := strings.LastIndex(out, `\u`); i >= 0 && len(out)-i < 6 && isEscape(out, i) {
			out = out[:i]
		}
		out += `"`
	}

	var top byte
	if len(stack) > 0 {
		top = stack[len(stack)-1]
	}
	out = trimDangling(out, top)

	var b strings.Builder
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func trimDangling(s string, top byte) string {
	for {
		s = strings.TrimRight(s, " \t\r\n")
		if s == "" {
			return s
		}
		switch c := s[len(s)-1]; {
		case c == ',':
			s = s[:len(s)-1]
		case c == ':':
			s = dropKey(s[:len(s)-1])
		case c == '"':
			start := stringStart(s)
			if start < 0 {
				return s
			}
			if top == '{' && isKeyPosition(s[:start]) {
				s = s[:start]
				continue
			}
			return s
		case isScalarByte(c):
			start := len(s) - 1
			for start > 0 && isScalarByte(s[start-1]) {
				start--
			}
			if gjson.Valid(s[start:]) {
				return s
			}
			s = s[:start]
		default:
			return s
		}
	}
}

// dropKey removes the object key that ends s, along with trailing whitespace.
func dropKey(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(s, `"`) {
		if start := stringStart(s); start >= 0 {
			return s[:start]
		}
	}
	return s
}

// stringStart returns the offset of the opening quote of the string literal ending s.
func stringStart(s string) int {
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] == '"' && !isEscaped(s, i) {
			return i
		}
	}
	return -1
}

func isKeyPosition(prefix string) bool {
	prefix = strings.TrimRight(prefix, " \t\r\n")
	if prefix == "" {
		return false
	}
	last := prefix[len(prefix)-1]
	return last == '{' || last == ','
}

// isEscaped reports whether s[i] is preceded by an odd run of backslashes.
func isEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// isEscape reports whether the backslash at s[i] starts an escape sequence.
func isEscape(s string, i int) bool {
	return !isEscaped(s, i)
}

func isScalarByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '-', c == '+':
		return true
	}
	return false
}
