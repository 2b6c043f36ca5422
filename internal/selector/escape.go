// internal/selector/escape.go
package selector

import (
	"strconv"
	"strings"
)

// Escaper makes an identifier safe to embed in a selector.
type Escaper func(ident string) string

// Escape serializes an identifier the way CSS.escape() does in browsers.
func Escape(ident string) string {
	var b strings.Builder
	b.Grow(len(ident))

	runes := []rune(ident)
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune(0xFFFD)
		case (r >= 0x01 && r <= 0x1f) || r == 0x7f,
			i == 0 && r >= '0' && r <= '9',
			i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			b.WriteByte('\\')
			b.WriteString(strconv.FormatInt(int64(r), 16))
			b.WriteByte(' ')
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
