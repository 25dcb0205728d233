package fsx

import (
	"fmt"
	"strconv"
	"strings"
)

// reservedBytes are the bytes sapic has chosen to escape in a physical path
// segment: the characters Windows, and several other filesystems, forbid in
// a filename, plus '%' itself (so the escape sequence stays unambiguous).
// This is the one sanitization table; changing it is a format break and
// must never happen without a migration.
var reservedBytes = map[byte]bool{
	'<': true, '>': true, ':': true, '"': true,
	'/': true, '\\': true, '|': true, '?': true, '*': true, '%': true,
}

func isControl(b byte) bool { return b < 0x20 }

// SanitizeSegment maps one virtual path segment (may contain any Unicode)
// to a physical segment valid on every supported filesystem: a deterministic
// bijection, percent-encoding reserved/control bytes and any trailing '.' or
// ' ' (both illegal as the last character of a Windows filename).
func SanitizeSegment(seg string) string {
	var b strings.Builder
	raw := []byte(seg)
	for _, c := range raw {
		if isControl(c) || reservedBytes[c] {
			fmt.Fprintf(&b, "%%%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	out := b.String()
	if n := len(out); n > 0 && (out[n-1] == '.' || out[n-1] == ' ') {
		out = fmt.Sprintf("%s%%%02X", out[:n-1], out[n-1])
	}
	return out
}

// DesanitizeSegment reverses SanitizeSegment. It is the exact inverse of
// the escaping table above: %-decode runs in place, other bytes pass
// through unchanged.
func DesanitizeSegment(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); {
		if seg[i] == '%' && i+2 < len(seg) {
			if v, err := strconv.ParseUint(seg[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(seg[i])
		i++
	}
	return b.String()
}
