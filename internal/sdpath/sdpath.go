// Package sdpath builds and sanitizes storage paths from untrusted
// client input. Filenames arrive percent-encoded in query strings and
// must never be allowed to escape the storage root.
package sdpath

import (
	"errors"
	"strings"
)

// MaxPathLen is the longest absolute path the storage layer accepts.
// FAT filesystems on SD cards reject anything longer.
const MaxPathLen = 256

// ErrTooLong is returned by Decode when the decoded name does not fit
// the caller's limit. The truncated prefix is still returned so the
// caller can log it.
var ErrTooLong = errors.New("sdpath: decoded name too long")

// Build joins root and a client-supplied filename into an absolute
// path. Every ".." in the joined path is replaced with "__" so the
// result cannot climb out of root, and the path is truncated to
// MaxPathLen. An empty name maps to "unknown_filename" so a file is
// still created somewhere visible rather than failing silently.
func Build(root, name string) string {
	if name == "" {
		name = "unknown_filename"
	}
	p := root + "/" + name
	p = strings.ReplaceAll(p, "..", "__")
	if len(p) > MaxPathLen {
		p = p[:MaxPathLen]
	}
	return p
}

// Decode reverses percent-encoding in src, treating '+' as space.
// Invalid escapes do not abort the decode: a '%' not followed by two
// hex digits emits '_' and consumes only the characters actually
// present, so a hostile query string still yields a usable (if
// mangled) filename. Decode fails only when the result would exceed
// max bytes, returning the truncated prefix with ErrTooLong.
func Decode(src string, max int) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(src) {
		switch c := src[i]; c {
		case '%':
			if i+2 < len(src) && isHex(src[i+1]) && isHex(src[i+2]) {
				b.WriteByte(unhex(src[i+1])<<4 | unhex(src[i+2]))
				i += 3
			} else {
				b.WriteByte('_')
				switch {
				case i+2 < len(src):
					i += 3
				case i+1 < len(src):
					i += 2
				default:
					i++
				}
			}
		case '+':
			b.WriteByte(' ')
			i++
		default:
			b.WriteByte(c)
			i++
		}
		if b.Len() >= max && i < len(src) {
			return b.String()[:max], ErrTooLong
		}
	}
	return b.String(), nil
}

// Encode percent-encodes the characters that break query strings and
// HTML attributes when a filename is embedded in a link. Everything
// else passes through untouched.
func Encode(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		switch c := name[i]; c {
		case ' ':
			b.WriteString("%20")
		case '(':
			b.WriteString("%28")
		case ')':
			b.WriteString("%29")
		case '&':
			b.WriteString("%26")
		case '=':
			b.WriteString("%3D")
		case '?':
			b.WriteString("%3F")
		case '/':
			b.WriteString("%2F")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
