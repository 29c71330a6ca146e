package diffutil

import (
	"fmt"
	"strings"
)

// NeedsQuote reports whether a path must be quoted inside a diff header.
// Whitespace would break the header's field separation, and glob or quote
// characters would corrupt a later patch-apply, so all of them force
// quoting. Bytes outside printable ASCII are quoted the way git does.
func NeedsQuote(path string) bool {
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			return true
		case c == '"' || c == '\\':
			return true
		case c == '*' || c == '?' || c == '[' || c == ']':
			return true
		case c < 0x20 || c > 0x7e:
			return true
		}
	}
	return false
}

// QuotePath escapes a path for a diff header using C-style quoting as
// understood by git-apply: backslash escapes for quote, backslash, tab and
// newline, and three-digit octal for every other byte outside printable
// ASCII. Paths that need no quoting are returned unchanged.
func QuotePath(path string) string {
	if !NeedsQuote(path) {
		return path
	}

	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\n':
			b.WriteString(`\n`)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(&b, `\%03o`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// UnquotePath reverses QuotePath. Unquoted input is returned as-is; quoted
// input is C-style unescaped. It fails on truncated or unknown escapes.
func UnquotePath(field string) (string, error) {
	if len(field) < 2 || field[0] != '"' {
		return field, nil
	}
	if field[len(field)-1] != '"' {
		return "", fmt.Errorf("unterminated quoted path: %s", field)
	}

	inner := field[1 : len(field)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			return "", fmt.Errorf("dangling escape in quoted path: %s", field)
		}
		switch e := inner[i]; e {
		case '"', '\\':
			b.WriteByte(e)
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case '0', '1', '2', '3':
			if i+2 >= len(inner) {
				return "", fmt.Errorf("truncated octal escape in quoted path: %s", field)
			}
			var v byte
			for j := 0; j < 3; j++ {
				d := inner[i+j]
				if d < '0' || d > '7' {
					return "", fmt.Errorf("invalid octal escape in quoted path: %s", field)
				}
				v = v<<3 | (d - '0')
			}
			b.WriteByte(v)
			i += 2
		default:
			return "", fmt.Errorf("unknown escape \\%c in quoted path: %s", e, field)
		}
	}
	return b.String(), nil
}
