package pattern

import "strings"

// globToRegex compiles a shell-style glob (`*`, `?`, `[...]`) to an
// equivalent regex source string, per spec.md §4.3: "`*`→`.*`, `?`→`.`,
// `[…]` preserved, everything else quoted".
func globToRegex(g string) string {
	var b strings.Builder
	b.WriteString("(?s)") // `.` matches newlines too; terminal output is multi-line
	i := 0
	for i < len(g) {
		c := g[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteString(".")
			i++
		case '[':
			end := strings.IndexByte(g[i:], ']')
			if end < 0 {
				b.WriteString(quoteRune(c))
				i++
				continue
			}
			b.WriteString(g[i : i+end+1])
			i += end + 1
		default:
			b.WriteString(quoteRune(c))
			i++
		}
	}
	return b.String()
}

func quoteRune(c byte) string {
	switch c {
	case '.', '+', '(', ')', '|', '^', '$', '\\', '{', '}':
		return "\\" + string(c)
	default:
		return string(c)
	}
}
