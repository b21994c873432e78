package cypher

import "strings"

// RewriteElementID replaces deprecated id(x) calls with elementId(x),
// including calls whose argument is itself an expression such as
// id(head(nodes(p))). Text inside string literals and backquoted names is
// left alone, as are calls that are part of a longer name (uuid(x), n.id(x),
// $id(x)) and calls without a closing parenthesis. Applying it twice yields
// the same text as applying it once.
func RewriteElementID(query string) string {
	var b strings.Builder
	b.Grow(len(query))

	for i := 0; i < len(query); {
		c := query[i]
		if isQuote(c) {
			end := skipQuoted(query, i)
			b.WriteString(query[i:end])
			i = end
			continue
		}
		if strings.HasPrefix(query[i:], "id(") &&
			(i == 0 || !partOfName(query[i-1])) &&
			closingParen(query, i+2) >= 0 {
			b.WriteString("elementId(")
			i += len("id(")
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// closingParen returns the index of the parenthesis closing the one at open,
// or -1 when it is unbalanced.
func closingParen(query string, open int) int {
	depth := 0
	for i := open; i < len(query); {
		switch c := query[i]; {
		case isQuote(c):
			i = skipQuoted(query, i)
			continue
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// skipQuoted returns the index just past the literal opened at start. An
// unterminated literal runs to the end of the query.
func skipQuoted(query string, start int) int {
	quote := query[start]
	for i := start + 1; i < len(query); i++ {
		switch query[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			return i + 1
		}
	}
	return len(query)
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

func partOfName(c byte) bool {
	return c == '_' || c == '.' || c == '$' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
