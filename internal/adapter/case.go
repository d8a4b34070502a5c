package adapter

import "strings"

// snakeToCamel converts a snake_case column name to the camelCase key the
// local store uses. Underscores are dropped, so the conversion is lossy for
// names with trailing or doubled underscores; compile rejects those by
// checking the round trip against camelToSnake.
func snakeToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := false
	for _, r := range s {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteString(strings.ToUpper(string(r)))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// camelToSnake is the inverse of snakeToCamel for names produced by it.
func camelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteString(strings.ToLower(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
