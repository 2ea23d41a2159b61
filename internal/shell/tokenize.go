package shell

import "strings"

// Tokenize splits a command line into arguments. Space and tab separate
// arguments outside quotes. A double quote starts a quoted argument and the
// next one ends it; the quoted argument is kept even when empty. An
// unterminated quote runs to the end of the line.
func Tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	quoted := false

	for _, r := range line {
		switch {
		case r == '"':
			if quoted {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			quoted = !quoted
		case (r == ' ' || r == '\t') && !quoted:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}
