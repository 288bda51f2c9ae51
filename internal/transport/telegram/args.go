package telegram

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// splitArgs splits a command line into fields, honoring single and double
// quotes so match patterns containing spaces survive intact:
//
//	/watch moujaatumare "#mildom live"  ->  [/watch moujaatumare #mildom live]
func splitArgs(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inField := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inField = true
		case unicode.IsSpace(r):
			if inField {
				args = append(args, current.String())
				current.Reset()
				inField = false
			}
		default:
			current.WriteRune(r)
			inField = true
		}
	}

	if quote != 0 {
		return nil, errUnterminatedQuote
	}
	if inField {
		args = append(args, current.String())
	}

	return args, nil
}
