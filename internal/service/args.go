package service

import (
	"fmt"
	"strings"
	"unicode"
)

// splitArgs splits a command argument string into tokens, honoring single and
// double quotes so keywords like "3d printer" stay one token.
func splitArgs(s string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inToken := false

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				args = append(args, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unclosed quote")
	}
	if inToken {
		args = append(args, current.String())
	}
	return args, nil
}

// parseBool reads true/false or yes/no, the forms used in command arguments.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true, nil
	case "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected true/false or yes/no, got %q", s)
	}
}
