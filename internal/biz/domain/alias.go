package domain

import (
	"strings"
	"unicode"
)

// Alias rewrites a command name into another command line. Aliases are kept in
// insertion order; the first alias whose From matches the leading token wins.
type Alias struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// splitCommand separates a command line into its leading token, the separator
// rune that ended it, and the remaining argument text.
func splitCommand(text string) (name, sep, args string) {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if unicode.IsSpace(r) {
			return text[:i], string(r), text[i+len(string(r)):]
		}
	}
	return text, "", ""
}

// ExpandAliases rewrites a prefix-stripped command line through repeated
// whole-command alias substitution and returns the final command name and
// argument text.
//
// Each substitution records the applied alias name in a visited set; applying
// an alias whose name was already visited returns an *AliasCycleError naming
// the chain. Expansion therefore always terminates in at most one step per
// distinct alias name.
func ExpandAliases(text string, aliases []Alias) (name, args string, err error) {
	visited := make(map[string]bool)
	var chain []string
	for {
		name, sep, args := splitCommand(text)
		substituted := false
		for _, alias := range aliases {
			if alias.From == name {
				if visited[alias.From] {
					return "", "", &AliasCycleError{Chain: append(chain, alias.From)}
				}
				visited[alias.From] = true
				chain = append(chain, alias.From)
				text = alias.To + sep + args
				substituted = true
				break
			}
		}
		if !substituted {
			return strings.TrimSpace(name), strings.TrimSpace(args), nil
		}
	}
}
