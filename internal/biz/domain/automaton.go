package domain

import (
	"sort"
	"unicode"
)

// KeywordMatch is a single (owner, keyword) hit from a scan.
type KeywordMatch struct {
	UserID  string
	Keyword string
}

// keywordRef identifies one user's keyword terminating at a trie node.
// Duplicate patterns from different users each contribute their own ref.
type keywordRef struct {
	owner     string
	text      string // original pattern text, as entered by the owner
	runeLen   int
	wholeWord bool
}

// acNode is a node in the automaton's trie.
type acNode struct {
	next map[rune]*acNode
	fail *acNode
	out  []keywordRef
}

func newACNode() *acNode {
	return &acNode{next: make(map[rune]*acNode)}
}

// automaton is an Aho-Corasick automaton over a fixed set of patterns.
// It is immutable once built and therefore safe for concurrent scans.
type automaton struct {
	root *acNode
}

func newAutomaton() *automaton {
	return &automaton{root: newACNode()}
}

// add inserts a pattern into the trie. Must be called before build.
func (a *automaton) add(pattern []rune, ref keywordRef) {
	node := a.root
	for _, r := range pattern {
		child := node.next[r]
		if child == nil {
			child = newACNode()
			node.next[r] = child
		}
		node = child
	}
	node.out = append(node.out, ref)
}

// build computes failure links with a BFS over the trie and merges output
// lists along failure chains, so scanning never has to walk fail pointers to
// collect matches.
func (a *automaton) build() {
	queue := make([]*acNode, 0, len(a.root.next))
	for _, child := range a.root.next {
		child.fail = a.root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for r, child := range node.next {
			fail := node.fail
			for fail != a.root && fail.next[r] == nil {
				fail = fail.fail
			}
			if f := fail.next[r]; f != nil && f != child {
				child.fail = f
			} else {
				child.fail = a.root
			}
			child.out = append(child.out, child.fail.out...)
			queue = append(queue, child)
		}
	}
}

// scan runs the text through the automaton, calling report with the end
// position (exclusive, in runes) for every candidate match.
func (a *automaton) scan(text []rune, report func(end int, ref keywordRef)) {
	node := a.root
	for i, r := range text {
		for node != a.root && node.next[r] == nil {
			node = node.fail
		}
		if next := node.next[r]; next != nil {
			node = next
		}
		for _, ref := range node.out {
			report(i+1, ref)
		}
	}
}

// Matcher answers which (owner, keyword) pairs match a message in a single
// linear scan, independent of how many users watch keywords.
//
// Two automata are kept: one over case-sensitive patterns matched against the
// raw text, one over case-insensitive patterns matched against a case-folded
// copy. Folding is done rune by rune so match spans line up across both.
type Matcher struct {
	exact  *automaton
	folded *automaton
}

// BuildMatcher constructs a matcher over every keyword of every user. Users
// with watching disabled are included; the enabled flag is filtered after
// matching, not here. An empty pattern fails the whole build so a previously
// built matcher can stay in service.
func BuildMatcher(watches map[string]*KeywordWatch) (*Matcher, error) {
	m := &Matcher{exact: newAutomaton(), folded: newAutomaton()}
	for userID, watch := range watches {
		for _, kw := range watch.Keywords {
			if kw.Text == "" {
				return nil, &ValidationError{Message: "empty keyword pattern for user " + userID}
			}
			runes := []rune(kw.Text)
			ref := keywordRef{
				owner:     userID,
				text:      kw.Text,
				runeLen:   len(runes),
				wholeWord: kw.WholeWord,
			}
			if kw.MatchCase {
				m.exact.add(runes, ref)
			} else {
				m.folded.add(foldRunes(runes), ref)
			}
		}
	}
	m.exact.build()
	m.folded.build()
	return m, nil
}

// Scan returns all (owner, keyword) pairs matching the text, de-duplicated
// per pair and sorted for deterministic output. Total cost is linear in the
// text length plus the number of matches.
func (m *Matcher) Scan(text string) []KeywordMatch {
	runes := []rune(text)
	seen := make(map[KeywordMatch]bool)
	report := func(end int, ref keywordRef) {
		if ref.wholeWord && !wholeWordAt(runes, end-ref.runeLen, end) {
			return
		}
		seen[KeywordMatch{UserID: ref.owner, Keyword: ref.text}] = true
	}
	m.exact.scan(runes, report)
	m.folded.scan(foldRunes(runes), report)

	matches := make([]KeywordMatch, 0, len(seen))
	for match := range seen {
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].UserID != matches[j].UserID {
			return matches[i].UserID < matches[j].UserID
		}
		return matches[i].Keyword < matches[j].Keyword
	})
	return matches
}

// wholeWordAt reports whether the span [start, end) sits on word boundaries:
// the runes on either side are absent or non-alphanumeric.
func wholeWordAt(text []rune, start, end int) bool {
	if start > 0 && isWordRune(text[start-1]) {
		return false
	}
	if end < len(text) && isWordRune(text[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// foldRunes lowercases rune by rune, preserving rune count so positions in
// the folded text map 1:1 onto the original.
func foldRunes(runes []rune) []rune {
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = unicode.ToLower(r)
	}
	return folded
}
