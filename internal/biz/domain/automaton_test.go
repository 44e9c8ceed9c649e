package domain

import (
	"math/rand"
	"strings"
	"testing"
	"unicode"
)

func buildTestMatcher(t *testing.T, watches map[string]*KeywordWatch) *Matcher {
	t.Helper()
	m, err := BuildMatcher(watches)
	if err != nil {
		t.Fatalf("BuildMatcher failed: %v", err)
	}
	return m
}

func TestMatcher_Scan_Basic(t *testing.T) {
	watches := map[string]*KeywordWatch{
		"u1": {On: true, Keywords: []Keyword{{Text: "printer"}}},
		"u2": {On: true, Keywords: []Keyword{{Text: "CAD", MatchCase: true}}},
	}
	m := buildTestMatcher(t, watches)

	matches := m.Scan("the Printer ate my cad files")
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d: %v", len(matches), matches)
	}
	if matches[0].UserID != "u1" || matches[0].Keyword != "printer" {
		t.Errorf("Expected u1/printer, got %s/%s", matches[0].UserID, matches[0].Keyword)
	}

	matches = m.Scan("CAD files here")
	if len(matches) != 1 || matches[0].UserID != "u2" {
		t.Fatalf("Expected case-sensitive CAD match for u2, got %v", matches)
	}
}

func TestMatcher_Scan_WholeWord(t *testing.T) {
	watches := map[string]*KeywordWatch{
		"u": {On: true, Keywords: []Keyword{{Text: "3d printer", WholeWord: true}}},
	}
	m := buildTestMatcher(t, watches)

	if matches := m.Scan("Check out my 3D Printer setup"); len(matches) != 1 {
		t.Errorf("Expected whole-word match, got %v", matches)
	}
	if matches := m.Scan("my3d printerstore"); len(matches) != 0 {
		t.Errorf("Expected no match across word boundaries, got %v", matches)
	}
	if matches := m.Scan("3d printer"); len(matches) != 1 {
		t.Errorf("Expected match at string boundaries, got %v", matches)
	}
}

func TestMatcher_Scan_DedupePerOwner(t *testing.T) {
	watches := map[string]*KeywordWatch{
		"u": {On: true, Keywords: []Keyword{{Text: "go"}}},
	}
	m := buildTestMatcher(t, watches)

	matches := m.Scan("go go go")
	if len(matches) != 1 {
		t.Fatalf("Expected 1 deduplicated match, got %d", len(matches))
	}
}

func TestMatcher_Scan_DuplicatePatternsAcrossUsers(t *testing.T) {
	watches := map[string]*KeywordWatch{
		"u1": {On: true, Keywords: []Keyword{{Text: "meeting"}}},
		"u2": {On: true, Keywords: []Keyword{{Text: "meeting"}}},
		"u3": {On: false, Keywords: []Keyword{{Text: "meeting"}}},
	}
	m := buildTestMatcher(t, watches)

	// All owners are reported, including ones with watching disabled; the
	// enabled flag is filtered after matching.
	matches := m.Scan("meeting at noon")
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches (one per owner), got %d: %v", len(matches), matches)
	}
}

func TestMatcher_Scan_OverlappingPatterns(t *testing.T) {
	watches := map[string]*KeywordWatch{
		"u": {On: true, Keywords: []Keyword{{Text: "she"}, {Text: "he"}, {Text: "hers"}}},
	}
	m := buildTestMatcher(t, watches)

	matches := m.Scan("hers")
	want := map[string]bool{"she": false, "he": false, "hers": false}
	for _, match := range matches {
		want[match.Keyword] = true
	}
	for kw, found := range want {
		if !found {
			t.Errorf("Expected overlapping match for %q, got %v", kw, matches)
		}
	}
}

func TestBuildMatcher_EmptyPattern(t *testing.T) {
	watches := map[string]*KeywordWatch{
		"u": {On: true, Keywords: []Keyword{{Text: ""}}},
	}
	if _, err := BuildMatcher(watches); err == nil {
		t.Error("Expected error for empty pattern")
	}
}

func TestBuildMatcher_Idempotent(t *testing.T) {
	watches := map[string]*KeywordWatch{
		"u1": {On: true, Keywords: []Keyword{{Text: "alpha"}, {Text: "Beta", MatchCase: true}}},
		"u2": {On: true, Keywords: []Keyword{{Text: "beta", WholeWord: true}}},
	}
	m1 := buildTestMatcher(t, watches)
	m2 := buildTestMatcher(t, watches)

	text := "alpha Beta beta alphabeta"
	got1 := m1.Scan(text)
	got2 := m2.Scan(text)
	if len(got1) != len(got2) {
		t.Fatalf("Rebuild changed results: %v vs %v", got1, got2)
	}
	for i := range got1 {
		if got1[i] != got2[i] {
			t.Errorf("Rebuild changed result %d: %v vs %v", i, got1[i], got2[i])
		}
	}
}

// naiveScan is the reference scanner: brute-force substring search with the
// same case and whole-word semantics as the matcher.
func naiveScan(text string, watches map[string]*KeywordWatch) map[KeywordMatch]bool {
	found := make(map[KeywordMatch]bool)
	runes := []rune(text)
	folded := []rune(strings.Map(unicode.ToLower, text))
	for userID, watch := range watches {
		for _, kw := range watch.Keywords {
			pattern := []rune(kw.Text)
			haystack := runes
			if !kw.MatchCase {
				pattern = []rune(strings.Map(unicode.ToLower, kw.Text))
				haystack = folded
			}
			for i := 0; i+len(pattern) <= len(haystack); i++ {
				ok := true
				for j := range pattern {
					if haystack[i+j] != pattern[j] {
						ok = false
						break
					}
				}
				if !ok {
					continue
				}
				if kw.WholeWord && !wholeWordAt(runes, i, i+len(pattern)) {
					continue
				}
				found[KeywordMatch{UserID: userID, Keyword: kw.Text}] = true
			}
		}
	}
	return found
}

func TestMatcher_Scan_DifferentialAgainstNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abAB ")

	randomText := func(n int) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		return sb.String()
	}

	for trial := 0; trial < 50; trial++ {
		watches := make(map[string]*KeywordWatch)
		users := 1 + rng.Intn(4)
		for u := 0; u < users; u++ {
			watch := &KeywordWatch{On: true}
			for k := 0; k < 1+rng.Intn(4); k++ {
				watch.Keywords = append(watch.Keywords, Keyword{
					Text:      randomText(1 + rng.Intn(3)),
					MatchCase: rng.Intn(2) == 0,
					WholeWord: rng.Intn(2) == 0,
				})
			}
			watches[string(rune('a'+u))] = watch
		}
		// Patterns containing spaces only; skip empty/space-only patterns
		// the builder rejects.
		valid := true
		for _, w := range watches {
			for _, kw := range w.Keywords {
				if kw.Text == "" {
					valid = false
				}
			}
		}
		if !valid {
			continue
		}

		m, err := BuildMatcher(watches)
		if err != nil {
			t.Fatalf("trial %d: BuildMatcher failed: %v", trial, err)
		}
		text := randomText(40)
		got := m.Scan(text)
		want := naiveScan(text, watches)

		if len(got) != len(want) {
			t.Fatalf("trial %d: text %q: matcher found %d, naive found %d\nmatcher: %v\nnaive: %v",
				trial, text, len(got), len(want), got, want)
		}
		for _, match := range got {
			if !want[match] {
				t.Errorf("trial %d: text %q: matcher reported %v not found by naive scan", trial, text, match)
			}
		}
	}
}
