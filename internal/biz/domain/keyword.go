package domain

import "time"

// DefaultActivityTimeout is how long after their own last message a user is
// considered active and therefore not notified.
const DefaultActivityTimeout = 180 * time.Second

// Keyword is a single watched pattern belonging to one user.
type Keyword struct {
	Text      string `json:"keyword"`
	MatchCase bool   `json:"matchCase"`
	WholeWord bool   `json:"wholeWord"`
}

// KeywordWatch holds one user's keyword watch settings. Keywords keep
// insertion order; display numbering and deletion are 1-based on that order.
type KeywordWatch struct {
	On              bool          `json:"on"`
	ActivityTimeout time.Duration `json:"activityTimeout"`
	SuppressedUntil time.Time     `json:"suppressedUntil,omitzero"`
	Keywords        []Keyword     `json:"keywords"`
}

// NewKeywordWatch returns a watch config with default settings.
func NewKeywordWatch() *KeywordWatch {
	return &KeywordWatch{
		On:              true,
		ActivityTimeout: DefaultActivityTimeout,
	}
}

// Clone returns a deep copy of the watch config.
func (w *KeywordWatch) Clone() *KeywordWatch {
	cp := *w
	cp.Keywords = append([]Keyword(nil), w.Keywords...)
	return &cp
}

// Suppressed reports whether notifications are suppressed at the given time.
func (w *KeywordWatch) Suppressed(now time.Time) bool {
	return !w.SuppressedUntil.IsZero() && now.Before(w.SuppressedUntil)
}
