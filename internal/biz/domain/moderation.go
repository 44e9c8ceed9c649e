package domain

import (
	"fmt"
	"sync"
	"time"
)

// MaxTimeoutDuration caps timeouts at creation time. Durations above the cap
// are a validation error, not silently clamped.
const MaxTimeoutDuration = 86400 * time.Second

// ModerationKind distinguishes the two kinds of moderation entries.
type ModerationKind int

const (
	ModerationMute ModerationKind = iota
	ModerationTimeout
)

func (k ModerationKind) String() string {
	if k == ModerationMute {
		return "mute"
	}
	return "timeout"
}

type moderationKey struct {
	chatID string
	userID string
}

// ModerationEntry is a live mute or timeout for one (chat, user) pair.
type ModerationEntry struct {
	Kind      ModerationKind
	Forever   bool
	ExpiresAt time.Time
}

// Expired reports whether the entry has lapsed at the given time.
func (e ModerationEntry) Expired(now time.Time) bool {
	return !e.Forever && now.After(e.ExpiresAt)
}

// ModerationTable tracks mutes and timeouts per (chat, user). Entries are
// process-lifetime only and are lost on restart by design. Expiry is
// evaluated lazily at lookup; no background sweep is needed for correctness.
type ModerationTable struct {
	mu      sync.Mutex
	entries map[moderationKey]ModerationEntry
	now     func() time.Time
}

// NewModerationTable creates an empty table.
func NewModerationTable() *ModerationTable {
	return &ModerationTable{
		entries: make(map[moderationKey]ModerationEntry),
		now:     time.Now,
	}
}

// Mute mutes a user in a chat. A non-positive duration mutes forever.
// An existing entry for the pair is replaced.
func (t *ModerationTable) Mute(chatID, userID string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry := ModerationEntry{Kind: ModerationMute, Forever: d <= 0}
	if d > 0 {
		entry.ExpiresAt = t.now().Add(d)
	}
	t.entries[moderationKey{chatID, userID}] = entry
}

// Timeout places a user in timeout in a chat. The duration must be positive
// and at most MaxTimeoutDuration.
func (t *ModerationTable) Timeout(chatID, userID string, d time.Duration) error {
	if d <= 0 {
		return &ValidationError{Message: "timeout duration must be positive"}
	}
	if d > MaxTimeoutDuration {
		return &ValidationError{Message: fmt.Sprintf("maximum timeout duration is %d seconds", int(MaxTimeoutDuration.Seconds()))}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[moderationKey{chatID, userID}] = ModerationEntry{
		Kind:      ModerationTimeout,
		ExpiresAt: t.now().Add(d),
	}
	return nil
}

// Clear removes the entry of the given kind for a (chat, user) pair.
// Returns false if no live entry of that kind existed.
func (t *ModerationTable) Clear(chatID, userID string, kind ModerationKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := moderationKey{chatID, userID}
	entry, ok := t.entries[key]
	if !ok {
		return false
	}
	if entry.Expired(t.now()) {
		delete(t.entries, key)
		return false
	}
	if entry.Kind != kind {
		return false
	}
	delete(t.entries, key)
	return true
}

// Lookup returns the live entry for a (chat, user) pair, if any. Lapsed
// entries are removed on the way.
func (t *ModerationTable) Lookup(chatID, userID string) (ModerationEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := moderationKey{chatID, userID}
	entry, ok := t.entries[key]
	if !ok {
		return ModerationEntry{}, false
	}
	if entry.Expired(t.now()) {
		delete(t.entries, key)
		return ModerationEntry{}, false
	}
	return entry, true
}

// Suppressed reports whether messages from the user in the chat are currently
// suppressed.
func (t *ModerationTable) Suppressed(chatID, userID string) bool {
	_, ok := t.Lookup(chatID, userID)
	return ok
}
