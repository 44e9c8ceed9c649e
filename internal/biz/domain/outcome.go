package domain

import "time"

// InboundMessage is one chat message entering the pipeline.
type InboundMessage struct {
	ChatID string
	UserID string
	MsgID  string
	Text   string
	Time   time.Time
	DM     bool // direct message; commands need no prefix
}

// OutcomeKind enumerates the terminal states of the message pipeline.
type OutcomeKind int

const (
	// OutcomeSuppressed means the moderation gate dropped the message.
	OutcomeSuppressed OutcomeKind = iota
	// OutcomeDispatched means a command was recognized and authorized.
	OutcomeDispatched
	// OutcomeAccessDenied means a command was recognized but the user may
	// not run it.
	OutcomeAccessDenied
	// OutcomeAliasCycle means alias expansion detected a cycle.
	OutcomeAliasCycle
	// OutcomeUnknownCommand means the message looked like a command but no
	// registered command bears the resolved name.
	OutcomeUnknownCommand
	// OutcomeKeywordMatches means a non-command message matched at least
	// one user's keyword watch after notification filtering.
	OutcomeKeywordMatches
	// OutcomeNoMatch means a non-command message matched nothing.
	OutcomeNoMatch
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeAccessDenied:
		return "access-denied"
	case OutcomeAliasCycle:
		return "alias-cycle"
	case OutcomeUnknownCommand:
		return "unknown-command"
	case OutcomeKeywordMatches:
		return "keyword-matches"
	case OutcomeNoMatch:
		return "no-match"
	default:
		return "invalid"
	}
}

// Outcome is the pipeline's decision for one inbound message.
type Outcome struct {
	Kind   OutcomeKind
	ChatID string
	UserID string

	// Command and Args are set for Dispatched, AccessDenied and
	// UnknownCommand.
	Command string
	Args    string

	// Notify is set on Suppressed when the user should receive a private
	// explanation (read-only chat violation). Mutes and timeouts suppress
	// silently.
	Notify bool

	// AliasChain names the looping aliases for AliasCycle.
	AliasChain []string

	// Matches holds the filtered keyword hits for KeywordMatches.
	Matches []KeywordMatch
}
