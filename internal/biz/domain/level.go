package domain

import (
	"fmt"
	"strconv"
)

// AccessLevel represents an ordinal permission tier.
//
// Levels are totally ordered; a user's effective level in a chat is the
// highest tier they qualify for. LevelForumAdmin is chat-scoped, all other
// levels are global.
type AccessLevel int

const (
	LevelEveryone   AccessLevel = 0
	LevelForumAdmin AccessLevel = 1
	LevelOrgAdmin   AccessLevel = 2
	LevelBotAdmin   AccessLevel = 3
	LevelMaintainer AccessLevel = 4
)

// String returns a human-readable name for the level.
func (l AccessLevel) String() string {
	switch l {
	case LevelEveryone:
		return "Everyone"
	case LevelForumAdmin:
		return "Forum Admin"
	case LevelOrgAdmin:
		return "Org Admin"
	case LevelBotAdmin:
		return "Bot Admin"
	case LevelMaintainer:
		return "Maintainer"
	default:
		return fmt.Sprintf("Unknown Level %d", int(l))
	}
}

// Describe returns the access restriction notice shown in help text.
func (l AccessLevel) Describe() string {
	switch l {
	case LevelEveryone:
		return ""
	case LevelForumAdmin:
		return "**Accessible to Forum, Org and Bot Admins only.**"
	case LevelOrgAdmin:
		return "**Accessible to Org and Bot Admins only.**"
	case LevelBotAdmin:
		return "**Accessible to Bot Admins only.**"
	case LevelMaintainer:
		return "**Accessible to my Maintainer only.**"
	default:
		return fmt.Sprintf("**Unknown Access Level: %d.**", int(l))
	}
}

// ParseAccessLevel parses a numeric access level string.
func ParseAccessLevel(s string) (AccessLevel, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Message: "invalid access level: " + s}
	}
	l := AccessLevel(n)
	if l < LevelEveryone || l > LevelMaintainer {
		return 0, &ValidationError{Message: fmt.Sprintf("access level out of range: %d", n)}
	}
	return l, nil
}
