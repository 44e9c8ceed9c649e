package domain

import "strings"

// FieldKind names the lookup field of a ChatRef.
type FieldKind string

const (
	FieldName     FieldKind = "name"
	FieldNickname FieldKind = "nickname"
	FieldUsername FieldKind = "username"
	FieldEmail    FieldKind = "email"
	FieldID       FieldKind = "id"
	FieldJID      FieldKind = "jid"
)

// ChatRef is a parsed chat lookup expression. The adapter resolves it to a
// concrete chat or user; not every adapter supports every field (username
// lookups have no Feishu equivalent).
//
// Lookup case sensitivity is intentionally uneven and must be preserved:
// nickname lookups are case-insensitive, direct name lookups are
// case-sensitive.
type ChatRef struct {
	Field FieldKind
	Value string
}

// ParseChatRef parses a chat lookup expression of the form
// [(name|nickname|username|email|id|jid)=][+|@]value. A leading + selects a
// nickname lookup, a leading @ a username lookup, and a bare value a name
// lookup.
func ParseChatRef(s string) (ChatRef, error) {
	if s == "" {
		return ChatRef{}, &ValidationError{Message: "chat name cannot be empty"}
	}
	if key, val, ok := strings.Cut(s, "="); ok && val != "" {
		field := FieldKind(key)
		switch field {
		case FieldName, FieldNickname, FieldUsername, FieldEmail, FieldID, FieldJID:
		default:
			return ChatRef{}, &ValidationError{Message: "invalid lookup field: " + key}
		}
		// Tolerate sigils inside an explicit query.
		if field == FieldNickname {
			val = strings.TrimPrefix(val, "+")
		} else if field == FieldUsername {
			val = strings.TrimPrefix(val, "@")
		}
		return ChatRef{Field: field, Value: val}, nil
	}
	if rest, ok := strings.CutPrefix(s, "@"); ok {
		return ChatRef{Field: FieldUsername, Value: rest}, nil
	}
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return ChatRef{Field: FieldNickname, Value: rest}, nil
	}
	return ChatRef{Field: FieldName, Value: s}, nil
}
