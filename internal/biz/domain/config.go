package domain

import (
	"strings"
)

// BotConfig is the global configuration document: roles, access rules,
// aliases and read-only chats, persisted and versioned as a unit.
//
// Readers always work on an immutable snapshot; mutations clone the document,
// edit the clone and swap it in after it has been persisted.
type BotConfig struct {
	Version int `json:"-"`

	Admins          []string `json:"admins"`
	CommandPrefixes []string `json:"commandPrefixes"`

	// AccessDeniedMessages, when set, overrides the denial reply pool from
	// the messages file.
	AccessDeniedMessages []string `json:"accessDeniedMessages,omitempty"`

	Aliases     []Alias                `json:"aliases"`
	AccessRules map[string]*AccessRule `json:"accessRules"`

	// Roles maps role name to member user ids. Role names are
	// case-insensitive; the key preserves the spelling used on creation.
	Roles map[string][]string `json:"roles"`

	// ReadOnlyChats maps chat id to the role names allowed to post there.
	// A chat is read-only iff its entry is present; an empty role set means
	// nobody may post.
	ReadOnlyChats map[string][]string `json:"readOnlyChats"`
}

// NewBotConfig returns an empty config with all maps initialized.
func NewBotConfig() *BotConfig {
	return &BotConfig{
		AccessRules:   make(map[string]*AccessRule),
		Roles:         make(map[string][]string),
		ReadOnlyChats: make(map[string][]string),
	}
}

// Normalize initializes any nil maps after decoding.
func (c *BotConfig) Normalize() {
	if c.AccessRules == nil {
		c.AccessRules = make(map[string]*AccessRule)
	}
	if c.Roles == nil {
		c.Roles = make(map[string][]string)
	}
	if c.ReadOnlyChats == nil {
		c.ReadOnlyChats = make(map[string][]string)
	}
}

// Clone returns a deep copy of the config.
func (c *BotConfig) Clone() *BotConfig {
	cp := &BotConfig{
		Version:              c.Version,
		Admins:               append([]string(nil), c.Admins...),
		CommandPrefixes:      append([]string(nil), c.CommandPrefixes...),
		AccessDeniedMessages: append([]string(nil), c.AccessDeniedMessages...),
		Aliases:              append([]Alias(nil), c.Aliases...),
		AccessRules:          make(map[string]*AccessRule, len(c.AccessRules)),
		Roles:                make(map[string][]string, len(c.Roles)),
		ReadOnlyChats:        make(map[string][]string, len(c.ReadOnlyChats)),
	}
	for name, rule := range c.AccessRules {
		cp.AccessRules[name] = rule.Clone()
	}
	for role, members := range c.Roles {
		cp.Roles[role] = append([]string(nil), members...)
	}
	for chat, roles := range c.ReadOnlyChats {
		cp.ReadOnlyChats[chat] = append([]string(nil), roles...)
	}
	return cp
}

// IsAdmin reports whether the user is a bot admin.
func (c *BotConfig) IsAdmin(userID string) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// LookupRole finds a role by name, case-insensitively. It returns the stored
// spelling of the name and the member list.
func (c *BotConfig) LookupRole(name string) (string, []string, bool) {
	if members, ok := c.Roles[name]; ok {
		return name, members, true
	}
	for role, members := range c.Roles {
		if strings.EqualFold(role, name) {
			return role, members, true
		}
	}
	return "", nil, false
}

// HasRole reports whether the user is a member of the named role.
// Role name comparison is case-insensitive.
func (c *BotConfig) HasRole(userID, role string) bool {
	_, members, ok := c.LookupRole(role)
	if !ok {
		return false
	}
	for _, id := range members {
		if id == userID {
			return true
		}
	}
	return false
}

// RolesOf returns the stored names of all roles the user belongs to.
func (c *BotConfig) RolesOf(userID string) []string {
	var roles []string
	for role, members := range c.Roles {
		for _, id := range members {
			if id == userID {
				roles = append(roles, role)
				break
			}
		}
	}
	return roles
}

// AddToRole adds a user to a role, creating the role if needed.
// Returns false if the user already had the role.
func (c *BotConfig) AddToRole(role, userID string) bool {
	name, members, ok := c.LookupRole(role)
	if !ok {
		c.Roles[role] = []string{userID}
		return true
	}
	for _, id := range members {
		if id == userID {
			return false
		}
	}
	c.Roles[name] = append(members, userID)
	return true
}

// RemoveFromRole removes a user from a role. Roles left with no members are
// deleted. Returns false if the user did not have the role.
func (c *BotConfig) RemoveFromRole(role, userID string) bool {
	name, members, ok := c.LookupRole(role)
	if !ok {
		return false
	}
	for i, id := range members {
		if id == userID {
			members = append(members[:i], members[i+1:]...)
			if len(members) == 0 {
				delete(c.Roles, name)
			} else {
				c.Roles[name] = members
			}
			return true
		}
	}
	return false
}

// DeleteRole removes a role entirely. Returns false if it did not exist.
func (c *BotConfig) DeleteRole(role string) bool {
	name, _, ok := c.LookupRole(role)
	if !ok {
		return false
	}
	delete(c.Roles, name)
	return true
}

// IsReadOnly reports whether the chat is in read-only mode.
func (c *BotConfig) IsReadOnly(chatID string) bool {
	_, ok := c.ReadOnlyChats[chatID]
	return ok
}

// MayPostReadOnly reports whether the user holds any of the roles allowed to
// post in the given read-only chat.
func (c *BotConfig) MayPostReadOnly(chatID, userID string) bool {
	for _, role := range c.ReadOnlyChats[chatID] {
		if c.HasRole(userID, role) {
			return true
		}
	}
	return false
}

// ValidRoleName reports whether a role name is well formed: non-empty,
// alphanumeric and underscore only.
func ValidRoleName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}
