package domain

// AccessRule overrides access control for a single command. All fields are
// optional; an absent rule behaves like an all-empty one.
type AccessRule struct {
	Level         *AccessLevel `json:"level,omitempty"`
	AllowUsers    []string     `json:"allowUser,omitempty"`
	DisallowUsers []string     `json:"disallowUser,omitempty"`
	AllowRoles    []string     `json:"allowRole,omitempty"`
	DisallowRoles []string     `json:"disallowRole,omitempty"`
}

// Clone returns a deep copy of the rule.
func (r *AccessRule) Clone() *AccessRule {
	if r == nil {
		return nil
	}
	cp := &AccessRule{
		AllowUsers:    append([]string(nil), r.AllowUsers...),
		DisallowUsers: append([]string(nil), r.DisallowUsers...),
		AllowRoles:    append([]string(nil), r.AllowRoles...),
		DisallowRoles: append([]string(nil), r.DisallowRoles...),
	}
	if r.Level != nil {
		l := *r.Level
		cp.Level = &l
	}
	return cp
}

// Empty reports whether the rule overrides nothing.
func (r *AccessRule) Empty() bool {
	return r == nil || (r.Level == nil && len(r.AllowUsers) == 0 && len(r.DisallowUsers) == 0 &&
		len(r.AllowRoles) == 0 && len(r.DisallowRoles) == 0)
}

// EffectiveLevel returns the rule's level override, or the command's default.
func (r *AccessRule) EffectiveLevel(defaultLevel AccessLevel) AccessLevel {
	if r != nil && r.Level != nil {
		return *r.Level
	}
	return defaultLevel
}

// Authorize decides whether a user may run a command. Resolution order, most
// specific first, with deny beating allow at equal specificity:
//
//  1. user in disallowUser          -> deny
//  2. user in allowUser             -> allow
//  3. any user role in disallowRole -> deny
//  4. any user role in allowRole    -> allow
//  5. userLevel >= effective level  -> allow, else deny
//
// memberOf reports role membership and must be case-insensitive on the role
// name. rule may be nil. The result is independent of role iteration order
// because every disallowRole entry is checked before any allowRole entry.
func Authorize(rule *AccessRule, defaultLevel AccessLevel, userID string, userLevel AccessLevel, memberOf func(role string) bool) bool {
	if rule != nil {
		for _, id := range rule.DisallowUsers {
			if id == userID {
				return false
			}
		}
		for _, id := range rule.AllowUsers {
			if id == userID {
				return true
			}
		}
		for _, role := range rule.DisallowRoles {
			if memberOf(role) {
				return false
			}
		}
		for _, role := range rule.AllowRoles {
			if memberOf(role) {
				return true
			}
		}
	}
	return userLevel >= rule.EffectiveLevel(defaultLevel)
}
