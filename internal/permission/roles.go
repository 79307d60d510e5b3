package permission

const (
	RoleNone    = "none"
	RoleManager = "manager"
)

// None is the no-access baseline: every category present with an empty mask.
func None() Set {
	s := make(Set, len(Categories))
	for _, c := range Categories {
		s[c] = MaskNone
	}
	return s
}

// Manager returns the manager role grant. allowDelete controls whether the
// role may delete tokens.
func Manager(allowDelete bool) Set {
	s := None()
	s[CategoryTokens] = New(true, true, true, allowDelete)
	s[CategoryAccessTokens] = MaskAll
	return s
}

// Predefined resolves a role name to its grant.
func Predefined(role string, allowManagerDelete bool) (Set, bool) {
	switch role {
	case RoleNone:
		return None(), true
	case RoleManager:
		return Manager(allowManagerDelete), true
	}
	return nil, false
}
