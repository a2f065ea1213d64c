package models

// Group represents a set of users who share expenses. Groups own their
// settlement records and the cached balances derived from them; neither
// outlives the group.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g. "Roommates").
	Name string

	// Currency is the group default currency, inherited by expenses that
	// do not specify one.
	Currency string

	// CreatedBy is the user who created the group. The creator is treated
	// as a member for authorization purposes even if not listed.
	CreatedBy string

	// Members is the list of member user IDs.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether userID is a member or the creator of the group.
func (g *Group) HasMember(userID string) bool {
	if userID == g.CreatedBy {
		return true
	}
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
