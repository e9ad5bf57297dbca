package types

// ProfilesSeen is the profiles_seen jsonb column, a set of profile ids
// used for unread badges. Serialized as a JSON array.
type ProfilesSeen []string

// Contains reports set membership.
func (p ProfilesSeen) Contains(profileID string) bool {
	for _, id := range p {
		if id == profileID {
			return true
		}
	}
	return false
}

// Add inserts the id when absent and returns the set.
func (p ProfilesSeen) Add(profileID string) ProfilesSeen {
	if p.Contains(profileID) {
		return p
	}
	return append(p, profileID)
}

// Remove drops the id when present and returns the set.
func (p ProfilesSeen) Remove(profileID string) ProfilesSeen {
	for i, id := range p {
		if id == profileID {
			return append(p[:i], p[i+1:]...)
		}
	}
	return p
}
