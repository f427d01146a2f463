package domain

import "strings"

// UserID is a canonical owner identifier. Both sides of an ownership
// comparison must go through ParseUserID so that a raw id and an id that
// was persisted as a JSON-quoted string compare equal.
type UserID string

// ParseUserID normalizes a raw or JSON-quoted identifier string into its
// canonical form. Surrounding whitespace and a single layer of double
// quoting are stripped; anything else is taken verbatim.
func ParseUserID(s string) UserID {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return UserID(s)
}

// String returns the canonical string form.
func (id UserID) String() string { return string(id) }

// IsZero reports whether the identifier is absent.
func (id UserID) IsZero() bool { return id == "" }

// IsOwner reports whether the entity owner id matches the session user id.
// The check gates edit/delete affordances only; the backend remains the
// authority on whether a mutation is permitted.
func IsOwner(entityOwner string, sessionUser UserID) bool {
	if sessionUser.IsZero() {
		return false
	}
	return ParseUserID(entityOwner) == sessionUser
}
