// Package models defines server-side data models persisted in the database.
package models

import "time"

// RefreshToken is an opaque, single-use credential owned by exactly one user.
// The token value itself is the identity of the row.
type RefreshToken struct {
	Token     string
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.Expires.Before(now)
}
