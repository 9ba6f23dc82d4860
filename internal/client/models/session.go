// Package models holds client-side data types.
package models

import "time"

// Session is the locally remembered login: who is signed in and the current
// token pair.
type Session struct {
	Email        string
	AccessToken  string
	RefreshToken string
	UpdatedAt    time.Time
}
