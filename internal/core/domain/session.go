package domain

import "time"

// Session binds an opaque cookie value to a user for a bounded window.
// A session is valid only while unexpired and while its user still exists;
// the latter is checked at resolution time, not stored here.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's absolute expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
