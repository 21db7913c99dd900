package models

import "time"

// Session binds an issued token to a user until ExpiresAt.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the session has not yet expired at t.
// User activity is checked by the store, not here.
func (s *Session) ValidAt(t time.Time) bool {
	return s.ExpiresAt.After(t)
}
