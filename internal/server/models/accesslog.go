package models

import "time"

// EventType classifies an access log entry.
type EventType string

const (
	EventLogin  EventType = "login"
	EventLogout EventType = "logout"
)

// AccessLogEntry is an append-only audit fact about one login or logout attempt.
// UserID is nil when the submitted email did not resolve to a user.
type AccessLogEntry struct {
	ID         int64
	UserID     *int64
	Email      string
	EventType  EventType
	IPAddress  string
	Success    bool
	Message    string
	OccurredAt time.Time
}
