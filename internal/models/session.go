package models

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is a two-party live problem-solving room. CallID is the shared
// key addressing the same room in both real-time backends; it never
// changes after creation.
type Session struct {
	ID            string
	CallID        string
	Problem       string
	Difficulty    string
	Status        SessionStatus
	HostID        string
	ParticipantID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SessionDetail carries a session with its users expanded for responses.
// The expansion is response-only and never persisted.
type SessionDetail struct {
	Session
	Host        PublicUser
	Participant *PublicUser
}
