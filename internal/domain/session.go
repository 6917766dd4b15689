package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a login session owned by exactly one user.
// Sessions have no expiry; they stay valid until the owner logs out.
type Session struct {
	// ID is the opaque credential sent by clients in the session header.
	ID uuid.UUID `json:"id"`

	// UserID is the owner of the session.
	UserID int64 `json:"userId"`

	// CreatedAt is the login (or registration) time.
	CreatedAt time.Time `json:"createdAt"`
}

// NewSession creates a fresh session for the given user.
func NewSession(userID int64) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
}

// Identity is the result of resolving a session credential: the user it
// belongs to together with the session that was presented.
type Identity struct {
	User      *User     `json:"user"`
	SessionID uuid.UUID `json:"sessionId"`
}
