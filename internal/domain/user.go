// Package domain contains the core business entities for Photoshare.
// These are pure Go structs with no storage dependencies, representing
// the users, sessions and images of the photo-sharing service.
package domain

import (
	"time"
)

// User represents a registered user in the system.
// Users own sessions (one per login) and images (by reference).
type User struct {
	// ID is the unique identifier for the user (generated by the store).
	ID int64 `json:"id"`

	// Name is the display name shown next to uploaded images.
	Name string `json:"name"`

	// Username is the unique login name.
	// Constraints: at least 3 characters.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user registered.
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser creates a new User with default values.
func NewUser(name, username, passwordHash string) *User {
	return &User{
		Name:         name,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// Owner returns the snapshot of this user that is embedded into uploaded images.
func (u *User) Owner() Owner {
	return Owner{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
	}
}
