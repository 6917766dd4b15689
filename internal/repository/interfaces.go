// Package repository defines data access interfaces for Photoshare.
// Implementations live in the postgres and sqlite subpackages.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/prn-tf/photoshare/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// CreateWithSession inserts the user and its first session atomically.
	// On success user.ID and session.UserID are set.
	// Returns domain.ErrUserAlreadyExists if the username is taken.
	CreateWithSession(ctx context.Context, user *domain.User, session *domain.Session) error

	// GetByID retrieves a user by ID.
	// Returns domain.ErrUserNotFound if not found.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	// Returns domain.ErrUserNotFound if not found.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// =============================================================================
// Session Repository
// =============================================================================

// SessionRepository defines the interface for session data access.
// The sessions table is the session index: lookups by id are a primary key read.
type SessionRepository interface {
	// Create stores a new session for an existing user.
	Create(ctx context.Context, session *domain.Session) error

	// GetIdentity resolves a session id to its owner.
	// Returns nil, nil if the session does not exist.
	GetIdentity(ctx context.Context, sessionID uuid.UUID) (*domain.Identity, error)

	// Delete removes the session if it belongs to userID. Deleting a missing
	// session is not an error.
	Delete(ctx context.Context, sessionID uuid.UUID, userID int64) error
}

// =============================================================================
// Image Repository
// =============================================================================

// ImageRepository defines the interface for image catalog access.
type ImageRepository interface {
	// Create inserts a new image record and sets img.ID.
	// Returns domain.ErrImageAlreadyExists if the key is already registered.
	Create(ctx context.Context, img *domain.Image) error

	// GetByID retrieves an image with its likers.
	// Returns domain.ErrImageNotFound if not found.
	GetByID(ctx context.Context, id int64) (*domain.Image, error)

	// ListPublic returns public images in descending id order.
	ListPublic(ctx context.Context, opts ImageListOptions) ([]*domain.Image, error)

	// ListByOwner returns the owner's images of any visibility in descending id order.
	ListByOwner(ctx context.Context, ownerID int64, opts ImageListOptions) ([]*domain.Image, error)

	// Delete removes an image and its likes, returning the deleted record.
	// Returns domain.ErrImageNotFound if not found.
	Delete(ctx context.Context, id int64) (*domain.Image, error)

	// AddLike adds userID to the image's likers if not already present and
	// returns the updated image.
	// Returns domain.ErrImageNotFound if the image does not exist.
	AddLike(ctx context.Context, imageID, userID int64) (*domain.Image, error)

	// RemoveLike removes userID from the image's likers and returns the
	// updated image.
	// Returns domain.ErrImageNotFound if the image does not exist.
	RemoveLike(ctx context.Context, imageID, userID int64) (*domain.Image, error)
}

// ImageListOptions contains keyset pagination options.
type ImageListOptions struct {
	// Before restricts results to ids strictly lower than this cursor.
	// Nil means the first page.
	Before *int64

	// Limit is the page size.
	Limit int
}
