package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

// sessionRepository implements repository.SessionRepository.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

// Create stores a new session.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at)
		VALUES ($1, $2, $3)
	`, session.ID, session.UserID, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetIdentity resolves a session id to the owning user.
func (r *sessionRepository) GetIdentity(ctx context.Context, sessionID uuid.UUID) (*domain.Identity, error) {
	query := `
		SELECT u.id, u.name, u.username, u.password_hash, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`
	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	return &domain.Identity{User: user, SessionID: sessionID}, nil
}

// Delete removes the session owned by userID.
func (r *sessionRepository) Delete(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
