package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

// sessionRepository implements repository.SessionRepository for SQLite.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

// Create stores a new session.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at)
		VALUES (?, ?, ?)
	`,
		session.ID.String(),
		session.UserID,
		formatTime(session.CreatedAt),
	)
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
		WHERE s.id = ?
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, sessionID.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	return &domain.Identity{User: user, SessionID: sessionID}, nil
}

// Delete removes the session owned by userID.
func (r *sessionRepository) Delete(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND user_id = ?`, sessionID.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
