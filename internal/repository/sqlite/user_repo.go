package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

var _ repository.UserRepository = (*userRepository)(nil)

// CreateWithSession inserts the user and its first session in one transaction.
func (r *userRepository) CreateWithSession(ctx context.Context, user *domain.User, session *domain.Session) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO users (name, username, password_hash, created_at)
			VALUES (?, ?, ?, ?)
		`,
			user.Name,
			user.Username,
			user.PasswordHash,
			formatTime(user.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewDomainError(domain.ErrUserAlreadyExists, "", user.Username)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		user.ID = id
		session.UserID = id

		_, err = tx.ExecContext(ctx, `
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
	})
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, name, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, name, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var createdAt string

	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.PasswordHash,
		&createdAt,
	); err != nil {
		return nil, err
	}

	user.CreatedAt = parseTime(createdAt)
	return user, nil
}
