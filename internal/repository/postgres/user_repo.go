package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

// userRepository implements repository.UserRepository.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

var _ repository.UserRepository = (*userRepository)(nil)

// CreateWithSession inserts the user and its first session in one transaction.
func (r *userRepository) CreateWithSession(ctx context.Context, user *domain.User, session *domain.Session) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (name, username, password_hash, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, user.Name, user.Username, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewDomainError(domain.ErrUserAlreadyExists, "", user.Username)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		session.UserID = user.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO sessions (id, user_id, created_at)
			VALUES ($1, $2, $3)
		`, session.ID, session.UserID, session.CreatedAt)
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
		WHERE id = $1
	`
	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
		WHERE username = $1
	`
	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
