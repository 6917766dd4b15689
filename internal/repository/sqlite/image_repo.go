package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

// imageRepository implements repository.ImageRepository for SQLite.
type imageRepository struct {
	db *DB
}

// NewImageRepository creates a new SQLite image repository.
func NewImageRepository(db *DB) repository.ImageRepository {
	return &imageRepository{db: db}
}

var _ repository.ImageRepository = (*imageRepository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const imageColumns = `id, user_id, user_name, user_username, public, image_key, original_file_name, created_at`

// Create inserts a new image record.
func (r *imageRepository) Create(ctx context.Context, img *domain.Image) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO images (user_id, user_name, user_username, public, image_key, original_file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		img.User.ID,
		img.User.Name,
		img.User.Username,
		boolToInt(img.Public),
		img.Key,
		img.OriginalFileName,
		formatTime(img.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrImageAlreadyExists, "", img.Key)
		}
		return fmt.Errorf("failed to create image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	img.ID = id
	if img.Likes == nil {
		img.Likes = []int64{}
	}

	return nil
}

// GetByID retrieves an image with its likers.
func (r *imageRepository) GetByID(ctx context.Context, id int64) (*domain.Image, error) {
	return getImage(ctx, r.db.DB, id)
}

func getImage(ctx context.Context, q querier, id int64) (*domain.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = ?`

	img, err := scanImage(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	if err := loadLikes(ctx, q, []*domain.Image{img}); err != nil {
		return nil, err
	}
	return img, nil
}

// ListPublic returns a page of public images, newest first.
func (r *imageRepository) ListPublic(ctx context.Context, opts repository.ImageListOptions) ([]*domain.Image, error) {
	return r.list(ctx, "public = 1", nil, opts)
}

// ListByOwner returns a page of the owner's images, newest first.
func (r *imageRepository) ListByOwner(ctx context.Context, ownerID int64, opts repository.ImageListOptions) ([]*domain.Image, error) {
	return r.list(ctx, "user_id = ?", []any{ownerID}, opts)
}

func (r *imageRepository) list(ctx context.Context, filter string, args []any, opts repository.ImageListOptions) ([]*domain.Image, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + imageColumns + ` FROM images WHERE `)
	sb.WriteString(filter)
	if opts.Before != nil {
		sb.WriteString(` AND id < ?`)
		args = append(args, *opts.Before)
	}
	sb.WriteString(` ORDER BY id DESC LIMIT ?`)
	args = append(args, opts.Limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images := make([]*domain.Image, 0, opts.Limit)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}
	// Release the connection before loading likes.
	rows.Close()

	if err := loadLikes(ctx, r.db.DB, images); err != nil {
		return nil, err
	}
	return images, nil
}

// Delete removes an image and returns the deleted record.
func (r *imageRepository) Delete(ctx context.Context, id int64) (*domain.Image, error) {
	var deleted *domain.Image

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		img, err := getImage(ctx, tx, id)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return domain.ErrImageNotFound
		}

		deleted = img
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

// AddLike records userID as a liker. Repeated likes are no-ops.
func (r *imageRepository) AddLike(ctx context.Context, imageID, userID int64) (*domain.Image, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO image_likes (image_id, user_id, created_at)
		SELECT ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM images WHERE id = ?)
		ON CONFLICT (image_id, user_id) DO NOTHING
	`, imageID, userID, formatTime(time.Now()), imageID)
	if err != nil {
		return nil, fmt.Errorf("failed to add like: %w", err)
	}

	return r.GetByID(ctx, imageID)
}

// RemoveLike removes userID from the likers.
func (r *imageRepository) RemoveLike(ctx context.Context, imageID, userID int64) (*domain.Image, error) {
	_, err := r.db.ExecContext(ctx, `DELETE FROM image_likes WHERE image_id = ? AND user_id = ?`, imageID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove like: %w", err)
	}

	return r.GetByID(ctx, imageID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*domain.Image, error) {
	img := &domain.Image{Likes: []int64{}}
	var public int
	var createdAt string

	if err := row.Scan(
		&img.ID,
		&img.User.ID,
		&img.User.Name,
		&img.User.Username,
		&public,
		&img.Key,
		&img.OriginalFileName,
		&createdAt,
	); err != nil {
		return nil, err
	}

	img.Public = public != 0
	img.CreatedAt = parseTime(createdAt)
	return img, nil
}

// loadLikes fills the likers of every image with a single query.
func loadLikes(ctx context.Context, q querier, images []*domain.Image) error {
	if len(images) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Image, len(images))
	placeholders := make([]string, 0, len(images))
	args := make([]any, 0, len(images))
	for _, img := range images {
		byID[img.ID] = img
		placeholders = append(placeholders, "?")
		args = append(args, img.ID)
	}

	query := `SELECT image_id, user_id FROM image_likes WHERE image_id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY image_id, user_id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var imageID, userID int64
		if err := rows.Scan(&imageID, &userID); err != nil {
			return fmt.Errorf("failed to scan like: %w", err)
		}
		if img, ok := byID[imageID]; ok {
			img.Likes = append(img.Likes, userID)
		}
	}
	return rows.Err()
}
