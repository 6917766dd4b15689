package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

// imageRepository implements repository.ImageRepository.
type imageRepository struct {
	db *DB
}

// NewImageRepository creates a new PostgreSQL image repository.
func NewImageRepository(db *DB) repository.ImageRepository {
	return &imageRepository{db: db}
}

var _ repository.ImageRepository = (*imageRepository)(nil)

const imageColumns = `id, user_id, user_name, user_username, public, image_key, original_file_name, created_at`

// Create inserts a new image record.
func (r *imageRepository) Create(ctx context.Context, img *domain.Image) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO images (user_id, user_name, user_username, public, image_key, original_file_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		img.User.ID,
		img.User.Name,
		img.User.Username,
		img.Public,
		img.Key,
		img.OriginalFileName,
		img.CreatedAt,
	).Scan(&img.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrImageAlreadyExists, "", img.Key)
		}
		return fmt.Errorf("failed to create image: %w", err)
	}

	if img.Likes == nil {
		img.Likes = []int64{}
	}
	return nil
}

// GetByID retrieves an image with its likers.
func (r *imageRepository) GetByID(ctx context.Context, id int64) (*domain.Image, error) {
	return getImage(ctx, r.db.Pool, id)
}

func getImage(ctx context.Context, q Querier, id int64) (*domain.Image, error) {
	img, err := scanImage(q.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	return r.list(ctx, "public", nil, opts)
}

// ListByOwner returns a page of the owner's images, newest first.
func (r *imageRepository) ListByOwner(ctx context.Context, ownerID int64, opts repository.ImageListOptions) ([]*domain.Image, error) {
	return r.list(ctx, "user_id = $1", []any{ownerID}, opts)
}

func (r *imageRepository) list(ctx context.Context, filter string, args []any, opts repository.ImageListOptions) ([]*domain.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE ` + filter
	if opts.Before != nil {
		args = append(args, *opts.Before)
		query += ` AND id < $` + strconv.Itoa(len(args))
	}
	args = append(args, opts.Limit)
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Image, error) {
		return scanImage(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan images: %w", err)
	}

	if err := loadLikes(ctx, r.db.Pool, images); err != nil {
		return nil, err
	}
	return images, nil
}

// Delete removes an image and returns the deleted record.
func (r *imageRepository) Delete(ctx context.Context, id int64) (*domain.Image, error) {
	var deleted *domain.Image

	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		img, err := getImage(ctx, tx, id)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		if tag.RowsAffected() == 0 {
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
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO image_likes (image_id, user_id)
		SELECT $1::bigint, $2::bigint
		WHERE EXISTS (SELECT 1 FROM images WHERE id = $1)
		ON CONFLICT (image_id, user_id) DO NOTHING
	`, imageID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to add like: %w", err)
	}

	return r.GetByID(ctx, imageID)
}

// RemoveLike removes userID from the likers.
func (r *imageRepository) RemoveLike(ctx context.Context, imageID, userID int64) (*domain.Image, error) {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM image_likes WHERE image_id = $1 AND user_id = $2`, imageID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove like: %w", err)
	}

	return r.GetByID(ctx, imageID)
}

func scanImage(row pgx.Row) (*domain.Image, error) {
	img := &domain.Image{Likes: []int64{}}
	err := row.Scan(
		&img.ID,
		&img.User.ID,
		&img.User.Name,
		&img.User.Username,
		&img.Public,
		&img.Key,
		&img.OriginalFileName,
		&img.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// loadLikes fills the likers of every image with a single query.
func loadLikes(ctx context.Context, q Querier, images []*domain.Image) error {
	if len(images) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(images))
	byID := make(map[int64]*domain.Image, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
		byID[img.ID] = img
	}

	rows, err := q.Query(ctx, `
		SELECT image_id, user_id
		FROM image_likes
		WHERE image_id = ANY($1)
		ORDER BY image_id, user_id
	`, ids)
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
