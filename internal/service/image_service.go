package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/metrics"
	"github.com/prn-tf/photoshare/internal/repository"
	"github.com/prn-tf/photoshare/internal/storage"
)

// Page sizes for the image feeds.
const (
	PublicPageSize = 20
	OwnerPageSize  = 30
)

// DefaultBlobDeleteTimeout bounds blob cleanup after an image is deleted.
const DefaultBlobDeleteTimeout = 10 * time.Second

// ImageServiceConfig contains tunables for ImageService.
type ImageServiceConfig struct {
	// BlobDeleteTimeout bounds the best-effort blob cleanup. It is detached
	// from the request context so a client disconnect does not abort it.
	BlobDeleteTimeout time.Duration
}

// ImageService handles the image catalog: feeds, lookup, deletion and likes.
type ImageService struct {
	imageRepo repository.ImageRepository
	blobs     storage.BlobStore
	config    ImageServiceConfig
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewImageService creates a new ImageService. m may be nil.
func NewImageService(
	imageRepo repository.ImageRepository,
	blobs storage.BlobStore,
	config ImageServiceConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ImageService {
	if config.BlobDeleteTimeout <= 0 {
		config.BlobDeleteTimeout = DefaultBlobDeleteTimeout
	}
	return &ImageService{
		imageRepo: imageRepo,
		blobs:     blobs,
		config:    config,
		metrics:   m,
		logger:    logger.With().Str("service", "image").Logger(),
	}
}

// ListPublic returns up to PublicPageSize public images with id below lastID,
// newest first. An empty lastID starts from the newest image.
func (s *ImageService) ListPublic(ctx context.Context, lastID string) ([]*domain.Image, error) {
	cursor, err := domain.ParseCursor(lastID)
	if err != nil {
		return nil, err
	}

	images, err := s.imageRepo.ListPublic(ctx, repository.ImageListOptions{
		Before: cursor,
		Limit:  PublicPageSize,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list public images")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return images, nil
}

// ListOwnedBy returns up to OwnerPageSize of the requester's own images of any
// visibility with id below lastID, newest first.
func (s *ImageService) ListOwnedBy(ctx context.Context, identity *domain.Identity, lastID string) ([]*domain.Image, error) {
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	cursor, err := domain.ParseCursor(lastID)
	if err != nil {
		return nil, err
	}

	images, err := s.imageRepo.ListByOwner(ctx, identity.User.ID, repository.ImageListOptions{
		Before: cursor,
		Limit:  OwnerPageSize,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", identity.User.ID).Msg("failed to list user images")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return images, nil
}

// GetByID returns one image. Private images are only visible to their owner.
// viewer is nil for anonymous requests.
func (s *ImageService) GetByID(ctx context.Context, viewer *domain.Identity, imageID string) (*domain.Image, error) {
	id, err := domain.ParseImageID(imageID)
	if err != nil {
		return nil, err
	}

	img, err := s.imageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			return nil, domain.NewDomainError(domain.ErrImageNotFound, "", imageID)
		}
		s.logger.Error().Err(err).Int64("image_id", id).Msg("failed to get image")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	var user *domain.User
	if viewer != nil {
		user = viewer.User
	}
	if !img.CanBeViewedBy(user) {
		return nil, domain.ErrImageAccessDenied
	}

	return img, nil
}

// DeleteOutput is the result of DeleteByID.
type DeleteOutput struct {
	// Image is the deleted record; nil when it was already gone.
	Image *domain.Image

	// AlreadyDeleted reports that no record existed.
	AlreadyDeleted bool
}

// DeleteByID removes one of the requester's images and then deletes its raw
// blob and thumbnails. Blob failures are logged and counted but never
// reported to the caller; the record is already gone at that point.
func (s *ImageService) DeleteByID(ctx context.Context, identity *domain.Identity, imageID string) (*DeleteOutput, error) {
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	id, err := domain.ParseImageID(imageID)
	if err != nil {
		return nil, err
	}

	img, err := s.imageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			return &DeleteOutput{AlreadyDeleted: true}, nil
		}
		s.logger.Error().Err(err).Int64("image_id", id).Msg("failed to get image")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !img.IsOwnedBy(identity.User.ID) {
		return nil, domain.NewDomainError(domain.ErrImageAccessDenied, "only the owner can delete an image", imageID)
	}

	deleted, err := s.imageRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			// Lost a race with a concurrent delete.
			return &DeleteOutput{AlreadyDeleted: true}, nil
		}
		s.logger.Error().Err(err).Int64("image_id", id).Msg("failed to delete image")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.RecordImageDeleted()
	s.logger.Info().
		Int64("image_id", deleted.ID).
		Int64("user_id", identity.User.ID).
		Str("key", deleted.Key).
		Msg("image deleted")

	s.deleteBlobs(ctx, deleted.Key)

	return &DeleteOutput{Image: deleted}, nil
}

// deleteBlobs removes the raw upload and every thumbnail of imageKey.
func (s *ImageService) deleteBlobs(ctx context.Context, imageKey string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.BlobDeleteTimeout)
	defer cancel()

	for _, key := range storage.ObjectKeys(imageKey) {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.metrics.RecordBlobDeleteFailure()
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete blob")
		}
	}
}

// Like adds the requester to the image's likers. It returns the updated
// image, or nil without error if the image does not exist.
func (s *ImageService) Like(ctx context.Context, identity *domain.Identity, imageID string) (*domain.Image, error) {
	return s.toggleLike(ctx, identity, imageID, "like", s.imageRepo.AddLike)
}

// Unlike removes the requester from the image's likers. It returns the
// updated image, or nil without error if the image does not exist.
func (s *ImageService) Unlike(ctx context.Context, identity *domain.Identity, imageID string) (*domain.Image, error) {
	return s.toggleLike(ctx, identity, imageID, "unlike", s.imageRepo.RemoveLike)
}

func (s *ImageService) toggleLike(
	ctx context.Context,
	identity *domain.Identity,
	imageID string,
	action string,
	apply func(ctx context.Context, imageID, userID int64) (*domain.Image, error),
) (*domain.Image, error) {
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	id, err := domain.ParseImageID(imageID)
	if err != nil {
		return nil, err
	}

	img, err := apply(ctx, id, identity.User.ID)
	if err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			return nil, nil
		}
		s.logger.Error().Err(err).Int64("image_id", id).Str("action", action).Msg("failed to update likes")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.RecordLike(action)
	return img, nil
}
