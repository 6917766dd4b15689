package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/metrics"
	"github.com/prn-tf/photoshare/internal/repository"
	"github.com/prn-tf/photoshare/internal/storage"
)

// UploadServiceConfig contains the upload policy.
type UploadServiceConfig struct {
	Policy storage.UploadPolicy

	// MaxFiles is the most slots or confirmations accepted per request.
	MaxFiles int

	// ConfirmConcurrency bounds the number of records created in parallel.
	ConfirmConcurrency int
}

// DefaultUploadServiceConfig returns the default upload policy:
// 5 minute authorizations, 0..50MB bodies, image/* content and 5 files per batch.
func DefaultUploadServiceConfig() UploadServiceConfig {
	return UploadServiceConfig{
		Policy: storage.UploadPolicy{
			Expiry:            5 * time.Minute,
			MaxSize:           50 << 20,
			ContentTypePrefix: "image/",
		},
		MaxFiles:           5,
		ConfirmConcurrency: 4,
	}
}

// UploadService issues presigned upload slots and records uploaded images.
// Image bytes never pass through this service.
type UploadService struct {
	imageRepo repository.ImageRepository
	blobs     storage.BlobStore
	config    UploadServiceConfig
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewUploadService creates a new UploadService. m may be nil.
func NewUploadService(
	imageRepo repository.ImageRepository,
	blobs storage.BlobStore,
	config UploadServiceConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *UploadService {
	if config.ConfirmConcurrency < 1 {
		config.ConfirmConcurrency = 1
	}
	return &UploadService{
		imageRepo: imageRepo,
		blobs:     blobs,
		config:    config,
		metrics:   m,
		logger:    logger.With().Str("service", "upload").Logger(),
	}
}

// UploadSlot is one presigned upload authorization.
type UploadSlot struct {
	ImageKey  string
	Presigned *storage.PresignedUpload
	ExpiresAt time.Time
}

// RequestUploadSlots issues one presigned upload per content type, in the
// same order. Every content type must be a known image type; otherwise no
// slot is issued.
func (s *UploadService) RequestUploadSlots(ctx context.Context, identity *domain.Identity, contentTypes []string) ([]*UploadSlot, error) {
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if len(contentTypes) == 0 {
		return nil, domain.ErrNoContentTypes
	}
	if len(contentTypes) > s.config.MaxFiles {
		return nil, domain.NewDomainError(domain.ErrTooManyFiles, fmt.Sprintf("at most %d files", s.config.MaxFiles), "")
	}

	exts := make([]string, len(contentTypes))
	for i, ct := range contentTypes {
		ext, ok := storage.ExtensionForContentType(ct)
		if !ok {
			return nil, domain.NewDomainError(domain.ErrInvalidContentType, "", ct)
		}
		exts[i] = ext
	}

	slots := make([]*UploadSlot, 0, len(exts))
	for _, ext := range exts {
		imageKey := storage.NewImageKey(ext)

		presigned, err := s.blobs.PresignUpload(ctx, domain.RawKey(imageKey), s.config.Policy)
		if err != nil {
			s.logger.Error().Err(err).Str("key", imageKey).Msg("failed to presign upload")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		slots = append(slots, &UploadSlot{
			ImageKey:  imageKey,
			Presigned: presigned,
			ExpiresAt: presigned.ExpiresAt,
		})
	}

	s.metrics.RecordUploadSlots(len(slots))
	s.logger.Debug().
		Int64("user_id", identity.User.ID).
		Int("count", len(slots)).
		Msg("upload slots issued")

	return slots, nil
}

// ConfirmItem identifies one uploaded blob.
type ConfirmItem struct {
	ImageKey     string
	OriginalName string
}

// ConfirmUploadInput contains the images to record.
type ConfirmUploadInput struct {
	Items  []ConfirmItem
	Public bool
}

// ConfirmResult is the outcome for one item. Exactly one of Image and Err is set.
type ConfirmResult struct {
	ImageKey string
	Image    *domain.Image
	Err      error
}

// ConfirmUpload records an image per item, concurrently and independently:
// a failed item never undoes the others. Results are in request order.
func (s *UploadService) ConfirmUpload(ctx context.Context, identity *domain.Identity, input ConfirmUploadInput) ([]ConfirmResult, error) {
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if len(input.Items) == 0 {
		return nil, domain.ErrNoImages
	}
	if len(input.Items) > s.config.MaxFiles {
		return nil, domain.NewDomainError(domain.ErrTooManyFiles, fmt.Sprintf("at most %d files", s.config.MaxFiles), "")
	}

	owner := identity.User.Owner()
	results := make([]ConfirmResult, len(input.Items))

	var g errgroup.Group
	g.SetLimit(s.config.ConfirmConcurrency)

	for i, item := range input.Items {
		g.Go(func() error {
			results[i] = s.confirmOne(ctx, owner, item, input.Public)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *UploadService) confirmOne(ctx context.Context, owner domain.Owner, item ConfirmItem, public bool) ConfirmResult {
	result := ConfirmResult{ImageKey: item.ImageKey}

	if err := domain.ValidateImageKey(item.ImageKey); err != nil {
		result.Err = err
		return result
	}

	img := domain.NewImage(owner, item.ImageKey, item.OriginalName, public)
	if err := s.imageRepo.Create(ctx, img); err != nil {
		if errors.Is(err, domain.ErrImageAlreadyExists) {
			result.Err = err
			return result
		}
		s.logger.Error().Err(err).Str("key", item.ImageKey).Msg("failed to create image")
		result.Err = fmt.Errorf("%w: %v", ErrInternalError, err)
		return result
	}

	s.metrics.RecordImageCreated(public)
	s.logger.Info().
		Int64("image_id", img.ID).
		Int64("user_id", owner.ID).
		Str("key", img.Key).
		Bool("public", public).
		Msg("image created")

	result.Image = img
	return result
}
