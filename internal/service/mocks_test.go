package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/pkg/crypto"
	"github.com/prn-tf/photoshare/internal/repository"
	"github.com/prn-tf/photoshare/internal/storage"
)

// =============================================================================
// Repository mocks
// =============================================================================

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) CreateWithSession(ctx context.Context, user *domain.User, session *domain.Session) error {
	args := m.Called(ctx, user, session)
	if args.Error(0) == nil {
		user.ID = 1
		session.UserID = user.ID
	}
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) GetIdentity(ctx context.Context, sessionID uuid.UUID) (*domain.Identity, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockSessionRepository) Delete(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

type mockImageRepository struct {
	mock.Mock
}

func (m *mockImageRepository) Create(ctx context.Context, img *domain.Image) error {
	args := m.Called(ctx, img)
	return args.Error(0)
}

func (m *mockImageRepository) GetByID(ctx context.Context, id int64) (*domain.Image, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

func (m *mockImageRepository) ListPublic(ctx context.Context, opts repository.ImageListOptions) ([]*domain.Image, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

func (m *mockImageRepository) ListByOwner(ctx context.Context, ownerID int64, opts repository.ImageListOptions) ([]*domain.Image, error) {
	args := m.Called(ctx, ownerID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

func (m *mockImageRepository) Delete(ctx context.Context, id int64) (*domain.Image, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

func (m *mockImageRepository) AddLike(ctx context.Context, imageID, userID int64) (*domain.Image, error) {
	args := m.Called(ctx, imageID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

func (m *mockImageRepository) RemoveLike(ctx context.Context, imageID, userID int64) (*domain.Image, error) {
	args := m.Called(ctx, imageID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

// =============================================================================
// Blob store fake
// =============================================================================

// fakeBlobStore records presign and delete calls.
type fakeBlobStore struct {
	mu         sync.Mutex
	presigned  []string
	deleted    []string
	failDelete map[string]bool
	presignErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{failDelete: make(map[string]bool)}
}

func (f *fakeBlobStore) PresignUpload(ctx context.Context, key string, policy storage.UploadPolicy) (*storage.PresignedUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	f.presigned = append(f.presigned, key)
	return &storage.PresignedUpload{
		URL:       "https://blobs.example.com/photos",
		Fields:    map[string]string{"key": key},
		ExpiresAt: time.Now().Add(policy.Expiry),
	}, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[key] {
		return errors.New("blob store unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func testHasher() *crypto.PasswordHasher {
	return crypto.NewPasswordHasher(bcrypt.MinCost)
}

func testIdentity(id int64, username string) *domain.Identity {
	return &domain.Identity{
		User:      &domain.User{ID: id, Name: "Name " + username, Username: username},
		SessionID: uuid.New(),
	}
}
