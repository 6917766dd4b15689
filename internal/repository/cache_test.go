package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/photoshare/internal/cache/memory"
	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

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

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, repository.ErrCacheUnavailable
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return repository.ErrCacheUnavailable
}

func (failingCache) Delete(context.Context, string) error {
	return repository.ErrCacheUnavailable
}

func newCached(t *testing.T, inner repository.SessionRepository) repository.SessionRepository {
	t.Helper()
	cache := memory.NewCache(memory.Options{})
	t.Cleanup(cache.Stop)
	return repository.NewCachedSessionRepository(inner, cache, time.Minute, zerolog.Nop())
}

func TestCachedSessionRepository_CachesHits(t *testing.T) {
	inner := new(mockSessionRepository)
	repo := newCached(t, inner)
	ctx := context.Background()

	sid := uuid.New()
	identity := &domain.Identity{User: &domain.User{ID: 7, Name: "Alice", Username: "alice"}, SessionID: sid}
	inner.On("GetIdentity", ctx, sid).Return(identity, nil).Once()

	for i := 0; i < 3; i++ {
		got, err := repo.GetIdentity(ctx, sid)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(7), got.User.ID)
		assert.Equal(t, sid, got.SessionID)
	}

	inner.AssertExpectations(t)
}

func TestCachedSessionRepository_DoesNotCacheMisses(t *testing.T) {
	inner := new(mockSessionRepository)
	repo := newCached(t, inner)
	ctx := context.Background()

	sid := uuid.New()
	inner.On("GetIdentity", ctx, sid).Return(nil, nil).Twice()

	for i := 0; i < 2; i++ {
		got, err := repo.GetIdentity(ctx, sid)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	inner.AssertExpectations(t)
}

func TestCachedSessionRepository_DeleteInvalidates(t *testing.T) {
	inner := new(mockSessionRepository)
	repo := newCached(t, inner)
	ctx := context.Background()

	sid := uuid.New()
	identity := &domain.Identity{User: &domain.User{ID: 7}, SessionID: sid}
	inner.On("GetIdentity", ctx, sid).Return(identity, nil).Once()
	inner.On("Delete", ctx, sid, int64(7)).Return(nil).Once()

	_, err := repo.GetIdentity(ctx, sid)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, sid, 7))

	inner.On("GetIdentity", ctx, sid).Return(nil, nil).Once()
	got, err := repo.GetIdentity(ctx, sid)
	require.NoError(t, err)
	assert.Nil(t, got)

	inner.AssertExpectations(t)
}

func TestCachedSessionRepository_PropagatesStoreErrors(t *testing.T) {
	inner := new(mockSessionRepository)
	repo := newCached(t, inner)
	ctx := context.Background()

	sid := uuid.New()
	storeErr := errors.New("connection reset")
	inner.On("GetIdentity", ctx, sid).Return(nil, storeErr)

	_, err := repo.GetIdentity(ctx, sid)
	assert.ErrorIs(t, err, storeErr)
}

func TestCachedSessionRepository_FallsBackWhenCacheFails(t *testing.T) {
	inner := new(mockSessionRepository)
	repo := repository.NewCachedSessionRepository(inner, failingCache{}, time.Minute, zerolog.Nop())
	ctx := context.Background()

	sid := uuid.New()
	identity := &domain.Identity{User: &domain.User{ID: 1}, SessionID: sid}
	inner.On("GetIdentity", ctx, sid).Return(identity, nil)
	inner.On("Delete", ctx, sid, int64(1)).Return(nil)

	got, err := repo.GetIdentity(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	assert.NoError(t, repo.Delete(ctx, sid, 1))
}
