package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/repository"
)

// newTestDB connects to the database named by PHOTOSHARE_TEST_POSTGRES_DSN,
// applies migrations and truncates all tables.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	dsn := os.Getenv("PHOTOSHARE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PHOTOSHARE_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := &DB{Pool: pool, logger: zerolog.Nop()}
	require.NoError(t, db.Migrate(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE image_likes, images, sessions, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return db
}

func TestPostgres_UserAndSession(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	user := domain.NewUser("Alice", "alice", "hash")
	session := domain.NewSession(0)
	require.NoError(t, repos.User.CreateWithSession(ctx, user, session))
	assert.NotZero(t, user.ID)

	err := repos.User.CreateWithSession(ctx, domain.NewUser("A", "alice", "h"), domain.NewSession(0))
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	identity, err := repos.Session.GetIdentity(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "alice", identity.User.Username)

	missing, err := repos.Session.GetIdentity(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repos.Session.Delete(ctx, session.ID, user.ID))
	identity, err = repos.Session.GetIdentity(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestPostgres_Images(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	user := domain.NewUser("Alice", "alice", "hash")
	require.NoError(t, repos.User.CreateWithSession(ctx, user, domain.NewSession(0)))

	pub := domain.NewImage(user.Owner(), "a.png", "a.png", true)
	priv := domain.NewImage(user.Owner(), "b.png", "b.png", false)
	require.NoError(t, repos.Image.Create(ctx, pub))
	require.NoError(t, repos.Image.Create(ctx, priv))
	assert.Greater(t, priv.ID, pub.ID)

	assert.ErrorIs(t, repos.Image.Create(ctx, domain.NewImage(user.Owner(), "a.png", "x", true)), domain.ErrImageAlreadyExists)

	page, err := repos.Image.ListPublic(ctx, repository.ImageListOptions{Limit: 20})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, pub.ID, page[0].ID)

	page, err = repos.Image.ListByOwner(ctx, user.ID, repository.ImageListOptions{Limit: 30})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, priv.ID, page[0].ID)

	liked, err := repos.Image.AddLike(ctx, pub.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{user.ID}, liked.Likes)
	liked, err = repos.Image.AddLike(ctx, pub.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{user.ID}, liked.Likes)

	_, err = repos.Image.AddLike(ctx, priv.ID+100, user.ID)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	deleted, err := repos.Image.Delete(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.png", deleted.Key)

	_, err = repos.Image.Delete(ctx, pub.ID)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}
