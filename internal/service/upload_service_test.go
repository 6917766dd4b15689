package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/photoshare/internal/domain"
)

func newTestUploadService() (*UploadService, *mockImageRepository, *fakeBlobStore) {
	images := new(mockImageRepository)
	blobs := newFakeBlobStore()
	svc := NewUploadService(images, blobs, DefaultUploadServiceConfig(), nil, zerolog.Nop())
	return svc, images, blobs
}

func TestUploadService_RequestUploadSlots(t *testing.T) {
	svc, _, blobs := newTestUploadService()

	slots, err := svc.RequestUploadSlots(context.Background(), testIdentity(1, "alice"),
		[]string{"image/png", "image/jpeg", "image/webp"})
	require.NoError(t, err)
	require.Len(t, slots, 3)

	wantExt := []string{".png", ".jpeg", ".webp"}
	for i, slot := range slots {
		assert.True(t, strings.HasSuffix(slot.ImageKey, wantExt[i]), slot.ImageKey)
		assert.NoError(t, domain.ValidateImageKey(slot.ImageKey))
		assert.Equal(t, "raw/"+slot.ImageKey, slot.Presigned.Fields["key"])
		assert.Equal(t, slot.Presigned.ExpiresAt, slot.ExpiresAt)
		assert.False(t, slot.ExpiresAt.IsZero())
	}
	assert.Equal(t, []string{
		"raw/" + slots[0].ImageKey,
		"raw/" + slots[1].ImageKey,
		"raw/" + slots[2].ImageKey,
	}, blobs.presigned)
	assert.NotEqual(t, slots[0].ImageKey, slots[1].ImageKey)
}

func TestUploadService_RequestUploadSlotsValidation(t *testing.T) {
	tests := []struct {
		name         string
		identity     *domain.Identity
		contentTypes []string
		wantErr      error
	}{
		{"anonymous", nil, []string{"image/png"}, domain.ErrAuthenticationRequired},
		{"empty", testIdentity(1, "alice"), nil, domain.ErrNoContentTypes},
		{"too many", testIdentity(1, "alice"), []string{"image/png", "image/png", "image/png", "image/png", "image/png", "image/png"}, domain.ErrTooManyFiles},
		{"not an image", testIdentity(1, "alice"), []string{"image/png", "application/pdf"}, domain.ErrInvalidContentType},
		{"unknown image type", testIdentity(1, "alice"), []string{"image/x-unknown"}, domain.ErrInvalidContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, blobs := newTestUploadService()

			slots, err := svc.RequestUploadSlots(context.Background(), tt.identity, tt.contentTypes)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, slots)
			assert.Empty(t, blobs.presigned)
		})
	}
}

func TestUploadService_RequestUploadSlotsPresignFailure(t *testing.T) {
	svc, _, blobs := newTestUploadService()
	blobs.presignErr = errors.New("no credentials")

	_, err := svc.RequestUploadSlots(context.Background(), testIdentity(1, "alice"), []string{"image/gif"})
	assert.ErrorIs(t, err, ErrInternalError)
	assert.False(t, domain.IsDomainError(err))
}

func TestUploadService_ConfirmUpload(t *testing.T) {
	svc, images, _ := newTestUploadService()
	identity := testIdentity(3, "alice")

	var nextID atomic.Int64
	images.On("Create", mock.Anything, mock.MatchedBy(func(img *domain.Image) bool { return img.Key == "dup.png" })).
		Return(domain.NewDomainError(domain.ErrImageAlreadyExists, "", "dup.png"))
	images.On("Create", mock.Anything, mock.MatchedBy(func(img *domain.Image) bool { return img.Key == "broken.png" })).
		Return(errors.New("connection refused"))
	images.On("Create", mock.Anything, mock.AnythingOfType("*domain.Image")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Image).ID = nextID.Add(1)
		}).
		Return(nil)

	results, err := svc.ConfirmUpload(context.Background(), identity, ConfirmUploadInput{
		Items: []ConfirmItem{
			{ImageKey: "a.png", OriginalName: "a.png"},
			{ImageKey: "dup.png", OriginalName: "dup.png"},
			{ImageKey: "../escape.png", OriginalName: "x.png"},
			{ImageKey: "", OriginalName: "empty.png"},
			{ImageKey: "broken.png", OriginalName: "broken.png"},
		},
		Public: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, "a.png", results[0].ImageKey)
	require.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Image)
	assert.True(t, results[0].Image.Public)
	assert.Equal(t, int64(3), results[0].Image.User.ID)
	assert.Equal(t, "alice", results[0].Image.User.Username)
	assert.Equal(t, "a.png", results[0].Image.OriginalFileName)
	assert.Empty(t, results[0].Image.Likes)

	assert.ErrorIs(t, results[1].Err, domain.ErrConflict)
	assert.Nil(t, results[1].Image)

	assert.ErrorIs(t, results[2].Err, domain.ErrInvalidImageKey)
	assert.ErrorIs(t, results[3].Err, domain.ErrValidation)

	assert.ErrorIs(t, results[4].Err, ErrInternalError)
	assert.Nil(t, results[4].Image)
}

func TestUploadService_ConfirmUploadValidation(t *testing.T) {
	svc, images, _ := newTestUploadService()

	_, err := svc.ConfirmUpload(context.Background(), nil, ConfirmUploadInput{Items: []ConfirmItem{{ImageKey: "a.png"}}})
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	_, err = svc.ConfirmUpload(context.Background(), testIdentity(1, "alice"), ConfirmUploadInput{})
	assert.ErrorIs(t, err, domain.ErrNoImages)

	items := make([]ConfirmItem, 6)
	for i := range items {
		items[i] = ConfirmItem{ImageKey: "k.png"}
	}
	_, err = svc.ConfirmUpload(context.Background(), testIdentity(1, "alice"), ConfirmUploadInput{Items: items})
	assert.ErrorIs(t, err, domain.ErrTooManyFiles)

	images.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUploadService_ConfirmUploadPrivate(t *testing.T) {
	svc, images, _ := newTestUploadService()
	images.On("Create", mock.Anything, mock.MatchedBy(func(img *domain.Image) bool { return !img.Public })).Return(nil)

	results, err := svc.ConfirmUpload(context.Background(), testIdentity(1, "alice"), ConfirmUploadInput{
		Items: []ConfirmItem{{ImageKey: "p.jpg", OriginalName: "p.jpg"}},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.False(t, results[0].Image.Public)
	images.AssertExpectations(t)
}
