package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_Keys(t *testing.T) {
	img := NewImage(Owner{ID: 1}, "abc.png", "cat.png", true)

	assert.Equal(t, "raw/abc.png", img.RawKey())
	assert.Equal(t, []string{"w140/abc.png", "w600/abc.png"}, img.ThumbnailKeys())
	assert.Equal(t, "w140/abc.png", ThumbnailKey(140, "abc.png"))
}

func TestImage_Visibility(t *testing.T) {
	owner := &User{ID: 1}
	other := &User{ID: 2}

	public := NewImage(owner.Owner(), "a.png", "a.png", true)
	private := NewImage(owner.Owner(), "b.png", "b.png", false)

	assert.True(t, public.CanBeViewedBy(nil))
	assert.True(t, public.CanBeViewedBy(other))
	assert.False(t, private.CanBeViewedBy(nil))
	assert.False(t, private.CanBeViewedBy(other))
	assert.True(t, private.CanBeViewedBy(owner))
}

func TestImage_LikedBy(t *testing.T) {
	img := &Image{Likes: []int64{3, 5}}
	assert.True(t, img.LikedBy(5))
	assert.False(t, img.LikedBy(4))
}

func TestImage_MarshalJSON(t *testing.T) {
	img := Image{
		ID:               9,
		User:             Owner{ID: 1, Name: "Alice", Username: "alice"},
		Public:           true,
		Key:              "k.png",
		OriginalFileName: "cat.png",
	}

	data, err := json.Marshal(img)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, float64(9), decoded["id"])
	assert.Equal(t, "k.png", decoded["key"])
	assert.Equal(t, "cat.png", decoded["originalFileName"])
	assert.Equal(t, []any{}, decoded["likes"])
	assert.Equal(t, []any{"w140/k.png", "w600/k.png"}, decoded["thumbnails"])
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Alice", "username": "alice"}, decoded["user"])

	// Pointers serialize the same way.
	viaPtr, err := json.Marshal(&img)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(viaPtr))
}

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	data, err := json.Marshal(NewUser("Alice", "alice", "secret-hash"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
}

func TestValidateImageKey(t *testing.T) {
	assert.NoError(t, ValidateImageKey("0b6f5a3e.png"))

	for _, key := range []string{"", "../x.png", "raw/x.png", `a\b.png`, ".hidden"} {
		err := ValidateImageKey(key)
		assert.ErrorIs(t, err, ErrInvalidImageKey, key)
		assert.ErrorIs(t, err, ErrValidation, key)
	}
}

func TestParseImageID(t *testing.T) {
	id, err := ParseImageID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "abc", "-1", "0", "1.5"} {
		_, err := ParseImageID(s)
		assert.ErrorIs(t, err, ErrInvalidImageID, s)
		assert.ErrorIs(t, err, ErrValidation, s)
	}
}

func TestParseCursor(t *testing.T) {
	cursor, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	cursor, err = ParseCursor("17")
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, int64(17), *cursor)

	_, err = ParseCursor("nope")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrUserNotFound, ErrNotFound},
		{ErrImageNotFound, ErrNotFound},
		{ErrUserAlreadyExists, ErrConflict},
		{ErrImageAlreadyExists, ErrConflict},
		{ErrInvalidCredentials, ErrUnauthorized},
		{ErrImageAccessDenied, ErrUnauthorized},
		{ErrAuthenticationRequired, ErrUnauthorized},
		{ErrPasswordTooShort, ErrValidation},
		{ErrInvalidContentType, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.True(t, IsDomainError(tt.err))

			wrapped := NewDomainError(tt.err, "context", "res")
			assert.ErrorIs(t, wrapped, tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}

	assert.False(t, IsDomainError(errors.New("disk full")))
}

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "image not found: gone (7)", NewDomainError(ErrImageNotFound, "gone", "7").Error())
	assert.Equal(t, "image not found: 7", NewDomainError(ErrImageNotFound, "", "7").Error())
	assert.Equal(t, "image not found: gone", NewDomainError(ErrImageNotFound, "gone", "").Error())
	assert.Equal(t, "image not found", NewDomainError(ErrImageNotFound, "", "").Error())
}
