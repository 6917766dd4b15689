package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Blob key namespaces. Raw uploads land under RawPrefix; the resizing
// function writes one object per thumbnail width under the fixed-width
// prefixes.
const (
	RawPrefix = "raw/"
)

// ThumbnailWidths lists the thumbnail variants produced for every raw upload.
var ThumbnailWidths = []int{140, 600}

// Owner is the upload-time snapshot of the user who owns an image.
// It is copied into the image record and never follows later profile changes.
type Owner struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Image represents an uploaded picture and its catalog metadata.
type Image struct {
	// ID is the monotonically increasing identifier, also used as the page cursor.
	ID int64 `json:"id"`

	// User is the owner snapshot taken at upload time.
	User Owner `json:"user"`

	// Public marks the image as visible in the public feed.
	Public bool `json:"public"`

	// Key is the image key (<uuid>.<ext>); the raw blob lives at RawPrefix+Key.
	Key string `json:"key"`

	// OriginalFileName is the client-side file name.
	OriginalFileName string `json:"originalFileName"`

	// Likes is the set of user IDs that liked the image, in ascending order.
	Likes []int64 `json:"likes"`

	// CreatedAt is when the image record was created.
	CreatedAt time.Time `json:"createdAt"`
}

// NewImage creates an image record owned by the given user snapshot.
func NewImage(owner Owner, key, originalFileName string, public bool) *Image {
	return &Image{
		User:             owner,
		Public:           public,
		Key:              key,
		OriginalFileName: originalFileName,
		Likes:            []int64{},
		CreatedAt:        time.Now().UTC(),
	}
}

// IsOwnedBy reports whether userID owns the image.
func (i *Image) IsOwnedBy(userID int64) bool {
	return i.User.ID == userID
}

// CanBeViewedBy reports whether the given viewer may read the image.
// A nil viewer is an anonymous request.
func (i *Image) CanBeViewedBy(viewer *User) bool {
	if i.Public {
		return true
	}
	return viewer != nil && i.IsOwnedBy(viewer.ID)
}

// LikedBy reports whether userID is in the likers set.
func (i *Image) LikedBy(userID int64) bool {
	for _, id := range i.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// RawKey returns the blob key of the original upload.
func (i *Image) RawKey() string {
	return RawKey(i.Key)
}

// ThumbnailKeys returns the derived thumbnail blob keys, smallest first.
func (i *Image) ThumbnailKeys() []string {
	return ThumbnailKeys(i.Key)
}

// RawKey returns the blob key under the raw ingest namespace for an image key.
func RawKey(imageKey string) string {
	return RawPrefix + imageKey
}

// ThumbnailKey returns the blob key of the thumbnail with the given width.
// Example: width 140, key "a.png" -> "w140/a.png".
func ThumbnailKey(width int, imageKey string) string {
	return "w" + strconv.Itoa(width) + "/" + imageKey
}

// ThumbnailKeys returns all derived thumbnail keys for an image key.
func ThumbnailKeys(imageKey string) []string {
	keys := make([]string, 0, len(ThumbnailWidths))
	for _, w := range ThumbnailWidths {
		keys = append(keys, ThumbnailKey(w, imageKey))
	}
	return keys
}

// ValidateImageKey checks that an image key is a plain file name that cannot
// escape the raw namespace.
func ValidateImageKey(key string) error {
	if key == "" {
		return NewDomainError(ErrInvalidImageKey, "image key is required", "")
	}
	if len(key) > MaxImageKeyLength {
		return NewDomainError(ErrInvalidImageKey, "image key is too long", key)
	}
	if strings.ContainsAny(key, "/\\") || strings.HasPrefix(key, ".") {
		return NewDomainError(ErrInvalidImageKey, "image key must be a plain file name", key)
	}
	return nil
}

// MaxImageKeyLength bounds image keys well below the S3 object key limit.
const MaxImageKeyLength = 255

// ParseImageID parses an image identifier from its wire form.
// Identifiers are positive decimal integers.
func ParseImageID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewDomainError(ErrInvalidImageID, "", s)
	}
	return id, nil
}

// ParseCursor parses an optional pagination cursor. An empty string means
// "first page" and yields nil.
func ParseCursor(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, NewDomainError(ErrInvalidCursor, "", s)
	}
	return &id, nil
}

// MarshalJSON serializes the image together with its derived thumbnail keys.
func (i Image) MarshalJSON() ([]byte, error) {
	type plain Image
	likes := i.Likes
	if likes == nil {
		likes = []int64{}
	}
	p := plain(i)
	p.Likes = likes
	return json.Marshal(struct {
		plain
		Thumbnails []string `json:"thumbnails"`
	}{
		plain:      p,
		Thumbnails: ThumbnailKeys(i.Key),
	})
}
