// Package storage defines the blob store used for image uploads.
// Clients upload bytes directly to the store with presigned POST policies;
// the server never proxies image data.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound indicates the key does not exist in the store.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the object storage backend.
//
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// PresignUpload returns a time-limited authorization for the client to
	// upload one object directly at key, constrained by policy.
	PresignUpload(ctx context.Context, key string, policy UploadPolicy) (*PresignedUpload, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// UploadPolicy constrains what a presigned upload accepts.
type UploadPolicy struct {
	// Expiry is how long the authorization remains valid.
	Expiry time.Duration

	// MaxSize is the largest accepted body in bytes. The minimum is always 0.
	MaxSize int64

	// ContentTypePrefix is the required prefix of the Content-Type form field.
	ContentTypePrefix string
}

// PresignedUpload is a browser-compatible POST form authorization.
type PresignedUpload struct {
	// URL is the form action.
	URL string `json:"url"`

	// Fields are the form fields the client must send alongside the file.
	Fields map[string]string `json:"fields"`

	// ExpiresAt is when the authorization stops being accepted.
	ExpiresAt time.Time `json:"-"`
}
