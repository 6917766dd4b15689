package s3

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/photoshare/internal/config"
	"github.com/prn-tf/photoshare/internal/storage"
)

func newTestStore(t *testing.T, endpoint string) *Store {
	t.Helper()
	store, err := New(context.Background(), config.S3StorageConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "photos",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		UsePathStyle:    true,
	}, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestStore_PresignUpload(t *testing.T) {
	store := newTestStore(t, "http://localhost:9000")

	before := time.Now()
	upload, err := store.PresignUpload(context.Background(), "raw/a.png", storage.UploadPolicy{
		Expiry:            5 * time.Minute,
		MaxSize:           50 << 20,
		ContentTypePrefix: "image/",
	})
	require.NoError(t, err)

	assert.Contains(t, upload.URL, "localhost:9000")
	assert.Contains(t, upload.URL, "photos")
	assert.Equal(t, "raw/a.png", upload.Fields["key"])
	assert.WithinDuration(t, before.Add(5*time.Minute), upload.ExpiresAt, 5*time.Second)

	policy, err := base64.StdEncoding.DecodeString(upload.Fields["policy"])
	require.NoError(t, err)
	assert.Contains(t, string(policy), "content-length-range")
	assert.Contains(t, string(policy), "$Content-Type")
	assert.Contains(t, string(policy), "image/")
}

func TestStore_Delete(t *testing.T) {
	var mu sync.Mutex
	var gotMethod, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotMethod, gotPath = r.Method, r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL)
	require.NoError(t, store.Delete(context.Background(), "w140/a.png"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/photos/w140/a.png", gotPath)
}

func TestStore_DeleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL)
	err := store.Delete(context.Background(), "raw/a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw/a.png")
}
