package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viprasethu/backend/internal/config"
)

func TestMemoryStore_PutSignDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("memory://provider-photos")

	require.NoError(t, s.Put(ctx, "originals/p1/a.jpg", strings.NewReader("jpeg-bytes"), 10, "image/jpeg"))

	obj, ok := s.Get("originals/p1/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "jpeg-bytes", string(obj.Data))
	assert.Equal(t, "image/jpeg", obj.ContentType)

	u, err := s.SignedURL(ctx, "originals/p1/a.jpg", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "memory://provider-photos/originals/p1/a.jpg?expires="))

	require.NoError(t, s.Delete(ctx, "originals/p1/a.jpg"))
	assert.Empty(t, s.Keys())
}

func TestMemoryStore_SignMissing(t *testing.T) {
	s := NewMemoryStore("memory://b")
	_, err := s.SignedURL(context.Background(), "nope", time.Minute)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestMemoryStore_FailureHooks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("memory://b")
	boom := errors.New("boom")
	s.FailPut = func(key string) error {
		if strings.HasPrefix(key, "thumbs/") {
			return boom
		}
		return nil
	}

	require.NoError(t, s.Put(ctx, "originals/x.png", strings.NewReader("x"), 1, "image/png"))
	assert.ErrorIs(t, s.Put(ctx, "thumbs/x.webp", strings.NewReader("x"), 1, "image/webp"), boom)
	assert.Equal(t, []string{"originals/x.png"}, s.Keys())

	s.FailDelete = func(string) error { return boom }
	assert.ErrorIs(t, s.Delete(ctx, "originals/x.png"), boom)
	assert.Len(t, s.Keys(), 1)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		useSSL   bool
		endpoint string
		secure   bool
	}{
		{"http://minio:9000", true, "minio:9000", false},
		{"https://s3.example.com", false, "s3.example.com", true},
		{"minio:9000", false, "minio:9000", false},
		{"minio:9000/", true, "minio:9000", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			endpoint, secure := normalizeEndpoint(tt.in, tt.useSSL)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestNew_Drivers(t *testing.T) {
	store, err := New(context.Background(), &config.StorageConfig{Driver: "memory", Bucket: "provider-photos"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = New(context.Background(), &config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), &config.StorageConfig{Driver: "minio"})
	assert.Error(t, err, "minio without endpoint should fail")
}
