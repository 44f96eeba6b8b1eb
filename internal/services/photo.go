package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/photo"
	"github.com/viprasethu/backend/internal/storage"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
)

const DefaultSignedURLTTL = 900 * time.Second

// UploadedPhoto describes the two objects written for one upload.
type UploadedPhoto struct {
	OriginalPath  string
	ThumbnailPath string
	MimeType      string
	SizeBytes     int64
}

// Keys returns both object keys.
func (u *UploadedPhoto) Keys() []string {
	if u == nil {
		return nil
	}
	return []string{u.OriginalPath, u.ThumbnailPath}
}

// PhotoService is the only holder of the object store. Handlers get signed
// URLs from it and never see store credentials.
type PhotoService struct {
	store   storage.ObjectStore
	queue   TaskQueue
	upload  config.UploadConfig
	ttl     time.Duration
	metrics *Metrics
}

func NewPhotoService(store storage.ObjectStore, uploadCfg config.UploadConfig, ttlSeconds int, metrics *Metrics) *PhotoService {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	if uploadCfg.MaxBytes <= 0 {
		uploadCfg.MaxBytes = photo.DefaultMaxBytes
	}
	if uploadCfg.ThumbSize <= 0 {
		uploadCfg.ThumbSize = photo.DefaultThumbSize
	}
	if uploadCfg.ThumbQuality <= 0 {
		uploadCfg.ThumbQuality = photo.DefaultThumbQuality
	}
	return &PhotoService{store: store, upload: uploadCfg, ttl: ttl, metrics: metrics}
}

// SetQueue wires the queue used for orphan cleanup. The queue's processor
// usually calls back into DeleteObjects, hence the two-step setup.
func (s *PhotoService) SetQueue(q TaskQueue) {
	s.queue = q
}

// ValidateUpload reports whether f is acceptable without touching storage.
func (s *PhotoService) ValidateUpload(f *photo.File) error {
	if err := photo.Validate(f, s.upload.MaxBytes); err != nil {
		return response.NewBadRequest(err.Error())
	}
	return nil
}

// UploadProviderPhoto validates f, stores it unmodified and stores a WebP
// thumbnail next to it. When the thumbnail cannot be stored the original is
// scheduled for deletion and an error is returned.
func (s *PhotoService) UploadProviderPhoto(ctx context.Context, f *photo.File, ownerID string) (*UploadedPhoto, error) {
	if err := s.ValidateUpload(f); err != nil {
		s.metrics.ObservePhotoUpload("invalid", 0)
		return nil, err
	}

	thumb, err := photo.Thumbnail(f.Data, s.upload.ThumbSize, s.upload.ThumbQuality)
	if err != nil {
		s.metrics.ObservePhotoUpload("invalid", 0)
		if errors.Is(err, photo.ErrUndecodable) {
			return nil, response.NewBadRequest(photo.ErrUndecodable.Error())
		}
		return nil, fmt.Errorf("thumbnail: %w", err)
	}

	paths := photo.NewPaths(ownerID, photo.Extension(f))
	mime := photo.DetectMIME(f)

	if err := s.store.Put(ctx, paths.Original, bytes.NewReader(f.Data), f.Size(), mime); err != nil {
		s.metrics.ObservePhotoUpload("error", 0)
		return nil, fmt.Errorf("upload original: %w", err)
	}

	if err := s.store.Put(ctx, paths.Thumbnail, bytes.NewReader(thumb), int64(len(thumb)), photo.ThumbnailMIME); err != nil {
		s.metrics.ObservePhotoUpload("error", 0)
		s.Cleanup(ctx, ownerID, "thumbnail upload failed", paths.Original)
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}

	s.metrics.ObservePhotoUpload("ok", f.Size())
	return &UploadedPhoto{
		OriginalPath:  paths.Original,
		ThumbnailPath: paths.Thumbnail,
		MimeType:      mime,
		SizeBytes:     f.Size(),
	}, nil
}

// Cleanup schedules deletion of keys. If the queue refuses the task the
// objects are deleted inline. Cancellation of ctx is ignored: a request
// that ended early still has its objects removed.
func (s *PhotoService) Cleanup(ctx context.Context, ownerID, reason string, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	task := &PhotoCleanupTask{Keys: keys, ProviderID: ownerID, Reason: reason}

	if s.queue != nil {
		err := s.queue.Enqueue(ctx, task)
		if err == nil {
			return
		}
		logger.Warn().Err(err).Strs("keys", keys).Msg("cleanup enqueue failed, deleting inline")
	}
	if err := s.DeleteObjects(ctx, task); err != nil {
		logger.Error().Err(err).Strs("keys", keys).Msg("photo cleanup failed")
	}
}

// DeleteObjects is the photo:cleanup processor. Every key is attempted; the
// joined error makes the queue retry.
func (s *PhotoService) DeleteObjects(ctx context.Context, task *PhotoCleanupTask) error {
	var errs []error
	for _, key := range task.Keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.metrics.ObserveCleanup("error")
		return err
	}
	s.metrics.ObserveCleanup("ok")
	return nil
}

// DeleteProviderPhoto removes one stored object.
func (s *PhotoService) DeleteProviderPhoto(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	return s.store.Delete(ctx, path)
}

// SignedPhotoURL returns a time-limited read URL for a stored object. A
// non-positive ttl uses the configured default.
func (s *PhotoService) SignedPhotoURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.store.SignedURL(ctx, path, ttl)
}

// ResolveURL turns a stored photo reference into something a browser can
// load. Absolute http(s) URLs are returned unchanged; anything else is
// treated as a storage path and signed. Signing failures yield "".
func (s *PhotoService) ResolveURL(ctx context.Context, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if IsAbsoluteURL(ref) {
		return ref
	}

	signed, err := s.SignedPhotoURL(ctx, strings.TrimPrefix(ref, "/"), 0)
	if err != nil {
		logger.Warn().Err(err).Str("path", ref).Msg("failed to sign photo url")
		return ""
	}
	return signed
}

func IsAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ProviderPhotoURLs returns signed URLs for a provider's photo. A primary
// photo row wins; otherwise the legacy photo_url field is resolved and used
// for both.
func (s *PhotoService) ProviderPhotoURLs(ctx context.Context, p *models.Provider, primary *models.ProviderPhoto) (original, thumbnail string) {
	if primary != nil {
		return s.ResolveURL(ctx, primary.OriginalPath), s.ResolveURL(ctx, primary.ThumbnailPath)
	}
	legacy := s.ResolveURL(ctx, p.PhotoURL)
	return legacy, legacy
}
