package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/photo"
	"github.com/viprasethu/backend/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// photoFixture wires a PhotoService to an in-memory store and a synchronous
// cleanup queue.
type photoFixture struct {
	svc   *PhotoService
	store *storage.MemoryStore
	queue *SyncQueue
}

func newPhotoFixture(t *testing.T) *photoFixture {
	t.Helper()

	store := storage.NewMemoryStore("https://storage.test/provider-photos")
	svc := NewPhotoService(store, config.UploadConfig{}, 0, nil)

	queue := NewSyncQueue()
	queue.SetProcessor(svc.DeleteObjects)
	svc.SetQueue(queue)
	t.Cleanup(func() { queue.Close() })

	return &photoFixture{svc: svc, store: store, queue: queue}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func pngFile(t *testing.T) *photo.File {
	return &photo.File{Name: "portrait.png", ContentType: "image/png", Data: pngBytes(t, 64, 48)}
}

func intPtr(n int) *int { return &n }

func seedProvider(t *testing.T, db *gorm.DB, name string, status models.ProviderStatus, mutate ...func(*models.Provider)) *models.Provider {
	t.Helper()
	p := &models.Provider{
		ID:           uuid.NewString(),
		Name:         name,
		Phone:        "080 2222 3333",
		CategoryCode: "purohit",
		Languages:    datatypes.JSONSlice[string]{"kannada"},
		Status:       status,
	}
	for _, m := range mutate {
		m(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	return p
}
