package photo

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/gen2brain/webp"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, G: 80, B: 20, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    *File
		max     int64
		wantErr error
	}{
		{"jpeg by mime", &File{Name: "a.bin", ContentType: "image/jpeg", Data: []byte{1}}, 0, nil},
		{"png by extension only", &File{Name: "a.PNG", ContentType: "application/octet-stream", Data: []byte{1}}, 0, nil},
		{"webp by mime without extension", &File{Name: "upload", ContentType: "image/webp", Data: []byte{1}}, 0, nil},
		{"mime with params", &File{Name: "x", ContentType: "image/png; charset=binary", Data: []byte{1}}, 0, nil},
		{"mismatched mime but good ext", &File{Name: "a.jpeg", ContentType: "text/plain", Data: []byte{1}}, 0, nil},
		{"gif rejected", &File{Name: "a.gif", ContentType: "image/gif", Data: []byte{1}}, 0, ErrUnsupportedType},
		{"pdf rejected", &File{Name: "a.pdf", ContentType: "application/pdf", Data: []byte{1}}, 0, ErrUnsupportedType},
		{"empty", &File{Name: "a.jpg", ContentType: "image/jpeg"}, 0, ErrEmptyFile},
		{"nil", nil, 0, ErrEmptyFile},
		{"too large", &File{Name: "a.jpg", ContentType: "image/jpeg", Data: make([]byte, 11)}, 10, ErrTooLarge},
		{"exactly at limit", &File{Name: "a.jpg", ContentType: "image/jpeg", Data: make([]byte, 10)}, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, tt.max)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() error = %v, expected nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DefaultLimitIsFiveMiB(t *testing.T) {
	f := &File{Name: "big.jpg", ContentType: "image/jpeg", Data: make([]byte, DefaultMaxBytes+1)}
	if err := Validate(f, 0); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Validate() error = %v, expected ErrTooLarge", err)
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name     string
		ct       string
		expected string
	}{
		{"photo.png", "", "image/png"},
		{"photo.WEBP", "", "image/webp"},
		{"photo.jpg", "", "image/jpeg"},
		{"photo", "", "image/jpeg"},
		{"photo.heic", "", "image/jpeg"},
		{"photo.png", "image/webp", "image/webp"},
		{"photo.png", "application/octet-stream", "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"|"+tt.ct, func(t *testing.T) {
			if got := DetectMIME(&File{Name: tt.name, ContentType: tt.ct}); got != tt.expected {
				t.Errorf("DetectMIME() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	if got := Extension(&File{Name: "Guru.JPEG"}); got != "jpeg" {
		t.Errorf("Extension() = %q, expected jpeg", got)
	}
	if got := Extension(&File{Name: "blob", ContentType: "image/png"}); got != "png" {
		t.Errorf("Extension() = %q, expected png", got)
	}
	if got := Extension(&File{Name: "blob"}); got != "jpg" {
		t.Errorf("Extension() = %q, expected jpg", got)
	}
}

func TestNewPaths(t *testing.T) {
	p := NewPaths("prov-1", "png")

	if !strings.HasPrefix(p.Original, "originals/prov-1/") || !strings.HasSuffix(p.Original, ".png") {
		t.Errorf("Original = %q", p.Original)
	}
	if !strings.HasPrefix(p.Thumbnail, "thumbs/prov-1/") || !strings.HasSuffix(p.Thumbnail, ".webp") {
		t.Errorf("Thumbnail = %q", p.Thumbnail)
	}

	origID := strings.TrimSuffix(strings.TrimPrefix(p.Original, "originals/prov-1/"), ".png")
	thumbID := strings.TrimSuffix(strings.TrimPrefix(p.Thumbnail, "thumbs/prov-1/"), ".webp")
	if origID != thumbID {
		t.Errorf("original id %q and thumbnail id %q should match", origID, thumbID)
	}

	if other := NewPaths("prov-1", "png"); other.Original == p.Original {
		t.Error("each call should use a fresh random id")
	}
}

func TestThumbnail_FitsInsideBox(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 1024, 768), 512, 75)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}

	cfg, err := webp.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not webp: %v", err)
	}
	if cfg.Width != 512 || cfg.Height != 384 {
		t.Errorf("thumbnail is %dx%d, expected 512x384", cfg.Width, cfg.Height)
	}
}

func TestThumbnail_DoesNotUpscale(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 120, 80), 512, 75)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}

	cfg, err := webp.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not webp: %v", err)
	}
	if cfg.Width != 120 || cfg.Height != 80 {
		t.Errorf("thumbnail is %dx%d, expected original 120x80", cfg.Width, cfg.Height)
	}
}

func TestThumbnail_RejectsGarbage(t *testing.T) {
	_, err := Thumbnail([]byte("definitely not an image"), 512, 75)
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("Thumbnail() error = %v, expected ErrUndecodable", err)
	}
}
