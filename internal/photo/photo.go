// Package photo validates uploaded provider photos and produces their
// storage keys and WebP thumbnails. It holds no state and does no I/O.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	"github.com/google/uuid"
)

const (
	DefaultMaxBytes     = 5 << 20
	DefaultThumbSize    = 512
	DefaultThumbQuality = 75

	ThumbnailMIME = "image/webp"
)

var (
	ErrEmptyFile       = errors.New("photo is empty")
	ErrTooLarge        = errors.New("photo exceeds the maximum size")
	ErrUnsupportedType = errors.New("photo must be a JPEG, PNG or WebP image")
	ErrUndecodable     = errors.New("photo could not be decoded as an image")
)

var (
	allowedMIME = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	}
	allowedExt = map[string]bool{
		"jpg":  true,
		"jpeg": true,
		"png":  true,
		"webp": true,
	}
)

// File is an uploaded photo as received from a multipart form.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the byte length of the upload.
func (f *File) Size() int64 { return int64(len(f.Data)) }

// Paths are the object keys of an original and its thumbnail. Both share the
// same random id so they can be correlated.
type Paths struct {
	Original  string
	Thumbnail string
}

// Validate checks emptiness, size and type. The type check passes when
// either the declared MIME type or the file extension is acceptable.
func Validate(f *File, maxBytes int64) error {
	if f == nil || len(f.Data) == 0 {
		return ErrEmptyFile
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if f.Size() > maxBytes {
		return fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, f.Size(), maxBytes)
	}
	if !allowedMIME[baseMIME(f.ContentType)] && !allowedExt[ext(f.Name)] {
		return ErrUnsupportedType
	}
	return nil
}

// DetectMIME returns the declared MIME type, or derives one from the
// extension when the client sent none.
func DetectMIME(f *File) string {
	if ct := baseMIME(f.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch ext(f.Name) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Extension returns the lowercase extension used for the original object.
func Extension(f *File) string {
	if e := ext(f.Name); allowedExt[e] {
		return e
	}
	switch DetectMIME(f) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

// NewPaths builds originals/{owner}/{id}.{ext} and thumbs/{owner}/{id}.webp.
func NewPaths(ownerID, extension string) Paths {
	id := uuid.NewString()
	return Paths{
		Original:  fmt.Sprintf("originals/%s/%s.%s", ownerID, id, extension),
		Thumbnail: fmt.Sprintf("thumbs/%s/%s.webp", ownerID, id),
	}
}

// Thumbnail decodes data, fits it inside size x size without upscaling and
// re-encodes it as WebP at the given quality.
func Thumbnail(data []byte, size, quality int) ([]byte, error) {
	if size <= 0 {
		size = DefaultThumbSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultThumbQuality
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	var thumb image.Image = img
	b := img.Bounds()
	if b.Dx() > size || b.Dy() > size {
		thumb = imaging.Fit(img, size, size, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, thumb, webp.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode webp thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func baseMIME(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
