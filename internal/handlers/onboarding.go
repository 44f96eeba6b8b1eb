package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/photo"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/response"
)

// multipart overhead allowed on top of the photo size limit
const formOverhead = 1 << 20

type OnboardingHandler struct {
	onboarding *services.OnboardingService
	maxBytes   int64
}

func NewOnboardingHandler(onboarding *services.OnboardingService, maxPhotoBytes int64) *OnboardingHandler {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = photo.DefaultMaxBytes
	}
	return &OnboardingHandler{onboarding: onboarding, maxBytes: maxPhotoBytes}
}

// Submit handles a provider self-registration form.
// POST /api/providers/onboard
func (h *OnboardingHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+formOverhead)
	if err := c.Request.ParseMultipartForm(h.maxBytes + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(c, "photo exceeds the maximum size")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			response.BadRequest(c, "invalid form data")
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			response.BadRequest(c, "invalid form data")
			return
		}
	}

	req := &services.OnboardingRequest{
		Name:            c.PostForm("name"),
		Phone:           c.PostForm("phone"),
		WhatsApp:        c.PostForm("whatsapp"),
		Email:           c.PostForm("email"),
		Category:        c.PostForm("category"),
		Sampradaya:      c.PostForm("sampradaya"),
		Languages:       utils.SplitCSV(c.PostForm("languages")),
		ServiceRadius:   c.PostForm("serviceRadius"),
		ExperienceYears: c.PostForm("experienceYears"),
		ResponseTime:    c.PostForm("responseTime"),
		About:           c.PostForm("about"),
		TermsAccepted:   formBool(c.PostForm("termsAccepted")),
	}
	if userID := middleware.GetUserID(c); userID != 0 {
		req.UserID = &userID
	}

	upload, err := readPhoto(c, "photo")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.Photo = upload

	id, err := h.onboarding.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// readPhoto returns nil when no file part was sent. A part that is present
// but empty is returned as a zero-length file so validation rejects it.
func readPhoto(c *gin.Context, field string) (*photo.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, errors.New("invalid photo upload")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("invalid photo upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("invalid photo upload")
	}
	return &photo.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func formBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(v), "on")
	}
	return b
}
