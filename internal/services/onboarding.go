package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/photo"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OnboardingRequest is a provider self-registration as submitted by the
// public form. Numeric fields arrive as text.
type OnboardingRequest struct {
	Name            string
	Phone           string
	WhatsApp        string
	Email           string
	Category        string
	Sampradaya      string
	Languages       []string
	ServiceRadius   string
	ExperienceYears string
	ResponseTime    string
	About           string
	TermsAccepted   bool
	Photo           *photo.File
	UserID          *uint
}

type OnboardingService struct {
	db      *gorm.DB
	photos  *PhotoService
	metrics *Metrics
}

func NewOnboardingService(db *gorm.DB, photos *PhotoService, metrics *Metrics) *OnboardingService {
	return &OnboardingService{db: db, photos: photos, metrics: metrics}
}

// Submit validates req and creates a pending_review provider, storing the
// photo when one is attached. The provider row, the photo row and the
// primary-photo pointer are written in one transaction; if anything fails
// after the objects were stored they are scheduled for deletion, so a failed
// submission leaves nothing behind. Each call creates a new provider.
func (s *OnboardingService) Submit(ctx context.Context, req *OnboardingRequest) (string, error) {
	provider, err := s.buildProvider(ctx, req)
	if err != nil {
		s.metrics.ObserveOnboarding("invalid")
		return "", err
	}

	var uploaded *UploadedPhoto
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(provider).Error; err != nil {
			return fmt.Errorf("insert provider: %w", err)
		}
		if req.Photo == nil {
			return nil
		}

		up, err := s.photos.UploadProviderPhoto(ctx, req.Photo, provider.ID)
		if err != nil {
			return err
		}
		uploaded = up

		_, err = RecordPrimaryPhoto(tx, provider.ID, up)
		return err
	})
	if err != nil {
		if uploaded != nil {
			s.photos.Cleanup(ctx, provider.ID, "onboarding rolled back", uploaded.Keys()...)
		}
		if response.StatusOf(err) < 500 {
			s.metrics.ObserveOnboarding("invalid")
		} else {
			s.metrics.ObserveOnboarding("error")
			logger.Error().Err(err).Str("provider_id", provider.ID).Msg("onboarding failed")
		}
		return "", err
	}

	s.metrics.ObserveOnboarding("ok")
	logger.Info().Str("provider_id", provider.ID).Bool("photo", uploaded != nil).Msg("provider submitted for review")
	return provider.ID, nil
}

func (s *OnboardingService) buildProvider(ctx context.Context, req *OnboardingRequest) (*models.Provider, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	category := strings.ToLower(strings.TrimSpace(req.Category))

	if name == "" || phone == "" || category == "" {
		return nil, response.NewBadRequest("name, phone and category are required")
	}
	if !utils.ValidPhone(phone) {
		return nil, response.NewBadRequest("phone may only contain digits, spaces and + ( ) -")
	}
	whatsapp := strings.TrimSpace(req.WhatsApp)
	if whatsapp != "" && !utils.ValidPhone(whatsapp) {
		return nil, response.NewBadRequest("whatsapp may only contain digits, spaces and + ( ) -")
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, response.NewBadRequest("email is not valid")
	}

	if req.Photo != nil {
		if err := s.photos.ValidateUpload(req.Photo); err != nil {
			return nil, err
		}
	}

	db := s.db.WithContext(ctx)
	if ok, err := activeCode(db, &models.Category{}, category); err != nil {
		return nil, err
	} else if !ok {
		return nil, response.NewBadRequest(fmt.Sprintf("unknown category %q", category))
	}

	var sampradaya *string
	if sc := strings.ToLower(strings.TrimSpace(req.Sampradaya)); sc != "" {
		ok, err := activeCode(db, &models.Sampradaya{}, sc)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, response.NewBadRequest(fmt.Sprintf("unknown sampradaya %q", sc))
		}
		sampradaya = &sc
	}

	experience, err := parseOptionalInt(req.ExperienceYears, "experienceYears")
	if err != nil {
		return nil, err
	}
	radius, err := s.resolveServiceRadius(db, req.ServiceRadius)
	if err != nil {
		return nil, err
	}

	p := &models.Provider{
		ID:              uuid.NewString(),
		Name:            name,
		Phone:           phone,
		WhatsApp:        whatsapp,
		Email:           email,
		CategoryCode:    category,
		SampradayaCode:  sampradaya,
		About:           strings.TrimSpace(req.About),
		Languages:       datatypes.JSONSlice[string](normalizeLanguages(req.Languages)),
		ExperienceYears: experience,
		ServiceRadiusKm: radius,
		ResponseTime:    strings.TrimSpace(req.ResponseTime),
		Status:          models.ProviderPendingReview,
		UserID:          req.UserID,
	}
	if req.TermsAccepted {
		now := time.Now()
		p.TermsAcceptedAt = &now
	}
	return p, nil
}

// resolveServiceRadius accepts either a number of kilometres or the code of a
// service radius option.
func (s *OnboardingService) resolveServiceRadius(db *gorm.DB, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if km, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(raw), "km")); err == nil {
		if km < 0 {
			return nil, response.NewBadRequest("serviceRadius must not be negative")
		}
		return &km, nil
	}

	var opt models.ServiceRadiusOption
	if err := db.Where("code = ? AND is_active = ?", strings.ToLower(raw), true).First(&opt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewBadRequest(fmt.Sprintf("unknown serviceRadius %q", raw))
		}
		return nil, err
	}
	return &opt.Km, nil
}

// RecordPrimaryPhoto inserts a photo row marked primary, clears any other
// primary for the provider and points the provider at the new photo. It must
// run inside the caller's transaction.
func RecordPrimaryPhoto(tx *gorm.DB, providerID string, up *UploadedPhoto) (*models.ProviderPhoto, error) {
	if err := tx.Model(&models.ProviderPhoto{}).
		Where("provider_id = ? AND is_primary = ?", providerID, true).
		Update("is_primary", false).Error; err != nil {
		return nil, fmt.Errorf("clear primary photo: %w", err)
	}

	row := &models.ProviderPhoto{
		ID:            uuid.NewString(),
		ProviderID:    providerID,
		OriginalPath:  up.OriginalPath,
		ThumbnailPath: up.ThumbnailPath,
		MimeType:      up.MimeType,
		SizeBytes:     up.SizeBytes,
		IsPrimary:     true,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, fmt.Errorf("insert provider photo: %w", err)
	}

	if err := tx.Model(&models.Provider{}).Where("id = ?", providerID).Updates(map[string]interface{}{
		"primary_photo_id": row.ID,
		"photo_url":        up.OriginalPath,
	}).Error; err != nil {
		return nil, fmt.Errorf("link primary photo: %w", err)
	}
	return row, nil
}

func activeCode(db *gorm.DB, model interface{}, code string) (bool, error) {
	var n int64
	if err := db.Model(model).Where("code = ? AND is_active = ?", code, true).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func parseOptionalInt(raw, field string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, response.NewBadRequest(field + " must be a non-negative whole number")
	}
	return &n, nil
}

func normalizeLanguages(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, l := range in {
		for _, part := range utils.SplitCSV(l) {
			code := strings.ToLower(part)
			if !seen[code] {
				seen[code] = true
				out = append(out, code)
			}
		}
	}
	return out
}
