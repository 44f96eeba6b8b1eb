package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrProviderNotFound = errors.New("provider not found")

// DetailRecord is a provider with its display names and primary photo. It
// is also the JSON shape returned by the get_provider_detail database
// function.
type DetailRecord struct {
	Provider             models.Provider        `json:"provider"`
	CategoryName         string                 `json:"category_name"`
	CategoryTranslations map[string]interface{} `json:"category_translations"`
	SampradayaName       string                 `json:"sampradaya_name"`
	PrimaryPhoto         *models.ProviderPhoto  `json:"primary_photo"`
}

// DetailStrategy fetches one provider by id regardless of status.
type DetailStrategy interface {
	Name() string
	Fetch(ctx context.Context, id string) (*DetailRecord, error)
}

// RPCDetailStrategy calls the get_provider_detail(id) database function,
// which aggregates the provider, its names and primary photo into one JSON
// document.
type RPCDetailStrategy struct {
	db *gorm.DB
}

func NewRPCDetailStrategy(db *gorm.DB) *RPCDetailStrategy {
	return &RPCDetailStrategy{db: db}
}

func (s *RPCDetailStrategy) Name() string { return "rpc" }

func (s *RPCDetailStrategy) Fetch(ctx context.Context, id string) (*DetailRecord, error) {
	var raw []byte
	row := s.db.WithContext(ctx).Raw("SELECT get_provider_detail(?)", id).Row()
	if err := row.Scan(&raw); err != nil {
		return nil, fmt.Errorf("rpc get_provider_detail: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrProviderNotFound
	}

	var rec DetailRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("rpc get_provider_detail: decode: %w", err)
	}
	if rec.Provider.ID == "" {
		return nil, ErrProviderNotFound
	}
	return &rec, nil
}

// JoinDetailStrategy reads the provider joined with its reference tables,
// then its primary photo.
type JoinDetailStrategy struct {
	db *gorm.DB
}

func NewJoinDetailStrategy(db *gorm.DB) *JoinDetailStrategy {
	return &JoinDetailStrategy{db: db}
}

func (s *JoinDetailStrategy) Name() string { return "join" }

type providerJoinRow struct {
	models.Provider
	CategoryName         string
	CategoryTranslations datatypes.JSONMap
	SampradayaName       string
}

func (s *JoinDetailStrategy) Fetch(ctx context.Context, id string) (*DetailRecord, error) {
	db := s.db.WithContext(ctx)

	var row providerJoinRow
	err := db.Table("providers").
		Select("providers.*, categories.name AS category_name, categories.translations AS category_translations, sampradayas.name AS sampradaya_name").
		Joins("LEFT JOIN categories ON categories.code = providers.category_code").
		Joins("LEFT JOIN sampradayas ON sampradayas.code = providers.sampradaya_code").
		Where("providers.id = ?", id).
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("join provider detail: %w", err)
	}
	if row.ID == "" {
		return nil, ErrProviderNotFound
	}

	rec := &DetailRecord{
		Provider:             row.Provider,
		CategoryName:         row.CategoryName,
		CategoryTranslations: row.CategoryTranslations,
		SampradayaName:       row.SampradayaName,
	}

	var photo models.ProviderPhoto
	err = db.Where("provider_id = ? AND is_primary = ?", id, true).Take(&photo).Error
	switch {
	case err == nil:
		rec.PrimaryPhoto = &photo
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("primary photo: %w", err)
	}
	return rec, nil
}

// DetailResolver tries the primary strategy and falls back on any error. A
// failure of the primary is logged, never returned.
type DetailResolver struct {
	primary  DetailStrategy
	fallback DetailStrategy
	metrics  *Metrics
}

func NewDetailResolver(primary, fallback DetailStrategy, metrics *Metrics) *DetailResolver {
	return &DetailResolver{primary: primary, fallback: fallback, metrics: metrics}
}

func (r *DetailResolver) Resolve(ctx context.Context, id string) (*DetailRecord, error) {
	if r.primary != nil {
		rec, err := r.primary.Fetch(ctx, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrProviderNotFound) {
			logger.Warn().Err(err).Str("strategy", r.primary.Name()).Str("provider_id", id).
				Msg("provider detail strategy failed, falling back")
		}
		r.metrics.ObserveDetailFallback()
	}
	return r.fallback.Fetch(ctx, id)
}

// PhotoView is a photo as exposed to clients: signed URLs only.
type PhotoView struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// ProviderDetail is the public detail DTO.
type ProviderDetail struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	WhatsApp        string     `json:"whatsapp"`
	Email           string     `json:"email"`
	CategoryCode    string     `json:"category_code"`
	CategoryName    string     `json:"category_name"`
	SampradayaCode  *string    `json:"sampradaya_code"`
	SampradayaName  string     `json:"sampradaya_name,omitempty"`
	About           string     `json:"about"`
	Languages       []string   `json:"languages"`
	ExperienceYears *int       `json:"experience_years"`
	ServiceRadiusKm *int       `json:"service_radius_km"`
	ResponseTime    string     `json:"response_time"`
	PhotoURL        string     `json:"photo_url"`
	ThumbnailURL    string     `json:"thumbnail_url"`
	PrimaryPhoto    *PhotoView `json:"primary_photo"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ProviderDetailService serves the public detail page.
type ProviderDetailService struct {
	resolver *DetailResolver
	photos   *PhotoService
}

func NewProviderDetailService(resolver *DetailResolver, photos *PhotoService) *ProviderDetailService {
	return &ProviderDetailService{resolver: resolver, photos: photos}
}

// Get returns an approved provider. Unknown ids and providers that are not
// approved are both reported as not found.
func (s *ProviderDetailService) Get(ctx context.Context, id string, locale string) (*ProviderDetail, error) {
	rec, err := s.resolver.Resolve(ctx, id)
	if errors.Is(err, ErrProviderNotFound) {
		return nil, response.NewNotFound("Not found")
	}
	if err != nil {
		return nil, err
	}
	if rec.Provider.Status != models.ProviderApproved {
		return nil, response.NewNotFound("Not found")
	}
	return s.photos.DetailView(ctx, rec, locale), nil
}

// DetailView converts a record into the client DTO, signing every photo
// reference.
func (s *PhotoService) DetailView(ctx context.Context, rec *DetailRecord, locale string) *ProviderDetail {
	p := &rec.Provider
	d := &ProviderDetail{
		ID:              p.ID,
		Name:            p.Name,
		Phone:           p.Phone,
		WhatsApp:        p.WhatsApp,
		Email:           p.Email,
		CategoryCode:    p.CategoryCode,
		CategoryName:    localized(rec.CategoryName, rec.CategoryTranslations, locale),
		SampradayaCode:  p.SampradayaCode,
		SampradayaName:  rec.SampradayaName,
		About:           p.About,
		Languages:       languagesOf(p),
		ExperienceYears: p.ExperienceYears,
		ServiceRadiusKm: p.ServiceRadiusKm,
		ResponseTime:    p.ResponseTime,
		CreatedAt:       p.CreatedAt,
	}

	d.PhotoURL, d.ThumbnailURL = s.ProviderPhotoURLs(ctx, p, rec.PrimaryPhoto)
	if ph := rec.PrimaryPhoto; ph != nil {
		d.PrimaryPhoto = &PhotoView{
			ID:           ph.ID,
			URL:          d.PhotoURL,
			ThumbnailURL: d.ThumbnailURL,
			MimeType:     ph.MimeType,
			SizeBytes:    ph.SizeBytes,
		}
	}
	return d
}

func localized(name string, translations map[string]interface{}, locale string) string {
	if locale != "" {
		if v, ok := translations[locale].(string); ok && v != "" {
			return v
		}
	}
	return name
}
