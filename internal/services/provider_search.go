package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viprasethu/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern is a LIKE pattern matching s anywhere, with % and _ in s
// taken literally. Pair it with ESCAPE '!', which reads the same in every
// supported dialect.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

type ProviderSearchQuery struct {
	Text           string `form:"text"`
	CategoryCode   string `form:"category_code"`
	SampradayaCode string `form:"sampradaya_code"`
	Language       string `form:"language"`
	Limit          *int   `form:"limit"`
	Offset         int    `form:"offset"`
}

// ProviderCard is one search hit. Photo URLs are already signed.
type ProviderCard struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CategoryCode    string    `json:"category_code"`
	SampradayaCode  *string   `json:"sampradaya_code"`
	About           string    `json:"about"`
	Languages       []string  `json:"languages"`
	ExperienceYears *int      `json:"experience_years"`
	ServiceRadiusKm *int      `json:"service_radius_km"`
	ResponseTime    string    `json:"response_time"`
	PhotoURL        string    `json:"photo_url"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	CreatedAt       time.Time `json:"created_at"`
}

type ProviderSearchResult struct {
	Items  []ProviderCard
	Total  int64
	Limit  int
	Offset int
}

type ProviderSearchService struct {
	db     *gorm.DB
	photos *PhotoService
}

func NewProviderSearchService(db *gorm.DB, photos *PhotoService) *ProviderSearchService {
	return &ProviderSearchService{db: db, photos: photos}
}

// ClampLimit applies the default page size and bounds it to [1, MaxSearchLimit].
func ClampLimit(limit *int) int {
	if limit == nil {
		return DefaultSearchLimit
	}
	switch l := *limit; {
	case l < 1:
		return 1
	case l > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return l
	}
}

// Search lists approved providers. Total counts every match regardless of
// the page window.
func (s *ProviderSearchService) Search(ctx context.Context, q ProviderSearchQuery) (*ProviderSearchResult, error) {
	limit := ClampLimit(q.Limit)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.Provider{}).
		Where("status = ?", models.ProviderApproved)

	if text := strings.TrimSpace(q.Text); text != "" {
		like := containsPattern(strings.ToLower(text))
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(about) LIKE ? ESCAPE '!')", like, like)
	}
	if q.CategoryCode != "" {
		query = query.Where("category_code = ?", q.CategoryCode)
	}
	if q.SampradayaCode != "" {
		query = query.Where("sampradaya_code = ?", q.SampradayaCode)
	}
	if lang := strings.ToLower(strings.TrimSpace(q.Language)); lang != "" {
		query = query.Where(datatypes.JSONArrayQuery("languages").Contains(lang))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count providers: %w", err)
	}

	var providers []models.Provider
	if err := query.Order("created_at DESC, id ASC").Limit(limit).Offset(offset).Find(&providers).Error; err != nil {
		return nil, fmt.Errorf("search providers: %w", err)
	}

	photos, err := loadPrimaryPhotos(s.db.WithContext(ctx), providers)
	if err != nil {
		return nil, err
	}

	items := make([]ProviderCard, 0, len(providers))
	for i := range providers {
		items = append(items, s.card(ctx, &providers[i], photos[providers[i].ID]))
	}

	return &ProviderSearchResult{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// loadPrimaryPhotos loads the primary photo for every provider on the page
// in one query.
func loadPrimaryPhotos(db *gorm.DB, providers []models.Provider) (map[string]*models.ProviderPhoto, error) {
	out := make(map[string]*models.ProviderPhoto, len(providers))
	if len(providers) == 0 {
		return out, nil
	}

	ids := make([]string, len(providers))
	for i, p := range providers {
		ids[i] = p.ID
	}

	var rows []models.ProviderPhoto
	if err := db.Where("provider_id IN ? AND is_primary = ?", ids, true).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load primary photos: %w", err)
	}
	for i := range rows {
		out[rows[i].ProviderID] = &rows[i]
	}
	return out, nil
}

func (s *ProviderSearchService) card(ctx context.Context, p *models.Provider, primary *models.ProviderPhoto) ProviderCard {
	c := ProviderCard{
		ID:              p.ID,
		Name:            p.Name,
		CategoryCode:    p.CategoryCode,
		SampradayaCode:  p.SampradayaCode,
		About:           p.About,
		Languages:       languagesOf(p),
		ExperienceYears: p.ExperienceYears,
		ServiceRadiusKm: p.ServiceRadiusKm,
		ResponseTime:    p.ResponseTime,
		CreatedAt:       p.CreatedAt,
	}
	c.PhotoURL, c.ThumbnailURL = s.photos.ProviderPhotoURLs(ctx, p, primary)
	return c
}

func languagesOf(p *models.Provider) []string {
	if p.Languages == nil {
		return []string{}
	}
	return []string(p.Languages)
}
