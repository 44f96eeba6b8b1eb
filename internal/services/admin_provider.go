package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/response"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type AdminProviderQuery struct {
	Status       string `form:"status"`
	CategoryCode string `form:"category_code"`
	Q            string `form:"q"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

// AdminProviderRow is a provider as shown in the moderation queue.
type AdminProviderRow struct {
	models.Provider
	ThumbnailURL string `json:"thumbnail_url"`
}

type AdminProviderListResult struct {
	Items    []AdminProviderRow `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// AdminProviderDetail adds moderation fields to the public detail. Both
// the primary photo and the legacy photo_url are signed.
type AdminProviderDetail struct {
	ProviderDetail
	Status          models.ProviderStatus `json:"status"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
	ReviewedBy      *uint                 `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time            `json:"reviewed_at,omitempty"`
	UserID          *uint                 `json:"user_id,omitempty"`
	LegacyPhotoURL  string                `json:"legacy_photo_url,omitempty"`
}

type AdminProviderService struct {
	db      *gorm.DB
	details DetailStrategy
	photos  *PhotoService
}

func NewAdminProviderService(db *gorm.DB, photos *PhotoService) *AdminProviderService {
	return &AdminProviderService{db: db, details: NewJoinDetailStrategy(db), photos: photos}
}

func (s *AdminProviderService) filtered(ctx context.Context, status, category, q string) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Provider{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category_code = ?", category)
	}
	if q = strings.TrimSpace(q); q != "" {
		like := containsPattern(strings.ToLower(q))
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '!' OR phone LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!')", like, like, like)
	}
	return query
}

// List pages through providers in any status, newest first.
func (s *AdminProviderService) List(ctx context.Context, q AdminProviderQuery) (*AdminProviderListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > MaxSearchLimit {
		q.PageSize = DefaultSearchLimit
	}

	query := s.filtered(ctx, q.Status, q.CategoryCode, q.Q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count providers: %w", err)
	}

	var providers []models.Provider
	if err := query.Order("created_at DESC, id ASC").
		Offset((q.Page - 1) * q.PageSize).Limit(q.PageSize).
		Find(&providers).Error; err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}

	photos, err := loadPrimaryPhotos(s.db.WithContext(ctx), providers)
	if err != nil {
		return nil, err
	}

	items := make([]AdminProviderRow, 0, len(providers))
	for i := range providers {
		p := &providers[i]
		_, thumb := s.photos.ProviderPhotoURLs(ctx, p, photos[p.ID])
		items = append(items, AdminProviderRow{Provider: *p, ThumbnailURL: thumb})
	}
	return &AdminProviderListResult{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// Detail returns a provider in any status.
func (s *AdminProviderService) Detail(ctx context.Context, id string) (*AdminProviderDetail, error) {
	rec, err := s.details.Fetch(ctx, id)
	if errors.Is(err, ErrProviderNotFound) {
		return nil, response.NewNotFound("Not found")
	}
	if err != nil {
		return nil, err
	}

	p := &rec.Provider
	return &AdminProviderDetail{
		ProviderDetail:  *s.photos.DetailView(ctx, rec, ""),
		Status:          p.Status,
		RejectionReason: p.RejectionReason,
		ReviewedBy:      p.ReviewedBy,
		ReviewedAt:      p.ReviewedAt,
		UserID:          p.UserID,
		LegacyPhotoURL:  s.photos.ResolveURL(ctx, p.PhotoURL),
	}, nil
}

var providerExportHeader = []string{
	"ID", "Name", "Phone", "WhatsApp", "Email", "Category", "Sampradaya",
	"Languages", "Experience (years)", "Service Radius (km)", "Status",
	"Rejection Reason", "Submitted At", "Reviewed At",
}

var providerExportWidths = []float64{38, 28, 18, 18, 28, 16, 16, 24, 12, 12, 16, 30, 20, 20}

const providerExportSheet = "Providers"

// ExportXLSX renders every provider with the given status (all when empty)
// as a spreadsheet.
func (s *AdminProviderService) ExportXLSX(ctx context.Context, status string) ([]byte, error) {
	var providers []models.Provider
	if err := s.filtered(ctx, status, "", "").Order("created_at DESC, id ASC").Find(&providers).Error; err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}
	return renderProviderSheet(providers)
}

func renderProviderSheet(providers []models.Provider) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", providerExportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE9D9"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	header := make([]interface{}, len(providerExportHeader))
	for i, h := range providerExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(providerExportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(providerExportHeader))
	if err := f.SetCellStyle(providerExportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for i, w := range providerExportWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(providerExportSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	for i := range providers {
		p := &providers[i]
		row := []interface{}{
			p.ID, p.Name, p.Phone, p.WhatsApp, p.Email, p.CategoryCode,
			derefString(p.SampradayaCode),
			strings.Join(languagesOf(p), ", "),
			derefInt(p.ExperienceYears),
			derefInt(p.ServiceRadiusKm),
			string(p.Status),
			p.RejectionReason,
			p.CreatedAt.Format("2006-01-02 15:04"),
			formatTime(p.ReviewedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(providerExportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) interface{} {
	if i == nil {
		return ""
	}
	return *i
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
