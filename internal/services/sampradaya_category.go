package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/gorm"
)

// SampradayaCategoryService manages which traditions apply to which service
// categories.
type SampradayaCategoryService struct {
	db *gorm.DB
}

func NewSampradayaCategoryService(db *gorm.DB) *SampradayaCategoryService {
	return &SampradayaCategoryService{db: db}
}

type SampradayaCategoryInput struct {
	SampradayaCode string `json:"sampradaya_code" form:"sampradaya_code"`
	CategoryCode   string `json:"category_code" form:"category_code"`
}

func (s *SampradayaCategoryService) List(ctx context.Context, filter SampradayaCategoryInput) ([]models.SampradayaCategory, error) {
	query := s.db.WithContext(ctx).Model(&models.SampradayaCategory{})
	if filter.SampradayaCode != "" {
		query = query.Where("sampradaya_code = ?", filter.SampradayaCode)
	}
	if filter.CategoryCode != "" {
		query = query.Where("category_code = ?", filter.CategoryCode)
	}

	items := make([]models.SampradayaCategory, 0)
	if err := query.Order("sampradaya_code, category_code").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list sampradaya categories: %w", err)
	}
	return items, nil
}

// Create links a sampradaya to a category. Both must exist and not be
// deleted; linking twice is a conflict.
func (s *SampradayaCategoryService) Create(ctx context.Context, in SampradayaCategoryInput) (*models.SampradayaCategory, error) {
	sc := strings.ToLower(strings.TrimSpace(in.SampradayaCode))
	cc := strings.ToLower(strings.TrimSpace(in.CategoryCode))
	if sc == "" || cc == "" {
		return nil, response.NewBadRequest("sampradaya_code and category_code are required")
	}

	var row *models.SampradayaCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Sampradaya{}).Where("code = ?", sc).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return response.NewBadRequest(fmt.Sprintf("unknown sampradaya %q", sc))
		}
		if err := tx.Model(&models.Category{}).Where("code = ?", cc).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return response.NewBadRequest(fmt.Sprintf("unknown category %q", cc))
		}

		var existing models.SampradayaCategory
		err := tx.Where("sampradaya_code = ? AND category_code = ?", sc, cc).First(&existing).Error
		if err == nil {
			return response.NewConflict("mapping already exists")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		row = &models.SampradayaCategory{SampradayaCode: sc, CategoryCode: cc}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes a link. The row is hard-deleted.
func (s *SampradayaCategoryService) Delete(ctx context.Context, sampradayaCode, categoryCode string) error {
	result := s.db.WithContext(ctx).
		Where("sampradaya_code = ? AND category_code = ?", sampradayaCode, categoryCode).
		Delete(&models.SampradayaCategory{})
	if result.Error != nil {
		return fmt.Errorf("delete sampradaya category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("Not found")
	}
	return nil
}

// SampradayasForCategory returns the active sampradayas linked to a
// category, in display order.
func (s *SampradayaCategoryService) SampradayasForCategory(ctx context.Context, categoryCode string) ([]models.Sampradaya, error) {
	items := make([]models.Sampradaya, 0)
	err := s.db.WithContext(ctx).
		Joins("JOIN sampradaya_categories sc ON sc.sampradaya_code = sampradayas.code").
		Where("sc.category_code = ? AND sampradayas.is_active = ?", categoryCode, true).
		Order("sampradayas.display_order ASC, sampradayas.name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("sampradayas for %s: %w", categoryCode, err)
	}
	return items, nil
}
