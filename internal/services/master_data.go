package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/gorm"
)

// Resource names used in URLs and cache keys.
const (
	KindCategories       = "categories"
	KindLanguages        = "languages"
	KindSampradayas      = "sampradayas"
	KindExperienceLevels = "experience-levels"
	KindServiceRadius    = "service-radius"
	KindTerms            = "terms"
)

const masterCacheTTL = 10 * time.Minute

var masterCodePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

type MasterListQuery struct {
	Q               string `form:"q"`
	IncludeInactive bool   `form:"includeInactive"`
	IncludeDeleted  bool   `form:"includeDeleted"`
}

// MasterInput is the create/replace body shared by every reference table.
// Extras that do not apply to a table are ignored.
type MasterInput struct {
	Code         string                 `json:"code"`
	Name         string                 `json:"name"`
	Translations map[string]interface{} `json:"translations"`
	IsActive     *bool                  `json:"is_active"`
	DisplayOrder *int                   `json:"display_order"`
	models.MasterExtras
}

// MasterPatch is the partial update body.
type MasterPatch struct {
	Name         *string `json:"name"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder *int    `json:"display_order"`
}

// MasterDataManager is the kind-agnostic view handlers route to.
type MasterDataManager interface {
	Kind() string
	List(ctx context.Context, q MasterListQuery) (interface{}, error)
	ListActive(ctx context.Context) (interface{}, error)
	Create(ctx context.Context, in *MasterInput) (interface{}, error)
	Update(ctx context.Context, code string, in *MasterInput) (interface{}, error)
	Patch(ctx context.Context, code string, p *MasterPatch) (interface{}, error)
	Delete(ctx context.Context, code string) error
	IsActive(ctx context.Context, code string) (bool, error)
}

// MasterDataService implements CRUD for one reference table.
type MasterDataService[T any, PT interface {
	*T
	models.MasterRecord
}] struct {
	db    *gorm.DB
	kind  string
	cache Cache
}

func NewMasterDataService[T any, PT interface {
	*T
	models.MasterRecord
}](db *gorm.DB, kind string, cache Cache) *MasterDataService[T, PT] {
	if cache == nil {
		cache = NoopCache{}
	}
	return &MasterDataService[T, PT]{db: db, kind: kind, cache: cache}
}

// NewMasterDataManagers builds one manager per reference table keyed by kind.
func NewMasterDataManagers(db *gorm.DB, cache Cache) map[string]MasterDataManager {
	return map[string]MasterDataManager{
		KindCategories:       NewMasterDataService[models.Category](db, KindCategories, cache),
		KindLanguages:        NewMasterDataService[models.Language](db, KindLanguages, cache),
		KindSampradayas:      NewMasterDataService[models.Sampradaya](db, KindSampradayas, cache),
		KindExperienceLevels: NewMasterDataService[models.ExperienceLevel](db, KindExperienceLevels, cache),
		KindServiceRadius:    NewMasterDataService[models.ServiceRadiusOption](db, KindServiceRadius, cache),
		KindTerms:            NewMasterDataService[models.Term](db, KindTerms, cache),
	}
}

func (s *MasterDataService[T, PT]) Kind() string { return s.kind }

func (s *MasterDataService[T, PT]) cacheKey() string { return "master:" + s.kind }

func (s *MasterDataService[T, PT]) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, s.cacheKey()); err != nil {
		logger.Warn().Err(err).Str("kind", s.kind).Msg("failed to invalidate master data cache")
	}
}

func (s *MasterDataService[T, PT]) List(ctx context.Context, q MasterListQuery) (interface{}, error) {
	return s.list(ctx, q)
}

func (s *MasterDataService[T, PT]) list(ctx context.Context, q MasterListQuery) ([]T, error) {
	query := s.db.WithContext(ctx).Model(PT(new(T)))
	if q.IncludeDeleted {
		query = query.Unscoped()
	}
	if !q.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if term := strings.TrimSpace(q.Q); term != "" {
		like := containsPattern(strings.ToLower(term))
		query = query.Where("(LOWER(code) LIKE ? ESCAPE '!' OR LOWER(name) LIKE ? ESCAPE '!')", like, like)
	}

	items := make([]T, 0)
	if err := query.Order("display_order ASC, name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	return items, nil
}

// ListActive returns the public list, served from cache when possible.
func (s *MasterDataService[T, PT]) ListActive(ctx context.Context) (interface{}, error) {
	var cached []T
	if ok, err := s.cache.Get(ctx, s.cacheKey(), &cached); err != nil {
		logger.Warn().Err(err).Str("kind", s.kind).Msg("master data cache read failed")
	} else if ok {
		return cached, nil
	}

	items, err := s.list(ctx, MasterListQuery{})
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, s.cacheKey(), items, masterCacheTTL); err != nil {
		logger.Warn().Err(err).Str("kind", s.kind).Msg("master data cache write failed")
	}
	return items, nil
}

func (s *MasterDataService[T, PT]) find(db *gorm.DB, code string) (PT, error) {
	rec := PT(new(T))
	if err := db.Where("code = ?", code).First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Not found")
		}
		return nil, fmt.Errorf("get %s %s: %w", s.kind, code, err)
	}
	return rec, nil
}

// Create inserts a row. Re-creating a soft-deleted code restores it with the
// new values.
func (s *MasterDataService[T, PT]) Create(ctx context.Context, in *MasterInput) (interface{}, error) {
	code, err := normalizeMasterCode(in.Code)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, response.NewBadRequest("name is required")
	}

	db := s.db.WithContext(ctx)
	rec := PT(new(T))
	err = db.Unscoped().Where("code = ?", code).First(rec).Error
	switch {
	case err == nil && !rec.Master().DeletedAt.Valid:
		return nil, response.NewConflict(fmt.Sprintf("%s %q already exists", s.kind, code))
	case err == nil:
		// restore below
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = PT(new(T))
	default:
		return nil, fmt.Errorf("get %s %s: %w", s.kind, code, err)
	}

	m := rec.Master()
	m.Code = code
	m.DeletedAt = gorm.DeletedAt{}
	m.IsActive = true
	applyMasterInput(rec, in)

	if err := db.Unscoped().Save(rec).Error; err != nil {
		return nil, fmt.Errorf("create %s %s: %w", s.kind, code, err)
	}
	s.invalidate(ctx)
	return rec, nil
}

// Update replaces the editable fields of an existing row. The code is fixed.
func (s *MasterDataService[T, PT]) Update(ctx context.Context, code string, in *MasterInput) (interface{}, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, response.NewBadRequest("name is required")
	}
	if in.Code != "" && !strings.EqualFold(strings.TrimSpace(in.Code), code) {
		return nil, response.NewBadRequest("code cannot be changed")
	}

	db := s.db.WithContext(ctx)
	rec, err := s.find(db, code)
	if err != nil {
		return nil, err
	}

	applyMasterInput(rec, in)
	if err := db.Save(rec).Error; err != nil {
		return nil, fmt.Errorf("update %s %s: %w", s.kind, code, err)
	}
	s.invalidate(ctx)
	return rec, nil
}

func (s *MasterDataService[T, PT]) Patch(ctx context.Context, code string, p *MasterPatch) (interface{}, error) {
	updates := map[string]interface{}{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, response.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}
	if p.DisplayOrder != nil {
		updates["display_order"] = *p.DisplayOrder
	}
	if len(updates) == 0 {
		return nil, response.NewBadRequest("nothing to update")
	}

	db := s.db.WithContext(ctx)
	rec, err := s.find(db, code)
	if err != nil {
		return nil, err
	}
	if err := db.Model(rec).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("patch %s %s: %w", s.kind, code, err)
	}
	s.invalidate(ctx)
	return s.find(db, code)
}

// Delete soft-deletes a row by stamping deleted_at.
func (s *MasterDataService[T, PT]) Delete(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Where("code = ?", code).Delete(PT(new(T)))
	if result.Error != nil {
		return fmt.Errorf("delete %s %s: %w", s.kind, code, result.Error)
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("Not found")
	}
	s.invalidate(ctx)
	return nil
}

// IsActive reports whether code exists, is active and not deleted.
func (s *MasterDataService[T, PT]) IsActive(ctx context.Context, code string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(PT(new(T))).
		Where("code = ? AND is_active = ?", code, true).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check %s %s: %w", s.kind, code, err)
	}
	return n > 0, nil
}

func applyMasterInput(rec models.MasterRecord, in *MasterInput) {
	m := rec.Master()
	m.Name = strings.TrimSpace(in.Name)
	if in.Translations != nil {
		m.Translations = in.Translations
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if in.DisplayOrder != nil {
		m.DisplayOrder = *in.DisplayOrder
	}
	rec.ApplyExtras(in.MasterExtras)
}

func normalizeMasterCode(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", response.NewBadRequest("code is required")
	}
	if len(code) > 64 || !masterCodePattern.MatchString(code) {
		return "", response.NewBadRequest("code may only contain lowercase letters, digits, '_' and '-'")
	}
	return code, nil
}
