package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MasterFields are the columns shared by every reference table. Rows are
// soft-deleted by stamping DeletedAt.
type MasterFields struct {
	Code         string            `gorm:"primaryKey;size:64" json:"code"`
	Name         string            `gorm:"size:200;not null" json:"name"`
	Translations datatypes.JSONMap `json:"translations"` // locale -> display name
	IsActive     bool              `gorm:"index" json:"is_active"`
	DisplayOrder int               `gorm:"index" json:"display_order"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (m *MasterFields) Master() *MasterFields { return m }

// DisplayName returns the translation for locale, falling back to Name.
func (m *MasterFields) DisplayName(locale string) string {
	if v, ok := m.Translations[locale].(string); ok && v != "" {
		return v
	}
	return m.Name
}

// MasterExtras carries the per-table columns accepted by create/update.
type MasterExtras struct {
	Icon     *string `json:"icon"`
	MinYears *int    `json:"min_years"`
	MaxYears *int    `json:"max_years"`
	Km       *int    `json:"km"`
	Content  *string `json:"content"`
	Version  *string `json:"version"`
}

// MasterRecord is implemented by pointers to every reference-table model.
type MasterRecord interface {
	TableName() string
	Master() *MasterFields
	ApplyExtras(MasterExtras)
}

type Category struct {
	MasterFields
	Icon string `gorm:"size:100" json:"icon"`
}

func (Category) TableName() string { return "categories" }

func (c *Category) ApplyExtras(e MasterExtras) {
	if e.Icon != nil {
		c.Icon = *e.Icon
	}
}

type Language struct {
	MasterFields
}

func (Language) TableName() string          { return "languages" }
func (l *Language) ApplyExtras(MasterExtras) {}

type Sampradaya struct {
	MasterFields
}

func (Sampradaya) TableName() string          { return "sampradayas" }
func (s *Sampradaya) ApplyExtras(MasterExtras) {}

type ExperienceLevel struct {
	MasterFields
	MinYears int  `json:"min_years"`
	MaxYears *int `json:"max_years"`
}

func (ExperienceLevel) TableName() string { return "experience_levels" }

func (x *ExperienceLevel) ApplyExtras(e MasterExtras) {
	if e.MinYears != nil {
		x.MinYears = *e.MinYears
	}
	if e.MaxYears != nil {
		x.MaxYears = e.MaxYears
	}
}

type ServiceRadiusOption struct {
	MasterFields
	Km int `json:"km"`
}

func (ServiceRadiusOption) TableName() string { return "service_radius_options" }

func (r *ServiceRadiusOption) ApplyExtras(e MasterExtras) {
	if e.Km != nil {
		r.Km = *e.Km
	}
}

type Term struct {
	MasterFields
	Content string `gorm:"type:text" json:"content"`
	Version string `gorm:"size:20" json:"version"`
}

func (Term) TableName() string { return "terms" }

func (t *Term) ApplyExtras(e MasterExtras) {
	if e.Content != nil {
		t.Content = *e.Content
	}
	if e.Version != nil {
		t.Version = *e.Version
	}
}

// SampradayaCategory says a tradition applies to a service category.
// It is a plain association row and is hard-deleted.
type SampradayaCategory struct {
	SampradayaCode string    `gorm:"primaryKey;size:64" json:"sampradaya_code"`
	CategoryCode   string    `gorm:"primaryKey;size:64;index" json:"category_code"`
	CreatedAt      time.Time `json:"created_at"`
}

func (SampradayaCategory) TableName() string { return "sampradaya_categories" }
