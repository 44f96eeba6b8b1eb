package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser   = "user"
	RoleEditor = "editor"
	RoleAdmin  = "admin"

	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

// User is a signed-in member of the community site. OnboardingCompleted is
// nil until the profile step has been seen at least once.
type User struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Email               string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password            string         `gorm:"size:255" json:"-"` // empty for LDAP users
	FullName            string         `gorm:"size:200" json:"full_name"`
	Phone               string         `gorm:"size:40" json:"phone"`
	Role                string         `gorm:"size:20;default:user" json:"role"`       // user, editor, admin
	AuthType            string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive            bool           `gorm:"default:true" json:"is_active"`
	OnboardingCompleted *bool          `json:"onboarding_completed"`
	MFASecret           string         `gorm:"size:128" json:"-"`
	MFAEnabled          bool           `gorm:"default:false" json:"mfa_enabled"`
	LastLogin           *time.Time     `json:"last_login"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// AdminEmail is the allowlist consulted for every /admin request.
type AdminEmail struct {
	Email     string    `gorm:"primaryKey;size:255" json:"email"`
	Note      string    `gorm:"size:255" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (AdminEmail) TableName() string { return "admin_emails" }
