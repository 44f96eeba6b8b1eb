package models

import (
	"fmt"
	"time"

	"github.com/viprasethu/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. The returned handle is shared by
// every service and is safe for concurrent use.
func Open(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logMode := logger.Warn
	if debug {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logMode),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil && cfg.Driver != "sqlite" {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&AdminEmail{},
		&RefreshToken{},
		&Provider{},
		&ProviderPhoto{},
		&CommunityPost{},
		&Category{},
		&Language{},
		&Sampradaya{},
		&ExperienceLevel{},
		&ServiceRadiusOption{},
		&Term{},
		&SampradayaCategory{},
		&SystemLog{},
		&SystemConfig{},
		&SchedulerLock{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	return ensurePrimaryPhotoIndex(db)
}

// ensurePrimaryPhotoIndex backs the one-primary-photo-per-provider rule with
// a partial unique index where the dialect supports one.
func ensurePrimaryPhotoIndex(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "postgres", "sqlite":
		return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_provider_photos_one_primary
			ON provider_photos (provider_id) WHERE is_primary`).Error
	default:
		return nil
	}
}

// SeedDefaultData creates reference rows and settings on an empty database.
func SeedDefaultData(db *gorm.DB) error {
	defaultConfigs := []SystemConfig{
		{Key: ConfigLogRetentionDays, Value: "90", Type: "int", Group: "system", Label: "Audit Log Retention Days"},
		{Key: ConfigAccessTokenHours, Value: "1", Type: "int", Group: "auth", Label: "Access Token Lifetime (hours)"},
		{Key: ConfigRefreshTokenHours, Value: "720", Type: "int", Group: "auth", Label: "Refresh Token Lifetime (hours)"},
		{Key: ConfigDefaultRejectMessage, Value: "Rejected by moderator", Type: "string", Group: "moderation", Label: "Default Rejection Reason"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		db.Model(&SystemConfig{}).Where("config_key = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	var categoryCount int64
	db.Unscoped().Model(&Category{}).Count(&categoryCount)
	if categoryCount == 0 {
		categories := []Category{
			{MasterFields: seedMaster("purohit", "Purohit", 1, "ಪುರೋಹಿತ")},
			{MasterFields: seedMaster("cook", "Cook", 2, "ಅಡುಗೆಯವರು")},
			{MasterFields: seedMaster("vedic_teacher", "Vedic Teacher", 3, "")},
			{MasterFields: seedMaster("astrologer", "Astrologer", 4, "ಜ್ಯೋತಿಷಿ")},
		}
		if err := db.Create(&categories).Error; err != nil {
			return err
		}
	}

	var languageCount int64
	db.Unscoped().Model(&Language{}).Count(&languageCount)
	if languageCount == 0 {
		languages := []Language{
			{MasterFields: seedMaster("kannada", "Kannada", 1, "ಕನ್ನಡ")},
			{MasterFields: seedMaster("sanskrit", "Sanskrit", 2, "")},
			{MasterFields: seedMaster("english", "English", 3, "")},
			{MasterFields: seedMaster("telugu", "Telugu", 4, "")},
			{MasterFields: seedMaster("tamil", "Tamil", 5, "")},
		}
		if err := db.Create(&languages).Error; err != nil {
			return err
		}
	}

	var sampradayaCount int64
	db.Unscoped().Model(&Sampradaya{}).Count(&sampradayaCount)
	if sampradayaCount == 0 {
		sampradayas := []Sampradaya{
			{MasterFields: seedMaster("madhwa", "Madhwa", 1, "ಮಾಧ್ವ")},
			{MasterFields: seedMaster("smartha", "Smartha", 2, "ಸ್ಮಾರ್ತ")},
			{MasterFields: seedMaster("srivaishnava", "Srivaishnava", 3, "")},
		}
		if err := db.Create(&sampradayas).Error; err != nil {
			return err
		}
	}

	return nil
}

func seedMaster(code, name string, order int, kannada string) MasterFields {
	m := MasterFields{Code: code, Name: name, IsActive: true, DisplayOrder: order}
	if kannada != "" {
		m.Translations = map[string]interface{}{"kn": kannada}
	}
	return m
}
