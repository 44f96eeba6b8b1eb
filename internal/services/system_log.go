package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// AuditEntry is one row for the audit trail.
type AuditEntry struct {
	Level      string
	Module     string
	Action     string
	EntityType string
	EntityID   string
	Message    string
	UserID     *uint
	Actor      string
	IP         string
	UserAgent  string
	Extra      interface{}
}

type SystemLogService struct {
	db        *gorm.DB
	configSvc *SystemConfigService
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db, configSvc: NewSystemConfigService(db)}
}

// Record writes an audit entry. Failures are logged and swallowed so the
// audited operation is never undone by its own bookkeeping.
func (s *SystemLogService) Record(ctx context.Context, e AuditEntry) {
	s.RecordTx(s.db.WithContext(ctx), e)
}

// RecordTx writes the entry through tx, so it commits or rolls back with the
// caller's transaction.
func (s *SystemLogService) RecordTx(tx *gorm.DB, e AuditEntry) {
	if s == nil {
		return
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}

	var extraStr string
	if e.Extra != nil {
		if b, err := json.Marshal(e.Extra); err == nil {
			extraStr = string(b)
		}
	}

	row := &models.SystemLog{
		Level:      e.Level,
		Module:     e.Module,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Message:    e.Message,
		UserID:     e.UserID,
		Actor:      e.Actor,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		Extra:      extraStr,
		CreatedAt:  time.Now(),
	}
	if err := tx.Create(row).Error; err != nil {
		logger.Error().Err(err).Str("module", e.Module).Str("action", e.Action).Msg("failed to write audit log")
	}
}

type SystemLogListRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level      string `form:"level"`
	Module     string `form:"module"`
	Action     string `form:"action"`
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
	Search     string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ? ESCAPE '!'", containsPattern(req.Action))
	}
	if req.EntityType != "" {
		query = query.Where("entity_type = ?", req.EntityType)
	}
	if req.EntityID != "" {
		query = query.Where("entity_id = ?", req.EntityID)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ? ESCAPE '!'", containsPattern(req.Search))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *SystemLogService) GetModules() ([]string, error) {
	var modules []string
	if err := s.db.Model(&models.SystemLog{}).Distinct("module").Order("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than the specified number of days
// Returns the number of deleted records
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// GetRetentionDays gets the log retention days from system config
func (s *SystemLogService) GetRetentionDays() int {
	return s.configSvc.GetInt(models.ConfigLogRetentionDays, 90)
}

func (s *SystemLogService) SetRetentionDays(days int) error {
	return s.configSvc.Set(models.ConfigLogRetentionDays, strconv.Itoa(days))
}

// Actor identifies who performed an audited operation.
type Actor struct {
	UserID    uint
	Email     string
	IP        string
	UserAgent string
}

func (a Actor) userID() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// Entry starts an AuditEntry attributed to a.
func (a Actor) Entry(module, action, entityType, entityID, message string) AuditEntry {
	return AuditEntry{
		Module:     module,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    message,
		UserID:     a.userID(),
		Actor:      a.Email,
		IP:         a.IP,
		UserAgent:  a.UserAgent,
	}
}
