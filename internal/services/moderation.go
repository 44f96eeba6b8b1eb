package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/gorm"
)

const defaultRejectReason = "Rejected by moderator"

// ModerationService applies provider approval decisions. Every transition
// writes an audit entry in the same transaction.
type ModerationService struct {
	db        *gorm.DB
	audit     *SystemLogService
	configSvc *SystemConfigService
	metrics   *Metrics
}

func NewModerationService(db *gorm.DB, audit *SystemLogService, metrics *Metrics) *ModerationService {
	return &ModerationService{
		db:        db,
		audit:     audit,
		configSvc: NewSystemConfigService(db),
		metrics:   metrics,
	}
}

// DefaultRejectReason is used when a moderator gives no reason.
func (s *ModerationService) DefaultRejectReason() string {
	return s.configSvc.GetWithDefault(models.ConfigDefaultRejectMessage, defaultRejectReason)
}

// ApproveProvider moves a pending or rejected provider to approved and
// clears any rejection reason.
func (s *ModerationService) ApproveProvider(ctx context.Context, id string, actor Actor) (*models.Provider, error) {
	return s.transitionProvider(ctx, id, actor, "approve", models.ProviderApproved, "",
		models.ProviderPendingReview, models.ProviderRejected)
}

// RejectProvider moves a pending or approved provider to rejected.
func (s *ModerationService) RejectProvider(ctx context.Context, id, reason string, actor Actor) (*models.Provider, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = s.DefaultRejectReason()
	}
	return s.transitionProvider(ctx, id, actor, "reject", models.ProviderRejected, reason,
		models.ProviderPendingReview, models.ProviderApproved)
}

func (s *ModerationService) transitionProvider(ctx context.Context, id string, actor Actor, action string,
	to models.ProviderStatus, reason string, from ...models.ProviderStatus) (*models.Provider, error) {

	var provider models.Provider
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&provider).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("Not found")
			}
			return err
		}

		prev := provider.Status
		if !statusIn(prev, from) {
			return response.NewConflict(fmt.Sprintf("cannot %s a provider in status %s", action, prev))
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":           to,
			"rejection_reason": reason,
			"reviewed_at":      now,
		}
		if actor.UserID != 0 {
			updates["reviewed_by"] = actor.UserID
		}
		if err := tx.Model(&provider).Updates(updates).Error; err != nil {
			return err
		}
		provider.Status = to
		provider.RejectionReason = reason
		provider.ReviewedAt = &now

		entry := actor.Entry("providers", action, "provider", provider.ID,
			fmt.Sprintf("provider %s: %s -> %s", provider.ID, prev, to))
		entry.Extra = map[string]interface{}{"from": prev, "to": to, "reason": reason}
		s.audit.RecordTx(tx, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition("provider", action)
	logger.Info().Str("provider_id", id).Str("action", action).Str("actor", actor.Email).Msg("provider moderated")
	return &provider, nil
}

func statusIn(s models.ProviderStatus, set []models.ProviderStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
