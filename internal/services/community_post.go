package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PostInput is the create/edit body for a community post.
type PostInput struct {
	Type   string          `json:"type"`
	Title  string          `json:"title"`
	Body   string          `json:"body"`
	Meta   json.RawMessage `json:"meta"`
	Submit bool            `json:"submit"`
}

type PostListQuery struct {
	Type     string `form:"type"`
	Status   string `form:"status"`
	AuthorID uint   `form:"-"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type PostListResult struct {
	Items    []models.CommunityPost `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

// CommunityPostService owns the post moderation state machine. Status only
// changes through Transition; illegal moves are conflicts.
type CommunityPostService struct {
	db         *gorm.DB
	moderation *ModerationService
	audit      *SystemLogService
	metrics    *Metrics
}

func NewCommunityPostService(db *gorm.DB, moderation *ModerationService, audit *SystemLogService, metrics *Metrics) *CommunityPostService {
	return &CommunityPostService{db: db, moderation: moderation, audit: audit, metrics: metrics}
}

func validatePostInput(in *PostInput) (models.PostType, string, datatypes.JSON, error) {
	t := models.PostType(strings.ToLower(strings.TrimSpace(in.Type)))
	if t == "" {
		t = models.PostTypeOther
	}
	if !t.Valid() {
		return "", "", nil, response.NewBadRequest(fmt.Sprintf("unknown post type %q", in.Type))
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", "", nil, response.NewBadRequest("title is required")
	}

	var meta datatypes.JSON
	if len(in.Meta) > 0 && string(in.Meta) != "null" {
		var probe map[string]interface{}
		if err := json.Unmarshal(in.Meta, &probe); err != nil {
			return "", "", nil, response.NewBadRequest("meta must be a JSON object")
		}
		meta = datatypes.JSON(in.Meta)
	}
	return t, title, meta, nil
}

// Create stores a draft, or a pending post when in.Submit is set.
func (s *CommunityPostService) Create(ctx context.Context, in *PostInput, actor Actor) (*models.CommunityPost, error) {
	t, title, meta, err := validatePostInput(in)
	if err != nil {
		return nil, err
	}

	post := &models.CommunityPost{
		ID:       uuid.NewString(),
		Type:     t,
		Title:    title,
		Body:     strings.TrimSpace(in.Body),
		Meta:     meta,
		Status:   models.PostDraft,
		AuthorID: actor.UserID,
	}
	if in.Submit {
		now := time.Now()
		post.Status = models.PostPending
		post.SubmittedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *CommunityPostService) get(db *gorm.DB, id string) (*models.CommunityPost, error) {
	var post models.CommunityPost
	if err := db.Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Not found")
		}
		return nil, err
	}
	return &post, nil
}

// Get returns any post; callers decide visibility.
func (s *CommunityPostService) Get(ctx context.Context, id string) (*models.CommunityPost, error) {
	return s.get(s.db.WithContext(ctx), id)
}

// GetPublished returns a post only when it is published.
func (s *CommunityPostService) GetPublished(ctx context.Context, id string) (*models.CommunityPost, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostPublished {
		return nil, response.NewNotFound("Not found")
	}
	return post, nil
}

// List pages through posts, newest first.
func (s *CommunityPostService) List(ctx context.Context, q PostListQuery) (*PostListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > MaxSearchLimit {
		q.PageSize = DefaultSearchLimit
	}

	query := s.db.WithContext(ctx).Model(&models.CommunityPost{})
	if q.Type != "" {
		query = query.Where("type = ?", q.Type)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.AuthorID != 0 {
		query = query.Where("author_id = ?", q.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	items := make([]models.CommunityPost, 0)
	order := "created_at DESC"
	if q.Status == string(models.PostPublished) {
		order = "published_at DESC, created_at DESC"
	}
	if err := query.Order(order).Offset((q.Page - 1) * q.PageSize).Limit(q.PageSize).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return &PostListResult{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// Update edits content. Authors may edit only drafts and rejected posts;
// admins may edit anything that is not yet published.
func (s *CommunityPostService) Update(ctx context.Context, id string, in *PostInput, actor Actor, isAdmin bool) (*models.CommunityPost, error) {
	t, title, meta, err := validatePostInput(in)
	if err != nil {
		return nil, err
	}

	var post *models.CommunityPost
	var submitted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.get(tx, id)
		if err != nil {
			return err
		}
		if !isAdmin {
			if p.AuthorID != actor.UserID {
				return response.NewForbidden("only the author can edit this post")
			}
			if !p.Status.Editable() {
				return response.NewConflict(fmt.Sprintf("a %s post cannot be edited", p.Status))
			}
		} else if p.Status == models.PostPublished {
			return response.NewConflict("a published post cannot be edited")
		}

		if err := tx.Model(p).Updates(map[string]interface{}{
			"type":  t,
			"title": title,
			"body":  strings.TrimSpace(in.Body),
			"meta":  meta,
		}).Error; err != nil {
			return err
		}
		p.Type, p.Title, p.Body, p.Meta = t, title, strings.TrimSpace(in.Body), meta

		if submitted = in.Submit && p.Status != models.PostPending; submitted {
			if err := s.applyTransition(tx, p, models.PostActionSubmit, "", actor); err != nil {
				return err
			}
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if submitted {
		s.metrics.ObserveTransition("post", string(models.PostActionSubmit))
	}
	return post, nil
}

// Delete soft-deletes a post. Authors may delete drafts, pending and
// rejected posts; admins may delete any post.
func (s *CommunityPostService) Delete(ctx context.Context, id string, actor Actor, isAdmin bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.get(tx, id)
		if err != nil {
			return err
		}
		if !isAdmin {
			if p.AuthorID != actor.UserID {
				return response.NewForbidden("only the author can delete this post")
			}
			if !p.Status.OwnerDeletable() {
				return response.NewConflict(fmt.Sprintf("a %s post cannot be deleted by its author", p.Status))
			}
		}
		if err := tx.Delete(p).Error; err != nil {
			return err
		}
		if isAdmin {
			s.audit.RecordTx(tx, actor.Entry("posts", "delete", "post", p.ID, "post deleted: "+p.Title))
		}
		return nil
	})
}

// Transition applies a moderation action. Submit is the author's action;
// approve, publish and reject need an admin.
func (s *CommunityPostService) Transition(ctx context.Context, id string, action models.PostAction, reason string, actor Actor, isAdmin bool) (*models.CommunityPost, error) {
	if action != models.PostActionSubmit && !isAdmin {
		return nil, response.NewForbidden("admin access required")
	}
	if action == models.PostActionReject {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = s.moderation.DefaultRejectReason()
		}
	}

	var post *models.CommunityPost
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.get(tx, id)
		if err != nil {
			return err
		}
		if action == models.PostActionSubmit && !isAdmin && p.AuthorID != actor.UserID {
			return response.NewForbidden("only the author can submit this post")
		}
		if err := s.applyTransition(tx, p, action, reason, actor); err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition("post", string(action))
	return post, nil
}

// applyTransition moves p along action inside tx and records the audit
// entry. Illegal moves return 409 and write nothing.
func (s *CommunityPostService) applyTransition(tx *gorm.DB, p *models.CommunityPost, action models.PostAction, reason string, actor Actor) error {
	prev := p.Status
	next, ok := prev.Next(action)
	if !ok {
		return response.NewConflict(fmt.Sprintf("cannot %s a %s post", action, prev))
	}

	now := time.Now()
	updates := map[string]interface{}{"status": next}
	switch action {
	case models.PostActionSubmit:
		updates["submitted_at"] = now
		updates["rejection_reason"] = ""
		p.SubmittedAt = &now
		p.RejectionReason = ""
	case models.PostActionApprove:
		updates["approved_at"] = now
		updates["reviewed_by"] = actor.UserID
		p.ApprovedAt = &now
	case models.PostActionPublish:
		updates["published_at"] = now
		p.PublishedAt = &now
	case models.PostActionReject:
		updates["rejection_reason"] = reason
		updates["reviewed_by"] = actor.UserID
		p.RejectionReason = reason
	}

	if err := tx.Model(p).Updates(updates).Error; err != nil {
		return err
	}
	p.Status = next

	entry := actor.Entry("posts", string(action), "post", p.ID, fmt.Sprintf("post %s: %s -> %s", p.ID, prev, next))
	entry.Extra = map[string]interface{}{"from": prev, "to": next, "reason": reason}
	s.audit.RecordTx(tx, entry)
	return nil
}
