package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PostType string

const (
	PostTypeEvent        PostType = "event"
	PostTypeAnnouncement PostType = "announcement"
	PostTypeObituary     PostType = "obituary"
	PostTypeNews         PostType = "news"
	PostTypeOther        PostType = "other"
)

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeEvent, PostTypeAnnouncement, PostTypeObituary, PostTypeNews, PostTypeOther:
		return true
	}
	return false
}

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPending   PostStatus = "pending"
	PostApproved  PostStatus = "approved"
	PostPublished PostStatus = "published"
	PostRejected  PostStatus = "rejected"
)

type PostAction string

const (
	PostActionSubmit  PostAction = "submit"
	PostActionApprove PostAction = "approve"
	PostActionPublish PostAction = "publish"
	PostActionReject  PostAction = "reject"
)

// postTransitions is the moderation state machine:
//
//	draft --submit--> pending --approve--> approved --publish--> published
//	pending --reject--> rejected --submit--> pending
var postTransitions = map[PostStatus]map[PostAction]PostStatus{
	PostDraft:    {PostActionSubmit: PostPending},
	PostRejected: {PostActionSubmit: PostPending},
	PostPending:  {PostActionApprove: PostApproved, PostActionReject: PostRejected},
	PostApproved: {PostActionPublish: PostPublished},
}

// Next returns the status reached by applying action, or false when the
// transition is not allowed from s.
func (s PostStatus) Next(action PostAction) (PostStatus, bool) {
	next, ok := postTransitions[s][action]
	return next, ok
}

// Editable reports whether the author may still change the content.
func (s PostStatus) Editable() bool {
	return s == PostDraft || s == PostRejected
}

// OwnerDeletable reports whether the author may delete the post.
func (s PostStatus) OwnerDeletable() bool {
	return s == PostDraft || s == PostPending || s == PostRejected
}

// CommunityPost is an event, announcement or obituary awaiting or past
// moderation. Meta holds type-specific details (venue, organizer, rites).
type CommunityPost struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	Type            PostType       `gorm:"size:30;index;not null" json:"type"`
	Title           string         `gorm:"size:300;not null" json:"title"`
	Body            string         `gorm:"type:text" json:"body"`
	Meta            datatypes.JSON `json:"meta,omitempty"`
	Status          PostStatus     `gorm:"size:20;index;not null" json:"status"`
	RejectionReason string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	AuthorID        uint           `gorm:"index;not null" json:"author_id"`
	ReviewedBy      *uint          `json:"reviewed_by,omitempty"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	PublishedAt     *time.Time     `gorm:"index" json:"published_at,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CommunityPost) TableName() string { return "community_posts" }
