package announcements

import (
	"time"

	"github.com/google/uuid"
)

// Announcement statuses
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Announcement is a tenant-scoped communication posted to residents
type Announcement struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Status      string     `json:"status"`
	Pinned      bool       `json:"pinned"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsDraft reports whether the announcement has not been published or scheduled
func (a *Announcement) IsDraft() bool {
	return a.Status == StatusDraft
}

// CanEdit reports whether the announcement may still be modified
func (a *Announcement) CanEdit() bool {
	return a.Status == StatusDraft || a.Status == StatusScheduled
}

// CreateAnnouncementRequest is the payload for creating an announcement
type CreateAnnouncementRequest struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// Validate checks required fields
func (r *CreateAnnouncementRequest) Validate() error {
	if r.Title == "" {
		return errEmptyTitle
	}
	if r.Content == "" {
		return errEmptyContent
	}
	return nil
}
