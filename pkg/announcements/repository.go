package announcements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/strataops/strata/pkg/storage/postgres"
)

var (
	// ErrNotFound indicates no announcement row was visible to this session
	ErrNotFound = errors.New("announcement not found")

	errEmptyTitle   = errors.New("title is required")
	errEmptyContent = errors.New("content is required")
)

// Repository runs announcement queries on whatever executor it is handed.
// Handlers pass the request's RLS-bound guard, so every query here is
// already scoped to the caller's tenant; none of the statements filter by
// tenant explicitly.
type Repository struct{}

// NewRepository creates an announcement repository
func NewRepository() *Repository {
	return &Repository{}
}

const announcementColumns = `id, organization_id, author_id, title, content, status,
	       pinned, scheduled_at, published_at, created_at, updated_at`

// Create inserts a new announcement authored by the given user. Scheduled
// announcements start in scheduled status, everything else starts as a draft.
func (r *Repository) Create(ctx context.Context, exec postgres.Executor, tenantID, authorID uuid.UUID, req CreateAnnouncementRequest) (*Announcement, error) {
	status := StatusDraft
	if req.ScheduledAt != nil {
		status = StatusScheduled
	}

	query := `
		INSERT INTO announcements (organization_id, author_id, title, content, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + announcementColumns

	row := exec.QueryRowContext(ctx, query, tenantID, authorID, req.Title, req.Content, status, req.ScheduledAt)
	return scanAnnouncement(row)
}

// GetByID retrieves a single announcement visible to the current session
func (r *Repository) GetByID(ctx context.Context, exec postgres.Executor, id uuid.UUID) (*Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`

	announcement, err := scanAnnouncement(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return announcement, err
}

// List retrieves announcements visible to the current session, pinned first
func (r *Repository) List(ctx context.Context, exec postgres.Executor, limit, offset int) ([]*Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + announcementColumns + `
		FROM announcements
		ORDER BY pinned DESC, created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := exec.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	var announcements []*Announcement
	for rows.Next() {
		a := &Announcement{}
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.AuthorID, &a.Title, &a.Content, &a.Status,
			&a.Pinned, &a.ScheduledAt, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate announcements: %w", err)
	}

	return announcements, nil
}

// Publish transitions an announcement to published and stamps published_at
func (r *Repository) Publish(ctx context.Context, exec postgres.Executor, id uuid.UUID) error {
	query := `
		UPDATE announcements
		SET status = $1, published_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)`

	result, err := exec.ExecContext(ctx, query, StatusPublished, id, StatusDraft, StatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to publish announcement: %w", err)
	}

	return requireRow(result)
}

// SetPinned pins or unpins an announcement
func (r *Repository) SetPinned(ctx context.Context, exec postgres.Executor, id uuid.UUID, pinned bool, pinnedBy uuid.UUID) error {
	var query string
	var err error
	var result sql.Result
	if pinned {
		query = `UPDATE announcements SET pinned = TRUE, pinned_at = NOW(), pinned_by = $1, updated_at = NOW() WHERE id = $2`
		result, err = exec.ExecContext(ctx, query, pinnedBy, id)
	} else {
		query = `UPDATE announcements SET pinned = FALSE, pinned_at = NULL, pinned_by = NULL, updated_at = NOW() WHERE id = $1`
		result, err = exec.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update pin state: %w", err)
	}

	return requireRow(result)
}

// Delete removes an announcement
func (r *Repository) Delete(ctx context.Context, exec postgres.Executor, id uuid.UUID) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete announcement: %w", err)
	}

	return requireRow(result)
}

func scanAnnouncement(row *sql.Row) (*Announcement, error) {
	a := &Announcement{}
	err := row.Scan(
		&a.ID, &a.TenantID, &a.AuthorID, &a.Title, &a.Content, &a.Status,
		&a.Pinned, &a.ScheduledAt, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan announcement: %w", err)
	}
	return a, nil
}

// requireRow maps zero affected rows to ErrNotFound. With RLS in effect a
// row in another tenant is indistinguishable from a missing row.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
