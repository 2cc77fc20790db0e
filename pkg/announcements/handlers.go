package announcements

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/strataops/strata/pkg/httputil"
	"github.com/strataops/strata/pkg/middleware"
	"github.com/strataops/strata/pkg/observability"
	"github.com/strataops/strata/pkg/storage/postgres"
)

// Handlers exposes announcement HTTP endpoints. Each handler acquires an
// RLS-bound connection for the request's tenant, so the repository queries
// only ever see that tenant's rows.
type Handlers struct {
	pool   *postgres.RLSPool
	repo   *Repository
	logger *observability.Logger
}

// NewHandlers creates announcement handlers
func NewHandlers(pool *postgres.RLSPool, logger *observability.Logger) *Handlers {
	return &Handlers{
		pool:   pool,
		repo:   NewRepository(),
		logger: logger,
	}
}

// acquire resolves the tenant context and checks out a scoped connection,
// writing the error response itself when either step fails.
func (h *Handlers) acquire(w http.ResponseWriter, r *http.Request) *postgres.Guard {
	tctx, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteBadRequest(w, "missing or invalid tenant header")
		return nil
	}

	guard, err := h.pool.Acquire(r.Context(), tctx)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrPoolExhausted):
			httputil.WriteServiceUnavailable(w, postgres.ErrPoolExhausted.Error())
		case errors.Is(err, postgres.ErrBindFailed):
			httputil.WriteInternalError(w, postgres.ErrBindFailed.Error())
		default:
			h.logger.WithError(err).Error("connection acquisition failed")
			httputil.WriteInternalError(w, "internal server error")
		}
		return nil
	}

	return guard
}

// List handles GET /announcements
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	guard := h.acquire(w, r)
	if guard == nil {
		return
	}
	defer guard.Release()

	announcements, err := h.repo.List(r.Context(), guard, 50, 0)
	if err != nil {
		h.logger.WithError(err).Error("failed to list announcements")
		httputil.WriteInternalError(w, "internal server error")
		return
	}
	if announcements == nil {
		announcements = []*Announcement{}
	}

	httputil.WriteSuccess(w, announcements)
}

// Get handles GET /announcements/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid announcement id")
		return
	}

	guard := h.acquire(w, r)
	if guard == nil {
		return
	}
	defer guard.Release()

	announcement, err := h.repo.GetByID(r.Context(), guard, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFound(w, "announcement not found")
			return
		}
		h.logger.WithError(err).Error("failed to get announcement")
		httputil.WriteInternalError(w, "internal server error")
		return
	}

	httputil.WriteSuccess(w, announcement)
}

// Create handles POST /announcements
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAnnouncementRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authorization header")
		return
	}

	guard := h.acquire(w, r)
	if guard == nil {
		return
	}
	defer guard.Release()

	announcement, err := h.repo.Create(r.Context(), guard, mustTenantID(r), identity.UserID, req)
	if err != nil {
		h.logger.WithError(err).Error("failed to create announcement")
		httputil.WriteInternalError(w, "internal server error")
		return
	}

	httputil.WriteCreated(w, announcement)
}

// Publish handles POST /announcements/{id}/publish
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid announcement id")
		return
	}

	guard := h.acquire(w, r)
	if guard == nil {
		return
	}
	defer guard.Release()

	if err := h.repo.Publish(r.Context(), guard, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFound(w, "announcement not found")
			return
		}
		h.logger.WithError(err).Error("failed to publish announcement")
		httputil.WriteInternalError(w, "internal server error")
		return
	}

	httputil.WriteNoContent(w)
}

// Pin handles POST /announcements/{id}/pin
func (h *Handlers) Pin(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid announcement id")
		return
	}

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authorization header")
		return
	}

	guard := h.acquire(w, r)
	if guard == nil {
		return
	}
	defer guard.Release()

	if err := h.repo.SetPinned(r.Context(), guard, id, true, identity.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFound(w, "announcement not found")
			return
		}
		h.logger.WithError(err).Error("failed to pin announcement")
		httputil.WriteInternalError(w, "internal server error")
		return
	}

	httputil.WriteNoContent(w)
}

// Unpin handles DELETE /announcements/{id}/pin
func (h *Handlers) Unpin(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid announcement id")
		return
	}

	guard := h.acquire(w, r)
	if guard == nil {
		return
	}
	defer guard.Release()

	if err := h.repo.SetPinned(r.Context(), guard, id, false, uuid.Nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFound(w, "announcement not found")
			return
		}
		h.logger.WithError(err).Error("failed to unpin announcement")
		httputil.WriteInternalError(w, "internal server error")
		return
	}

	httputil.WriteNoContent(w)
}

// Delete handles DELETE /announcements/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid announcement id")
		return
	}

	guard := h.acquire(w, r)
	if guard == nil {
		return
	}
	defer guard.Release()

	if err := h.repo.Delete(r.Context(), guard, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFound(w, "announcement not found")
			return
		}
		h.logger.WithError(err).Error("failed to delete announcement")
		httputil.WriteInternalError(w, "internal server error")
		return
	}

	httputil.WriteNoContent(w)
}

// mustTenantID returns the tenant id from the resolved context. Handlers
// only call this after acquire succeeded, which requires a tenant context.
func mustTenantID(r *http.Request) uuid.UUID {
	tctx, _ := middleware.TenantFromContext(r.Context())
	return tctx.TenantID
}
