package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/http/response"
	snapcore "github.com/yungbote/budgetvault-backend/internal/modules/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/platform/apierr"
	"github.com/yungbote/budgetvault-backend/internal/platform/ctxutil"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
	"github.com/yungbote/budgetvault-backend/internal/services"
)

type SnapshotHandler struct {
	log       *logger.Logger
	snapshots services.SnapshotService
}

func NewSnapshotHandler(log *logger.Logger, snapshots services.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{log: log.With("handler", "SnapshotHandler"), snapshots: snapshots}
}

type createSnapshotRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Positions   []snapcore.Position `json:"positions" binding:"required"`
	HeaderKPI   snapcore.HeaderKPI  `json:"header_kpi"`
	CreatedBy   string              `json:"created_by"`
}

type unlockSnapshotRequest struct {
	Reason    string `json:"reason"`
	CreatedBy string `json:"created_by"`
}

type restoreSnapshotRequest struct {
	Comment   string `json:"comment"`
	CreatedBy string `json:"created_by"`
}

// POST /api/projects/:project_id/snapshots
func (h *SnapshotHandler) CreateSnapshot(c *gin.Context) {
	var req createSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	row, err := h.snapshots.Create(c.Request.Context(), services.CreateSnapshotInput{
		ProjectID:   c.Param("project_id"),
		Name:        req.Name,
		Description: req.Description,
		Positions:   req.Positions,
		HeaderKPI:   req.HeaderKPI,
		CreatedBy:   resolveActor(c, req.CreatedBy),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"snapshot": row})
}

// GET /api/projects/:project_id/snapshots
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	entries, err := h.snapshots.List(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []snapcore.Entry{}
	}
	response.RespondOK(c, gin.H{"snapshots": entries})
}

// GET /api/projects/:project_id/snapshots/active
func (h *SnapshotHandler) GetActiveSnapshot(c *gin.Context) {
	row, err := h.snapshots.Active(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": row})
}

// GET /api/projects/:project_id/snapshots/audit
func (h *SnapshotHandler) AuditSnapshots(c *gin.Context) {
	report, err := h.snapshots.Audit(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"audit": report})
}

// GET /api/snapshots/:id
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	id, ok := snapshotIDParam(c)
	if !ok {
		return
	}
	row, integrity, err := h.snapshots.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": row, "integrity": integrity})
}

// GET /api/snapshots/:id/lineage
func (h *SnapshotHandler) GetSnapshotLineage(c *gin.Context) {
	id, ok := snapshotIDParam(c)
	if !ok {
		return
	}
	chain, err := h.snapshots.Lineage(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lineage": chain})
}

// POST /api/snapshots/:id/restore
func (h *SnapshotHandler) RestoreSnapshot(c *gin.Context) {
	id, ok := snapshotIDParam(c)
	if !ok {
		return
	}
	var req restoreSnapshotRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}
	restored, err := h.snapshots.Restore(c.Request.Context(), id, req.Comment, resolveActor(c, req.CreatedBy))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondCreated(c, restored)
}

// POST /api/snapshots/:id/unlock
func (h *SnapshotHandler) UnlockSnapshot(c *gin.Context) {
	id, ok := snapshotIDParam(c)
	if !ok {
		return
	}
	var req unlockSnapshotRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}
	draft, err := h.snapshots.Unlock(c.Request.Context(), id, req.Reason, resolveActor(c, req.CreatedBy))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"snapshot": draft})
}

// DELETE /api/snapshots/:id
func (h *SnapshotHandler) DeleteSnapshot(c *gin.Context) {
	id, ok := snapshotIDParam(c)
	if !ok {
		return
	}
	if err := h.snapshots.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}

func (h *SnapshotHandler) fail(c *gin.Context, err error) {
	ae := snapshotAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		h.log.Error("snapshot request failed", "path", c.FullPath(), "error", err)
	}
	response.RespondAPIError(c, ae)
}

// snapshotAPIError maps the domain taxonomy onto HTTP statuses.
func snapshotAPIError(err error) *apierr.Error {
	switch domain.CodeOf(err) {
	case domain.CodeValidation:
		return apierr.New(http.StatusBadRequest, "validation_error", err)
	case domain.CodeNotFound:
		return apierr.New(http.StatusNotFound, "snapshot_not_found", err)
	case domain.CodeInvariantViolation:
		return apierr.New(http.StatusBadRequest, "snapshot_locked", err)
	case domain.CodeConflict:
		return apierr.New(http.StatusConflict, "conflict", err)
	case domain.CodeRetryable:
		return apierr.New(http.StatusServiceUnavailable, "retryable", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

func snapshotIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds like ShouldBindJSON but accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		response.RespondError(c, http.StatusBadRequest, "validation_error",
			errors.New("missing or invalid fields: "+strings.Join(fields, ", ")))
		return
	}
	response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
}

// resolveActor prefers the authenticated actor. The body's created_by only
// names the author of anonymous requests.
func resolveActor(c *gin.Context, fromBody string) *string {
	if v := ctxutil.ActorFromContext(c.Request.Context()); v != "" {
		return &v
	}
	if v := strings.TrimSpace(fromBody); v != "" {
		return &v
	}
	return nil
}
