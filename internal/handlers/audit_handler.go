package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/models"
)

const defaultAuditLimit = 100

// AuditReader reads the audit trail
type AuditReader interface {
	List(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	ListForJob(ctx context.Context, jobID string) ([]*models.AuditEvent, error)
}

type AuditHandler struct {
	audit  AuditReader
	logger arbor.ILogger
}

func NewAuditHandler(audit AuditReader, logger arbor.ILogger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// ListHandler returns recent audit events - GET /api/audit?limit= or ?job_id=
func (h *AuditHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var (
		events []*models.AuditEvent
		err    error
	)
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		events, err = h.audit.ListForJob(r.Context(), jobID)
	} else {
		limit, perr := QueryInt(r, "limit", defaultAuditLimit)
		if perr != nil || limit < 1 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		events, err = h.audit.List(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list audit events")
		WriteError(w, http.StatusInternalServerError, "Failed to list audit events")
		return
	}

	if events == nil {
		events = []*models.AuditEvent{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
