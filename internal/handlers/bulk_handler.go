package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

const bulkJobsPrefix = "/api/bulk/jobs/"

// BulkQueueStats exposes scheduler occupancy
type BulkQueueStats interface {
	RunningJobs() int
	QueuedJobs() int
}

// BulkHandler serves the bulk action API
type BulkHandler struct {
	service   interfaces.BulkActionService
	retention time.Duration
	logger    arbor.ILogger
}

// NewBulkHandler creates a bulk handler. retention is the cleanup age used when a request omits max_age.
func NewBulkHandler(service interfaces.BulkActionService, retention time.Duration, logger arbor.ILogger) *BulkHandler {
	return &BulkHandler{
		service:   service,
		retention: retention,
		logger:    logger,
	}
}

type executeRequest struct {
	ActionType  string                 `json:"action_type" validate:"required"`
	RequesterID int64                  `json:"requester_id" validate:"gt=0"`
	ItemIDs     []string               `json:"item_ids" validate:"min=1,dive,required"`
	Parameters  map[string]interface{} `json:"parameters"`
	Async       bool                   `json:"async"`
}

type cancelRequest struct {
	RequesterID int64 `json:"requester_id" validate:"gt=0"`
}

type cleanupRequest struct {
	MaxAge string `json:"max_age"`
}

// ExecuteHandler creates a bulk job - POST /api/bulk/jobs
func (h *BulkHandler) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req executeRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	actionType, err := models.ParseActionType(req.ActionType)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := h.service.ExecuteBulkAction(r.Context(), actionType, req.RequesterID, req.ItemIDs, req.Parameters, req.Async)
	if err != nil {
		status := statusForError(err)
		h.logger.Warn().
			Err(err).
			Str("action_type", req.ActionType).
			Int64("requester_id", req.RequesterID).
			Int("status", status).
			Msg("Bulk action rejected")

		body := map[string]interface{}{"status": "error", "error": err.Error()}
		if jobID != "" {
			body["job_id"] = jobID
		}
		WriteJSON(w, status, body)
		return
	}

	if req.Async {
		WriteJSON(w, http.StatusAccepted, map[string]interface{}{
			"job_id": jobID,
			"status": string(models.JobStatusPending),
		})
		return
	}

	snapshot, _ := h.service.GetJobStatus(jobID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"job":    snapshot,
	})
}

// ListHandler lists a requester's jobs - GET /api/bulk/jobs?requester_id=&limit=
func (h *BulkHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	requesterID, err := strconv.ParseInt(r.URL.Query().Get("requester_id"), 10, 64)
	if err != nil || requesterID <= 0 {
		WriteError(w, http.StatusBadRequest, "requester_id must be a positive integer")
		return
	}
	limit, err := QueryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	jobs := h.service.GetUserJobs(requesterID, limit)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetHandler returns one job - GET /api/bulk/jobs/{id}
func (h *BulkHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshot, ok := h.service.GetJobStatus(PathID(r.URL.Path, bulkJobsPrefix))
	if !ok {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// CancelHandler cancels a job - POST /api/bulk/jobs/{id}/cancel
func (h *BulkHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req cancelRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := PathID(r.URL.Path, bulkJobsPrefix)
	cancelled := h.service.CancelJob(jobID, req.RequesterID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":    jobID,
		"cancelled": cancelled,
	})
}

// DownloadHandler streams the file produced by an export or report job - GET /api/bulk/jobs/{id}/download
func (h *BulkHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshot, ok := h.service.GetJobStatus(PathID(r.URL.Path, bulkJobsPrefix))
	if !ok {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if models.JobStatus(snapshot.Status) != models.JobStatusCompleted {
		WriteError(w, http.StatusConflict, fmt.Sprintf("Job is %s, nothing to download", snapshot.Status))
		return
	}

	content, err := jobFile(snapshot)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	filename, _ := snapshot.ResultData["filename"].(string)
	contentType, _ := snapshot.ResultData["content_type"].(string)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// CleanupHandler removes old terminal jobs - POST /api/bulk/cleanup
func (h *BulkHandler) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req cleanupRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	age := h.retention
	if req.MaxAge != "" {
		parsed, err := time.ParseDuration(req.MaxAge)
		if err != nil || parsed < 0 {
			WriteError(w, http.StatusBadRequest, "max_age must be a non-negative duration such as \"24h\"")
			return
		}
		age = parsed
	}

	removed := h.service.CleanupOldJobs(age)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"max_age": age.String(),
	})
}

// ActionsHandler lists supported action types - GET /api/bulk/actions
func (h *BulkHandler) ActionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	types := h.service.ActionTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"action_types": names,
	})
}

// StatsHandler reports scheduler occupancy - GET /api/bulk/stats
func (h *BulkHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, ok := h.service.(BulkQueueStats)
	if !ok {
		WriteError(w, http.StatusNotImplemented, "Queue statistics unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{
		"running": stats.RunningJobs(),
		"queued":  stats.QueuedJobs(),
	})
}

// jobFile extracts a downloadable payload from a completed job's result data
func jobFile(snapshot models.JobSnapshot) ([]byte, error) {
	data := snapshot.ResultData
	if content, ok := data["content"].(string); ok {
		if format, _ := data["format"].(string); format == "pdf" {
			return base64.StdEncoding.DecodeString(content)
		}
		return []byte(content), nil
	}
	for key, value := range data {
		if s, ok := value.(string); ok && strings.HasSuffix(key, "_data") {
			return []byte(s), nil
		}
	}
	return nil, errors.New("job produced no downloadable file")
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, bulk.ErrInvalidRequest), errors.Is(err, bulk.ErrUnknownActionType):
		return http.StatusBadRequest
	case errors.Is(err, bulk.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, bulk.ErrServiceStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
