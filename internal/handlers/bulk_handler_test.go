package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/models"
)

func failingItems(ctx context.Context, itemID string) error {
	if strings.HasPrefix(itemID, "bad") {
		return errors.New("Item " + itemID + " rejected")
	}
	return nil
}

func newBulkService(t *testing.T, cfg bulk.Config) *bulk.Service {
	t.Helper()
	registry := bulk.NewHandlerRegistry()
	require.NoError(t, registry.Register(models.ActionGuestCheckout, bulk.HandlerFunc(
		func(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
			outcomes, err := bulk.ProcessItems(ctx, job, tracker, failingItems)
			if err != nil {
				return nil, err
			}
			return models.NewActionResult(outcomes), nil
		})))
	require.NoError(t, registry.Register(models.ActionGuestExport, bulk.HandlerFunc(
		func(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
			outcomes, err := bulk.ProcessItems(ctx, job, tracker, failingItems)
			if err != nil {
				return nil, err
			}
			result := models.NewActionResult(outcomes)
			result.Data = map[string]interface{}{
				"csv_data":     "ID,Name\n1,Ana\n",
				"filename":     "guests.csv",
				"format":       "csv",
				"content_type": "text/csv",
			}
			return result, nil
		})))
	require.NoError(t, registry.Register(models.ActionReportGenerate, bulk.HandlerFunc(
		func(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
			outcomes, err := bulk.ProcessItems(ctx, job, tracker, failingItems)
			if err != nil {
				return nil, err
			}
			result := models.NewActionResult(outcomes)
			result.Data = map[string]interface{}{
				"content":      base64.StdEncoding.EncodeToString([]byte("%PDF-1.3 report")),
				"filename":     "report.pdf",
				"format":       "pdf",
				"content_type": "application/pdf",
			}
			return result, nil
		})))

	svc := bulk.NewService(cfg, registry, arbor.NewLogger())
	svc.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestExecuteHandler_Sync(t *testing.T) {
	svc := newBulkService(t, bulk.DefaultConfig())
	h := NewBulkHandler(svc, time.Hour, arbor.NewLogger())

	rec := doJSON(t, h.ExecuteHandler, "POST", "/api/bulk/jobs", map[string]interface{}{
		"action_type":  "guest_checkout",
		"requester_id": 7,
		"item_ids":     []string{"1", "bad-2", "3"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["job_id"])
	job := body["job"].(map[string]interface{})
	assert.Equal(t, "completed", job["status"])
	assert.Equal(t, float64(2), job["processed_items"])
	assert.Equal(t, float64(1), job["failed_items"])
	assert.Equal(t, float64(100), job["progress"])
	assert.Equal(t, []interface{}{"Item bad-2 rejected"}, job["errors"])
}

func TestExecuteHandler_AsyncThenGet(t *testing.T) {
	svc := newBulkService(t, bulk.DefaultConfig())
	h := NewBulkHandler(svc, time.Hour, arbor.NewLogger())

	rec := doJSON(t, h.ExecuteHandler, "POST", "/api/bulk/jobs", map[string]interface{}{
		"action_type":  "guest_checkout",
		"requester_id": 7,
		"item_ids":     []string{"1"},
		"async":        true,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.GetHandler(rec, httptest.NewRequest("GET", "/api/bulk/jobs/"+jobID, nil))
		var snap models.JobSnapshot
		return rec.Code == http.StatusOK && json.Unmarshal(rec.Body.Bytes(), &snap) == nil && snap.Status == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	rec = doJSON(t, h.GetHandler, "GET", "/api/bulk/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteHandler_Validation(t *testing.T) {
	svc := newBulkService(t, bulk.DefaultConfig())
	h := NewBulkHandler(svc, time.Hour, arbor.NewLogger())

	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"missing action", map[string]interface{}{"requester_id": 1, "item_ids": []string{"1"}}, "action_type is required"},
		{"empty items", map[string]interface{}{"action_type": "guest_checkout", "requester_id": 1, "item_ids": []string{}}, "item_ids"},
		{"blank item", map[string]interface{}{"action_type": "guest_checkout", "requester_id": 1, "item_ids": []string{""}}, "item_ids[0] is required"},
		{"no requester", map[string]interface{}{"action_type": "guest_checkout", "item_ids": []string{"1"}}, "requester_id"},
		{"unknown action", map[string]interface{}{"action_type": "teleport", "requester_id": 1, "item_ids": []string{"1"}}, "unknown action type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h.ExecuteHandler, "POST", "/api/bulk/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec)["error"], tt.want)
		})
	}

	req := httptest.NewRequest("POST", "/api/bulk/jobs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ExecuteHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.ExecuteHandler, "GET", "/api/bulk/jobs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExecuteHandler_UnregisteredActionFails(t *testing.T) {
	svc := newBulkService(t, bulk.DefaultConfig())
	h := NewBulkHandler(svc, time.Hour, arbor.NewLogger())

	rec := doJSON(t, h.ExecuteHandler, "POST", "/api/bulk/jobs", map[string]interface{}{
		"action_type":  "inventory_update",
		"requester_id": 1,
		"item_ids":     []string{"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	job := decodeBody(t, rec)["job"].(map[string]interface{})
	assert.Equal(t, "failed", job["status"])
	assert.NotEmpty(t, job["error_message"])
}

func TestListAndCancelHandlers(t *testing.T) {
	svc := newBulkService(t, bulk.DefaultConfig())
	h := NewBulkHandler(svc, time.Hour, arbor.NewLogger())

	for i := 0; i < 3; i++ {
		rec := doJSON(t, h.ExecuteHandler, "POST", "/api/bulk/jobs", map[string]interface{}{
			"action_type":  "guest_checkout",
			"requester_id": 5,
			"item_ids":     []string{"1"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, h.ListHandler, "GET", "/api/bulk/jobs?requester_id=5&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])

	rec = doJSON(t, h.ListHandler, "GET", "/api/bulk/jobs", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	jobID := body["jobs"].([]interface{})[0].(map[string]interface{})["id"].(string)
	rec = doJSON(t, h.CancelHandler, "POST", "/api/bulk/jobs/"+jobID+"/cancel", map[string]interface{}{"requester_id": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["cancelled"], "terminal jobs cannot be cancelled")

	rec = doJSON(t, h.CancelHandler, "POST", "/api/bulk/jobs/"+jobID+"/cancel", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadHandler(t *testing.T) {
	svc := newBulkService(t, bulk.DefaultConfig())
	h := NewBulkHandler(svc, time.Hour, arbor.NewLogger())

	run := func(action string) string {
		rec := doJSON(t, h.ExecuteHandler, "POST", "/api/bulk/jobs", map[string]interface{}{
			"action_type":  action,
			"requester_id": 1,
			"item_ids":     []string{"1"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeBody(t, rec)["job_id"].(string)
	}

	rec := doJSON(t, h.DownloadHandler, "GET", "/api/bulk/jobs/"+run("guest_export")+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="guests.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID,Name\n1,Ana\n", rec.Body.String())

	rec = doJSON(t, h.DownloadHandler, "GET", "/api/bulk/jobs/"+run("report_generate")+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.3 report", rec.Body.String())

	rec = doJSON(t, h.DownloadHandler, "GET", "/api/bulk/jobs/"+run("guest_checkout")+"/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanupActionsAndStatsHandlers(t *testing.T) {
	svc := newBulkService(t, bulk.DefaultConfig())
	h := NewBulkHandler(svc, time.Hour, arbor.NewLogger())

	rec := doJSON(t, h.ExecuteHandler, "POST", "/api/bulk/jobs", map[string]interface{}{
		"action_type":  "guest_checkout",
		"requester_id": 1,
		"item_ids":     []string{"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Default retention keeps the fresh job
	rec = doJSON(t, h.CleanupHandler, "POST", "/api/bulk/cleanup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["removed"])

	rec = doJSON(t, h.CleanupHandler, "POST", "/api/bulk/cleanup", map[string]string{"max_age": "0s"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["removed"])

	rec = doJSON(t, h.CleanupHandler, "POST", "/api/bulk/cleanup", map[string]string{"max_age": "soon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.ActionsHandler, "GET", "/api/bulk/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"guest_checkout", "guest_export", "report_generate"}, decodeBody(t, rec)["action_types"])

	rec = doJSON(t, h.StatsHandler, "GET", "/api/bulk/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["running"])
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForError(bulk.ErrInvalidRequest))
	assert.Equal(t, http.StatusTooManyRequests, statusForError(bulk.ErrQueueFull))
	assert.Equal(t, http.StatusServiceUnavailable, statusForError(bulk.ErrServiceStopped))
	assert.Equal(t, http.StatusServiceUnavailable, statusForError(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, statusForError(errors.New("boom")))
}

func TestPathID(t *testing.T) {
	assert.Equal(t, "abc", PathID("/api/bulk/jobs/abc", bulkJobsPrefix))
	assert.Equal(t, "abc", PathID("/api/bulk/jobs/abc/cancel", bulkJobsPrefix))
	assert.Equal(t, "", PathID("/api/other", bulkJobsPrefix))
}
