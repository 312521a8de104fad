// -----------------------------------------------------------------------
// Job Registry - in-memory owner of every bulk job record
// -----------------------------------------------------------------------

package bulk

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/bulkops/internal/models"
)

// DefaultListLimit is used when neither the caller nor the config supplies a limit
const DefaultListLimit = 50

type jobEntry struct {
	job    models.BulkJob
	seq    uint64
	cancel context.CancelFunc
}

// Registry exclusively owns bulk job records.
// All reads return snapshots; all mutations happen under a single mutex.
type Registry struct {
	mu           sync.Mutex
	jobs         map[string]*jobEntry
	seq          uint64
	defaultLimit int
	now          func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(defaultLimit int) *Registry {
	if defaultLimit <= 0 {
		defaultLimit = DefaultListLimit
	}
	return &Registry{
		jobs:         make(map[string]*jobEntry),
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// Create registers a new PENDING job and returns its snapshot
func (r *Registry) Create(actionType models.ActionType, requesterID int64, itemIDs []string, params map[string]interface{}) (models.JobSnapshot, error) {
	if !actionType.IsValid() {
		return models.JobSnapshot{}, fmt.Errorf("%w: unsupported action type %q", ErrInvalidRequest, actionType)
	}
	if len(itemIDs) == 0 {
		return models.JobSnapshot{}, fmt.Errorf("%w: item_ids must not be empty", ErrInvalidRequest)
	}

	copiedParams := make(map[string]interface{}, len(params))
	for k, v := range params {
		copiedParams[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	job := models.BulkJob{
		ID:          uuid.New().String(),
		ActionType:  actionType,
		RequesterID: requesterID,
		ItemIDs:     append([]string(nil), itemIDs...),
		Parameters:  copiedParams,
		Status:      models.JobStatusPending,
		TotalItems:  len(itemIDs),
		CreatedAt:   r.now(),
	}
	r.jobs[job.ID] = &jobEntry{job: job, seq: r.seq}

	return job.Snapshot(), nil
}

// Get returns a snapshot of the job, if tracked
func (r *Registry) Get(jobID string) (models.JobSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return models.JobSnapshot{}, false
	}
	return e.job.Snapshot(), true
}

// ListByRequester returns the requester's jobs, newest first
func (r *Registry) ListByRequester(requesterID int64, limit int) []models.JobSnapshot {
	if limit <= 0 {
		limit = r.defaultLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*jobEntry, 0)
	for _, e := range r.jobs {
		if e.job.RequesterID == requesterID {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.After(b.job.CreatedAt)
		}
		return a.seq > b.seq
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]models.JobSnapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.job.Snapshot())
	}
	return out
}

// Remove deletes a terminal job
func (r *Registry) Remove(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if !e.job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobNotTerminal, jobID, e.job.Status)
	}
	delete(r.jobs, jobID)
	return nil
}

// Len returns the number of tracked jobs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// start moves a PENDING job to RUNNING and attaches its cancel func.
// Returns false when the job is missing or no longer pending.
func (r *Registry) start(jobID string, cancel context.CancelFunc) (models.BulkJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.job.Status != models.JobStatusPending {
		return models.BulkJob{}, false
	}

	now := r.now()
	e.job.Status = models.JobStatusRunning
	e.job.StartedAt = &now
	e.job.Progress = 0
	e.cancel = cancel

	return e.job.Clone(), true
}

// recordItem applies one item outcome to a RUNNING job
func (r *Registry) recordItem(jobID string, outcome models.ItemOutcome) (models.JobSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.job.Status != models.JobStatusRunning {
		return models.JobSnapshot{}, false
	}
	job := &e.job
	if job.ProcessedItems+job.FailedItems >= job.TotalItems {
		return job.Snapshot(), false
	}

	if outcome.OK {
		job.ProcessedItems++
	} else {
		job.FailedItems++
		if outcome.Error != "" {
			job.Errors = append(job.Errors, outcome.Error)
		}
	}

	progress := (job.ProcessedItems + job.FailedItems) * 100 / job.TotalItems
	if progress > job.Progress {
		job.Progress = progress
	}

	return job.Snapshot(), true
}

// finish applies a handler's result to a RUNNING job.
// A result that failed without processing anything marks the job FAILED.
func (r *Registry) finish(jobID string, result *models.ActionResult) (models.JobSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.job.Status != models.JobStatusRunning {
		return models.JobSnapshot{}, false
	}
	job := &e.job

	processed, failed := result.ProcessedCount, result.FailedCount
	if processed < 0 {
		processed = 0
	}
	if processed > job.TotalItems {
		processed = job.TotalItems
	}
	if failed < 0 {
		failed = 0
	}
	if processed+failed > job.TotalItems {
		failed = job.TotalItems - processed
	}

	job.ProcessedItems = processed
	job.FailedItems = failed
	job.Errors = append([]string(nil), result.Errors...)

	now := r.now()
	job.CompletedAt = &now
	e.cancel = nil

	if !result.Success && processed == 0 {
		job.Status = models.JobStatusFailed
		job.ErrorMessage = strings.Join(result.Errors, "; ")
		if job.ErrorMessage == "" {
			job.ErrorMessage = "no items were processed"
		}
		return job.Snapshot(), true
	}

	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.ResultData = make(map[string]interface{}, len(result.Data))
	for k, v := range result.Data {
		job.ResultData[k] = v
	}
	return job.Snapshot(), true
}

// fail marks a non-terminal job FAILED with a job-level error
func (r *Registry) fail(jobID string, err error) (models.JobSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.job.Status.IsTerminal() {
		return models.JobSnapshot{}, false
	}
	job := &e.job

	now := r.now()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = err.Error()
	job.FailedItems = job.TotalItems - job.ProcessedItems
	job.CompletedAt = &now
	e.cancel = nil

	return job.Snapshot(), true
}

// cancel marks the requester's PENDING or RUNNING job CANCELLED and fires its cancel func
func (r *Registry) cancel(jobID string, requesterID int64) (models.JobSnapshot, bool) {
	r.mu.Lock()
	e, ok := r.jobs[jobID]
	if !ok || e.job.RequesterID != requesterID || e.job.Status.IsTerminal() {
		r.mu.Unlock()
		return models.JobSnapshot{}, false
	}

	now := r.now()
	e.job.Status = models.JobStatusCancelled
	e.job.CompletedAt = &now
	cancelFn := e.cancel
	e.cancel = nil
	snapshot := e.job.Snapshot()
	r.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}
	return snapshot, true
}

// countRunning returns the number of RUNNING jobs
func (r *Registry) countRunning() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.jobs {
		if e.job.Status == models.JobStatusRunning {
			n++
		}
	}
	return n
}

// removeTerminalBefore drops terminal jobs completed before cutoff
func (r *Registry) removeTerminalBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.jobs {
		if !e.job.Status.IsTerminal() || e.job.CompletedAt == nil {
			continue
		}
		if e.job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}
