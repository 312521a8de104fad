package bulk

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

// jobTracker records item outcomes against the registry as a handler runs
type jobTracker struct {
	service *Service
	jobID   string
}

func (t *jobTracker) RecordItem(outcome models.ItemOutcome) {
	snapshot, ok := t.service.registry.recordItem(t.jobID, outcome)
	if !ok {
		return
	}
	t.service.publish(interfaces.EventBulkJobProgress, snapshot)
}

// begin moves a job to RUNNING under a fresh cancellable context.
// The caller must invoke the returned cancel func once execution ends.
func (s *Service) begin(jobID string) (context.Context, context.CancelFunc, models.BulkJob, bool) {
	jobCtx, cancel := context.WithCancel(s.ctx)
	job, ok := s.registry.start(jobID, cancel)
	if !ok {
		cancel()
		return nil, nil, models.BulkJob{}, false
	}
	if snapshot, found := s.registry.Get(jobID); found {
		s.publish(interfaces.EventBulkJobStarted, snapshot)
	}
	return jobCtx, cancel, job, true
}

// execute runs the job's handler and applies its outcome.
// Outcomes arriving after the job was cancelled are discarded.
func (s *Service) execute(ctx context.Context, job models.BulkJob) {
	jobLogger := s.logger.WithCorrelationId(job.ID)

	jobLogger.Info().
		Str("action_type", string(job.ActionType)).
		Int64("requester_id", job.RequesterID).
		Int("total_items", job.TotalItems).
		Msg("Bulk job started")

	handler, ok := s.handlers.Lookup(job.ActionType)
	if !ok {
		s.completeWithError(jobLogger, job.ID, fmt.Errorf("%w: %s", ErrUnknownActionType, job.ActionType))
		return
	}

	result, err := s.invoke(ctx, jobLogger, handler, job)
	if err == nil && result == nil {
		err = errors.New("handler returned no result")
	}
	if err != nil {
		s.completeWithError(jobLogger, job.ID, err)
		return
	}

	snapshot, ok := s.registry.finish(job.ID, result)
	if !ok {
		jobLogger.Debug().Msg("Bulk job no longer running - discarding handler result")
		return
	}

	action := models.AuditActionCompleted
	if snapshot.Status == string(models.JobStatusFailed) {
		action = models.AuditActionFailed
	}

	jobLogger.Info().
		Str("status", snapshot.Status).
		Int("processed_items", snapshot.ProcessedItems).
		Int("failed_items", snapshot.FailedItems).
		Msg("Bulk job finished")

	s.finalize(action, snapshot)
}

func (s *Service) completeWithError(logger arbor.ILogger, jobID string, err error) {
	snapshot, ok := s.registry.fail(jobID, err)
	if !ok {
		logger.Debug().Err(err).Msg("Bulk job no longer running - discarding handler error")
		return
	}

	logger.Error().
		Err(err).
		Int("processed_items", snapshot.ProcessedItems).
		Int("failed_items", snapshot.FailedItems).
		Msg("Bulk job failed")

	s.finalize(models.AuditActionFailed, snapshot)
}

// invoke calls the handler, converting a panic into a job-level error
func (s *Service) invoke(ctx context.Context, logger arbor.ILogger, handler Handler, job models.BulkJob) (result *models.ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Msg("Recovered from panic in bulk action handler")
			result = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler.Execute(ctx, job, &jobTracker{service: s, jobID: job.ID})
}
