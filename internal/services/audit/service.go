package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

// EntityBulkJob is the entity type recorded for bulk job events
const EntityBulkJob = "bulk_job"

// LargeBulkThreshold is the item count at which a bulk action is audited with raised severity
const LargeBulkThreshold = 100

// Service records bulk job lifecycle events in the audit trail
type Service struct {
	storage interfaces.AuditStorage
	logger  arbor.ILogger
	now     func() time.Time
}

// NewService creates a new audit service
func NewService(storage interfaces.AuditStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Log persists one audit event for the job
func (s *Service) Log(ctx context.Context, action string, job models.JobSnapshot) error {
	event := &models.AuditEvent{
		ID:          uuid.New().String(),
		EventType:   models.AuditEventBulkAction,
		UserID:      job.RequesterID,
		EntityType:  EntityBulkJob,
		EntityID:    job.ID,
		Action:      action,
		Description: describe(action, job),
		Metadata: map[string]interface{}{
			"action_type":     job.ActionType,
			"status":          job.Status,
			"item_count":      job.TotalItems,
			"processed_items": job.ProcessedItems,
			"failed_items":    job.FailedItems,
		},
		Severity:  Severity(action, job),
		CreatedAt: s.now().UTC(),
	}
	if job.ErrorMessage != "" {
		event.Metadata["error_message"] = job.ErrorMessage
	}

	if err := s.storage.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("action", action).
		Str("severity", string(event.Severity)).
		Msg("Audit event recorded")

	return nil
}

// List returns the most recent audit events, newest first
func (s *Service) List(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	return s.storage.ListEvents(ctx, limit)
}

// ListForJob returns the audit trail of one bulk job, oldest first
func (s *Service) ListForJob(ctx context.Context, jobID string) ([]*models.AuditEvent, error) {
	return s.storage.ListEventsByEntity(ctx, EntityBulkJob, jobID)
}

// Severity grades a bulk job event.
// Failures and deletions are high, cancellations and large or partially failed runs are medium.
func Severity(action string, job models.JobSnapshot) models.AuditSeverity {
	switch {
	case action == models.AuditActionFailed:
		return models.SeverityHigh
	case job.ActionType == string(models.ActionGuestDelete):
		return models.SeverityHigh
	case action == models.AuditActionCancelled:
		return models.SeverityMedium
	case job.TotalItems >= LargeBulkThreshold:
		return models.SeverityMedium
	case action == models.AuditActionCompleted && job.FailedItems > 0:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func describe(action string, job models.JobSnapshot) string {
	switch action {
	case models.AuditActionStarted:
		return fmt.Sprintf("Bulk %s started on %d items", job.ActionType, job.TotalItems)
	case models.AuditActionCompleted:
		return fmt.Sprintf("Bulk %s completed: %d processed, %d failed", job.ActionType, job.ProcessedItems, job.FailedItems)
	case models.AuditActionFailed:
		return fmt.Sprintf("Bulk %s failed: %s", job.ActionType, job.ErrorMessage)
	case models.AuditActionCancelled:
		return fmt.Sprintf("Bulk %s cancelled after %d of %d items", job.ActionType, job.ProcessedItems+job.FailedItems, job.TotalItems)
	default:
		return fmt.Sprintf("Bulk %s %s", job.ActionType, action)
	}
}

var _ interfaces.AuditSink = (*Service)(nil)
