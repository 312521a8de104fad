package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/bulkops/internal/models"
)

// AuditSink receives bulk job lifecycle events.
// A failing sink must never fail the job it reports on.
type AuditSink interface {
	Log(ctx context.Context, action string, job models.JobSnapshot) error
}

// NotificationSink is told when a job reaches a terminal state
type NotificationSink interface {
	JobFinished(ctx context.Context, job models.JobSnapshot) error
}

// Notifier delivers a message to a single recipient
type Notifier interface {
	Notify(ctx context.Context, recipient models.Recipient, title, message string) error
}

// ReportRenderer turns a markdown report into a deliverable document
type ReportRenderer interface {
	MarkdownToPDF(markdown, title string) ([]byte, error)
	MarkdownToHTML(markdown string) ([]byte, error)
}

// BulkActionService is the programmatic surface of the bulk action engine
type BulkActionService interface {
	ExecuteBulkAction(ctx context.Context, actionType models.ActionType, requesterID int64, itemIDs []string, parameters map[string]interface{}, async bool) (string, error)
	GetJobStatus(jobID string) (models.JobSnapshot, bool)
	GetUserJobs(requesterID int64, limit int) []models.JobSnapshot
	CancelJob(jobID string, requesterID int64) bool
	CleanupOldJobs(age time.Duration) int
	ActionTypes() []models.ActionType
}
