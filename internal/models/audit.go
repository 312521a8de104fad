package models

import "time"

// AuditEventType categorises audit entries
type AuditEventType string

const (
	AuditEventBulkAction AuditEventType = "bulk_action"
)

// Bulk action audit actions
const (
	AuditActionStarted   = "started"
	AuditActionCompleted = "completed"
	AuditActionFailed    = "failed"
	AuditActionCancelled = "cancelled"
)

// AuditSeverity expresses how significant an audit entry is
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEvent is a persisted audit trail entry
type AuditEvent struct {
	ID          string                 `json:"id" badgerhold:"key"`
	EventType   AuditEventType         `json:"event_type"`
	UserID      int64                  `json:"user_id"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id"`
	Action      string                 `json:"action"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Severity    AuditSeverity          `json:"severity"`
	CreatedAt   time.Time              `json:"created_at"`
}
