// -----------------------------------------------------------------------
// Bulk Job - Job record owned by the bulk action registry
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// ActionType identifies one of the supported bulk operations.
// The set is closed: handlers can only be registered for the values below.
type ActionType string

const (
	ActionGuestCheckout    ActionType = "guest_checkout"
	ActionGuestMarkPaid    ActionType = "guest_mark_paid"
	ActionGuestDelete      ActionType = "guest_delete"
	ActionGuestExport      ActionType = "guest_export"
	ActionInventoryUpdate  ActionType = "inventory_update"
	ActionPaymentProcess   ActionType = "payment_process"
	ActionNotificationSend ActionType = "notification_send"
	ActionReportGenerate   ActionType = "report_generate"
)

var actionTypes = []ActionType{
	ActionGuestCheckout,
	ActionGuestMarkPaid,
	ActionGuestDelete,
	ActionGuestExport,
	ActionInventoryUpdate,
	ActionPaymentProcess,
	ActionNotificationSend,
	ActionReportGenerate,
}

// AllActionTypes returns every supported action type in declaration order
func AllActionTypes() []ActionType {
	out := make([]ActionType, len(actionTypes))
	copy(out, actionTypes)
	return out
}

// IsValid reports whether the action type is part of the closed enumeration
func (a ActionType) IsValid() bool {
	for _, t := range actionTypes {
		if t == a {
			return true
		}
	}
	return false
}

// ParseActionType converts a wire value into an ActionType
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown action type: %q", s)
	}
	return a, nil
}

// JobStatus represents the lifecycle state of a bulk job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions can happen from this status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// BulkJob is the unit of work tracked by the bulk action engine.
//
// ID, ActionType, RequesterID, ItemIDs and Parameters are fixed at creation.
// The remaining fields are mutated only by the registry while holding its lock.
type BulkJob struct {
	ID          string                 `json:"id"`
	ActionType  ActionType             `json:"action_type"`
	RequesterID int64                  `json:"requester_id"`
	ItemIDs     []string               `json:"item_ids"`
	Parameters  map[string]interface{} `json:"parameters"`

	Status         JobStatus `json:"status"`
	Progress       int       `json:"progress"`
	TotalItems     int       `json:"total_items"`
	ProcessedItems int       `json:"processed_items"`
	FailedItems    int       `json:"failed_items"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ErrorMessage string                 `json:"error_message,omitempty"`
	Errors       []string               `json:"errors,omitempty"`
	ResultData   map[string]interface{} `json:"result_data,omitempty"`
}

// Clone returns a copy that shares no slices or maps with the receiver
func (j *BulkJob) Clone() BulkJob {
	c := *j
	c.ItemIDs = append([]string(nil), j.ItemIDs...)
	c.Parameters = cloneMap(j.Parameters)
	c.Errors = append([]string(nil), j.Errors...)
	c.ResultData = cloneMap(j.ResultData)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// Snapshot renders the job as a read-only status view
func (j *BulkJob) Snapshot() JobSnapshot {
	s := JobSnapshot{
		ID:             j.ID,
		ActionType:     string(j.ActionType),
		RequesterID:    j.RequesterID,
		Status:         string(j.Status),
		Progress:       j.Progress,
		TotalItems:     j.TotalItems,
		ProcessedItems: j.ProcessedItems,
		FailedItems:    j.FailedItems,
		CreatedAt:      FormatTimestamp(j.CreatedAt),
		StartedAt:      formatOptional(j.StartedAt),
		CompletedAt:    formatOptional(j.CompletedAt),
		ErrorMessage:   j.ErrorMessage,
		Errors:         append([]string{}, j.Errors...),
		ResultData:     cloneMap(j.ResultData),
	}
	return s
}

// JobSnapshot is the externally visible copy of a BulkJob.
// Timestamps are ISO-8601 text in UTC; unset optional timestamps are nil.
type JobSnapshot struct {
	ID             string                 `json:"id"`
	ActionType     string                 `json:"action_type"`
	RequesterID    int64                  `json:"requester_id"`
	Status         string                 `json:"status"`
	Progress       int                    `json:"progress"`
	TotalItems     int                    `json:"total_items"`
	ProcessedItems int                    `json:"processed_items"`
	FailedItems    int                    `json:"failed_items"`
	CreatedAt      string                 `json:"created_at"`
	StartedAt      *string                `json:"started_at"`
	CompletedAt    *string                `json:"completed_at"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Errors         []string               `json:"errors"`
	ResultData     map[string]interface{} `json:"result_data"`
}

// IsTerminal reports whether the snapshot was taken in a terminal state
func (s JobSnapshot) IsTerminal() bool {
	return JobStatus(s.Status).IsTerminal()
}

// FormatTimestamp renders t the way snapshots expose timestamps
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTimestamp(*t)
	return &s
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
