package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/models"
)

type mockAuditStorage struct {
	mock.Mock
}

func (m *mockAuditStorage) SaveEvent(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockAuditStorage) ListEvents(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*models.AuditEvent)
	return events, args.Error(1)
}

func (m *mockAuditStorage) ListEventsByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, entityType, entityID)
	events, _ := args.Get(0).([]*models.AuditEvent)
	return events, args.Error(1)
}

func snapshot(actionType models.ActionType, total, processed, failed int) models.JobSnapshot {
	return models.JobSnapshot{
		ID:             "job-1",
		ActionType:     string(actionType),
		RequesterID:    7,
		Status:         string(models.JobStatusCompleted),
		TotalItems:     total,
		ProcessedItems: processed,
		FailedItems:    failed,
	}
}

func TestLog_PersistsEvent(t *testing.T) {
	storage := &mockAuditStorage{}
	svc := NewService(storage, arbor.NewLogger())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	var saved *models.AuditEvent
	storage.On("SaveEvent", mock.Anything, mock.AnythingOfType("*models.AuditEvent")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.AuditEvent) }).
		Return(nil).Once()

	job := snapshot(models.ActionGuestCheckout, 3, 2, 1)
	require.NoError(t, svc.Log(context.Background(), models.AuditActionCompleted, job))
	storage.AssertExpectations(t)

	require.NotNil(t, saved)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, models.AuditEventBulkAction, saved.EventType)
	assert.Equal(t, int64(7), saved.UserID)
	assert.Equal(t, EntityBulkJob, saved.EntityType)
	assert.Equal(t, "job-1", saved.EntityID)
	assert.Equal(t, models.AuditActionCompleted, saved.Action)
	assert.Equal(t, "Bulk guest_checkout completed: 2 processed, 1 failed", saved.Description)
	assert.Equal(t, models.SeverityMedium, saved.Severity)
	assert.Equal(t, fixed, saved.CreatedAt)
	assert.Equal(t, 3, saved.Metadata["item_count"])
	assert.NotContains(t, saved.Metadata, "error_message")
}

func TestLog_StorageFailure(t *testing.T) {
	storage := &mockAuditStorage{}
	svc := NewService(storage, arbor.NewLogger())
	storage.On("SaveEvent", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	err := svc.Log(context.Background(), models.AuditActionStarted, snapshot(models.ActionGuestExport, 1, 0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		name   string
		action string
		job    models.JobSnapshot
		want   models.AuditSeverity
	}{
		{"small start", models.AuditActionStarted, snapshot(models.ActionGuestExport, 5, 0, 0), models.SeverityLow},
		{"large start", models.AuditActionStarted, snapshot(models.ActionGuestExport, LargeBulkThreshold, 0, 0), models.SeverityMedium},
		{"clean completion", models.AuditActionCompleted, snapshot(models.ActionGuestMarkPaid, 5, 5, 0), models.SeverityLow},
		{"partial completion", models.AuditActionCompleted, snapshot(models.ActionGuestMarkPaid, 5, 4, 1), models.SeverityMedium},
		{"failure", models.AuditActionFailed, snapshot(models.ActionGuestExport, 1, 0, 1), models.SeverityHigh},
		{"cancel", models.AuditActionCancelled, snapshot(models.ActionGuestExport, 5, 1, 0), models.SeverityMedium},
		{"delete", models.AuditActionStarted, snapshot(models.ActionGuestDelete, 1, 0, 0), models.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Severity(tt.action, tt.job))
		})
	}
}

func TestListForJob(t *testing.T) {
	storage := &mockAuditStorage{}
	svc := NewService(storage, arbor.NewLogger())
	events := []*models.AuditEvent{{ID: "a"}, {ID: "b"}}
	storage.On("ListEventsByEntity", mock.Anything, EntityBulkJob, "job-1").Return(events, nil)
	storage.On("ListEvents", mock.Anything, 10).Return(events[:1], nil)

	got, err := svc.ListForJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	recent, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
