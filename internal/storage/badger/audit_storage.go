package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AuditStorage implements the AuditStorage interface for Badger
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates a new AuditStorage instance
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

// SaveEvent persists an audit event
func (s *AuditStorage) SaveEvent(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		return errors.New("audit event id is required")
	}
	if err := s.db.Store().Upsert(event.ID, event); err != nil {
		return fmt.Errorf("failed to save audit event: %w", mapError(err))
	}
	return nil
}

// ListEvents returns the most recent audit events, newest first
func (s *AuditStorage) ListEvents(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []models.AuditEvent
	if err := s.db.Store().Find(&events, query); err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", mapError(err))
	}
	return toEventPointers(events), nil
}

// ListEventsByEntity returns the audit trail of one entity, oldest first
func (s *AuditStorage) ListEventsByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEvent, error) {
	query := badgerhold.Where("EntityType").Eq(entityType).And("EntityID").Eq(entityID).SortBy("CreatedAt")

	var events []models.AuditEvent
	if err := s.db.Store().Find(&events, query); err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", mapError(err))
	}
	return toEventPointers(events), nil
}

func toEventPointers(events []models.AuditEvent) []*models.AuditEvent {
	out := make([]*models.AuditEvent, 0, len(events))
	for i := range events {
		out = append(out, &events[i])
	}
	return out
}
