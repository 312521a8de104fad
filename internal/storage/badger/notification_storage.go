package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// NotificationStorage implements the NotificationStorage interface for Badger
type NotificationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewNotificationStorage creates a new NotificationStorage instance
func NewNotificationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.NotificationStorage {
	return &NotificationStorage{
		db:     db,
		logger: logger,
	}
}

// SaveNotification persists a notification
func (s *NotificationStorage) SaveNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		return errors.New("notification id is required")
	}
	if err := s.db.Store().Upsert(n.ID, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", mapError(err))
	}
	return nil
}

// GetNotification retrieves a notification by id
func (s *NotificationStorage) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.Store().Get(id, &n); err != nil {
		return nil, mapError(err)
	}
	return &n, nil
}

// ListNotifications returns a recipient's notifications, newest first
func (s *NotificationStorage) ListNotifications(ctx context.Context, recipient models.Recipient, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := badgerhold.Where("RecipientType").Eq(recipient.Type).And("RecipientID").Eq(recipient.ID)
	if unreadOnly {
		query = query.And("Read").Eq(false)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notifications []models.Notification
	if err := s.db.Store().Find(&notifications, query); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", mapError(err))
	}

	out := make([]*models.Notification, 0, len(notifications))
	for i := range notifications {
		out = append(out, &notifications[i])
	}
	return out, nil
}

// UpdateNotification applies mutate to the stored notification in a single transaction
func (s *NotificationStorage) UpdateNotification(ctx context.Context, id string, mutate func(*models.Notification) error) error {
	err := s.db.Update(func(tx *badger.Txn) error {
		var n models.Notification
		if err := s.db.Store().TxGet(tx, id, &n); err != nil {
			return err
		}
		if err := mutate(&n); err != nil {
			return err
		}
		return s.db.Store().TxUpdate(tx, id, &n)
	})
	return mapError(err)
}
