// -----------------------------------------------------------------------
// Storage - data-access collaborators used by bulk action handlers
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/bulkops/internal/models"
)

var (
	// ErrNotFound is returned when an entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable is returned when the backing store cannot serve requests.
	// Handlers treat it as unrecoverable for the whole job.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// GuestStorage - data access for guest records.
// Update and Delete commit atomically per call; a mutate error rolls the call back.
type GuestStorage interface {
	GetGuest(ctx context.Context, id string) (*models.Guest, error)
	GetGuests(ctx context.Context, ids []string) (map[string]*models.Guest, error)
	ListGuests(ctx context.Context) ([]*models.Guest, error)
	SaveGuest(ctx context.Context, guest *models.Guest) error
	UpdateGuest(ctx context.Context, id string, mutate func(*models.Guest) error) error
	DeleteGuest(ctx context.Context, id string) error
}

// PaymentStorage - data access for payment records
type PaymentStorage interface {
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPaymentsByGuest(ctx context.Context, guestID string) ([]*models.Payment, error)
	SavePayment(ctx context.Context, payment *models.Payment) error
	UpdatePayment(ctx context.Context, id string, mutate func(*models.Payment) error) error
	DeletePayment(ctx context.Context, id string) error
}

// InventoryStorage - data access for inventory items
type InventoryStorage interface {
	GetItem(ctx context.Context, id string) (*models.InventoryItem, error)
	ListItems(ctx context.Context) ([]*models.InventoryItem, error)
	SaveItem(ctx context.Context, item *models.InventoryItem) error
	UpdateItem(ctx context.Context, id string, mutate func(*models.InventoryItem) error) error
	DeleteItem(ctx context.Context, id string) error
}

// AuditStorage - persistence for audit trail entries
type AuditStorage interface {
	SaveEvent(ctx context.Context, event *models.AuditEvent) error
	ListEvents(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	ListEventsByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEvent, error)
}

// NotificationStorage - persistence for in-app notifications
type NotificationStorage interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipient models.Recipient, unreadOnly bool, limit int) ([]*models.Notification, error)
	UpdateNotification(ctx context.Context, id string, mutate func(*models.Notification) error) error
}

// StorageManager - aggregates all storage interfaces
type StorageManager interface {
	GuestStorage() GuestStorage
	PaymentStorage() PaymentStorage
	InventoryStorage() InventoryStorage
	AuditStorage() AuditStorage
	NotificationStorage() NotificationStorage
	Close() error
}
