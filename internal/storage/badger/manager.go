package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/common"
	"github.com/ternarybob/bulkops/internal/interfaces"
)

var _ interfaces.StorageManager = (*Manager)(nil)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db           *BadgerDB
	guest        interfaces.GuestStorage
	payment      interfaces.PaymentStorage
	inventory    interfaces.InventoryStorage
	audit        interfaces.AuditStorage
	notification interfaces.NotificationStorage
	logger       arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:           db,
		guest:        NewGuestStorage(db, logger),
		payment:      NewPaymentStorage(db, logger),
		inventory:    NewInventoryStorage(db, logger),
		audit:        NewAuditStorage(db, logger),
		notification: NewNotificationStorage(db, logger),
		logger:       logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// GuestStorage returns the Guest storage interface
func (m *Manager) GuestStorage() interfaces.GuestStorage {
	return m.guest
}

// PaymentStorage returns the Payment storage interface
func (m *Manager) PaymentStorage() interfaces.PaymentStorage {
	return m.payment
}

// InventoryStorage returns the Inventory storage interface
func (m *Manager) InventoryStorage() interfaces.InventoryStorage {
	return m.inventory
}

// AuditStorage returns the Audit storage interface
func (m *Manager) AuditStorage() interfaces.AuditStorage {
	return m.audit
}

// NotificationStorage returns the Notification storage interface
func (m *Manager) NotificationStorage() interfaces.NotificationStorage {
	return m.notification
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
