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

// PaymentStorage implements the PaymentStorage interface for Badger
type PaymentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPaymentStorage creates a new PaymentStorage instance
func NewPaymentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PaymentStorage {
	return &PaymentStorage{
		db:     db,
		logger: logger,
	}
}

// GetPayment retrieves a payment by id
func (s *PaymentStorage) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Store().Get(id, &payment); err != nil {
		return nil, mapError(err)
	}
	return &payment, nil
}

// ListPaymentsByGuest returns a guest's payments, oldest first
func (s *PaymentStorage) ListPaymentsByGuest(ctx context.Context, guestID string) ([]*models.Payment, error) {
	var payments []models.Payment
	query := badgerhold.Where("GuestID").Eq(guestID).SortBy("CreatedAt")
	if err := s.db.Store().Find(&payments, query); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", mapError(err))
	}

	out := make([]*models.Payment, 0, len(payments))
	for i := range payments {
		out = append(out, &payments[i])
	}
	return out, nil
}

// SavePayment inserts or replaces a payment
func (s *PaymentStorage) SavePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		return errors.New("payment id is required")
	}
	if err := s.db.Store().Upsert(payment.ID, payment); err != nil {
		return fmt.Errorf("failed to save payment: %w", mapError(err))
	}
	return nil
}

// UpdatePayment applies mutate to the stored payment in a single transaction
func (s *PaymentStorage) UpdatePayment(ctx context.Context, id string, mutate func(*models.Payment) error) error {
	err := s.db.Update(func(tx *badger.Txn) error {
		var payment models.Payment
		if err := s.db.Store().TxGet(tx, id, &payment); err != nil {
			return err
		}
		if err := mutate(&payment); err != nil {
			return err
		}
		return s.db.Store().TxUpdate(tx, id, &payment)
	})
	return mapError(err)
}

// DeletePayment removes a payment
func (s *PaymentStorage) DeletePayment(ctx context.Context, id string) error {
	return mapError(s.db.Store().Delete(id, &models.Payment{}))
}
