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

// InventoryStorage implements the InventoryStorage interface for Badger
type InventoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewInventoryStorage creates a new InventoryStorage instance
func NewInventoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.InventoryStorage {
	return &InventoryStorage{
		db:     db,
		logger: logger,
	}
}

// GetItem retrieves an inventory item by id
func (s *InventoryStorage) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.db.Store().Get(id, &item); err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

// ListItems returns all inventory items ordered by name
func (s *InventoryStorage) ListItems(ctx context.Context) ([]*models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := s.db.Store().Find(&items, badgerhold.Where("ID").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", mapError(err))
	}

	out := make([]*models.InventoryItem, 0, len(items))
	for i := range items {
		out = append(out, &items[i])
	}
	return out, nil
}

// SaveItem inserts or replaces an inventory item
func (s *InventoryStorage) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == "" {
		return errors.New("inventory item id is required")
	}
	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to save inventory item: %w", mapError(err))
	}
	return nil
}

// UpdateItem applies mutate to the stored item in a single transaction
func (s *InventoryStorage) UpdateItem(ctx context.Context, id string, mutate func(*models.InventoryItem) error) error {
	err := s.db.Update(func(tx *badger.Txn) error {
		var item models.InventoryItem
		if err := s.db.Store().TxGet(tx, id, &item); err != nil {
			return err
		}
		if err := mutate(&item); err != nil {
			return err
		}
		return s.db.Store().TxUpdate(tx, id, &item)
	})
	return mapError(err)
}

// DeleteItem removes an inventory item
func (s *InventoryStorage) DeleteItem(ctx context.Context, id string) error {
	return mapError(s.db.Store().Delete(id, &models.InventoryItem{}))
}
