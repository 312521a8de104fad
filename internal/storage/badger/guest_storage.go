package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

// GuestStorage implements the GuestStorage interface for Badger
type GuestStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewGuestStorage creates a new GuestStorage instance
func NewGuestStorage(db *BadgerDB, logger arbor.ILogger) interfaces.GuestStorage {
	return &GuestStorage{
		db:     db,
		logger: logger,
	}
}

// GetGuest retrieves a guest by id
func (s *GuestStorage) GetGuest(ctx context.Context, id string) (*models.Guest, error) {
	var guest models.Guest
	if err := s.db.Store().Get(id, &guest); err != nil {
		return nil, mapError(err)
	}
	return &guest, nil
}

// GetGuests retrieves the guests that exist among ids
func (s *GuestStorage) GetGuests(ctx context.Context, ids []string) (map[string]*models.Guest, error) {
	guests := make(map[string]*models.Guest, len(ids))
	for _, id := range ids {
		guest, err := s.GetGuest(ctx, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get guest %s: %w", id, err)
		}
		guests[id] = guest
	}
	return guests, nil
}

// ListGuests returns all guests ordered by id
func (s *GuestStorage) ListGuests(ctx context.Context) ([]*models.Guest, error) {
	var guests []models.Guest
	if err := s.db.Store().Find(&guests, nil); err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", mapError(err))
	}

	out := make([]*models.Guest, 0, len(guests))
	for i := range guests {
		out = append(out, &guests[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveGuest inserts or replaces a guest
func (s *GuestStorage) SaveGuest(ctx context.Context, guest *models.Guest) error {
	if guest.ID == "" {
		return errors.New("guest id is required")
	}
	if err := s.db.Store().Upsert(guest.ID, guest); err != nil {
		return fmt.Errorf("failed to save guest: %w", mapError(err))
	}
	return nil
}

// UpdateGuest applies mutate to the stored guest in a single transaction.
// Nothing is written when mutate returns an error.
func (s *GuestStorage) UpdateGuest(ctx context.Context, id string, mutate func(*models.Guest) error) error {
	err := s.db.Update(func(tx *badger.Txn) error {
		var guest models.Guest
		if err := s.db.Store().TxGet(tx, id, &guest); err != nil {
			return err
		}
		if err := mutate(&guest); err != nil {
			return err
		}
		return s.db.Store().TxUpdate(tx, id, &guest)
	})
	return mapError(err)
}

// DeleteGuest removes a guest
func (s *GuestStorage) DeleteGuest(ctx context.Context, id string) error {
	return mapError(s.db.Store().Delete(id, &models.Guest{}))
}
