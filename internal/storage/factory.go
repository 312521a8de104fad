package storage

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/common"
	"github.com/ternarybob/bulkops/internal/storage/badger"
)

// NewStorageManager opens the Badger store and loads the configured seed file
// when the store holds no guests yet.
func NewStorageManager(ctx context.Context, logger arbor.ILogger, config *common.Config) (*badger.Manager, error) {
	manager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	if config.Storage.SeedFile == "" {
		return manager, nil
	}

	existing, err := manager.GuestStorage().ListGuests(ctx)
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to inspect storage before seeding: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug().Int("guests", len(existing)).Msg("Storage already populated - skipping seed file")
		return manager, nil
	}

	stats, err := manager.LoadSeedFromFile(ctx, config.Storage.SeedFile)
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to load seed file %s: %w", config.Storage.SeedFile, err)
	}

	logger.Info().
		Str("seed_file", config.Storage.SeedFile).
		Int("guests", stats.Guests).
		Int("payments", stats.Payments).
		Int("inventory", stats.Inventory).
		Int("skipped", stats.Skipped).
		Msg("Seed data loaded")

	return manager, nil
}
