package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/common"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// maxTxnRetries bounds retries of read-modify-write transactions on conflict
const maxTxnRetries = 3

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB creates a new Badger database connection
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	options := badgerhold.DefaultOptions
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal
	options.Logger = nil // Disable default badger logger to use arbor

	if config.InMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
		logger.Debug().Msg("Opening in-memory Badger database")
	} else {
		// If reset_on_startup is enabled, delete the existing database
		if config.ResetOnStartup {
			if _, err := os.Stat(config.Path); err == nil {
				logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
				if err := os.RemoveAll(config.Path); err != nil {
					logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
				}
			}
		}

		// Ensure the directory exists
		if err := os.MkdirAll(filepath.Clean(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		logger.Debug().Str("path", config.Path).Msg("Opening Badger database connection")
		options.Dir = config.Path
		options.ValueDir = config.Path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		logger.Error().Err(err).Str("path", config.Path).Msg("BadgerDB: Failed to open database")
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Bool("in_memory", config.InMemory).Msg("Badger database initialized")

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Update runs fn in a read-write transaction, retrying on conflicts
func (b *BadgerDB) Update(fn func(tx *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = b.store.Badger().Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug().Int("attempt", attempt+1).Msg("Badger transaction conflict - retrying")
	}
	return err
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

// mapError translates badger errors into storage sentinel errors
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badgerhold.ErrNotFound):
		return interfaces.ErrNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%w: %v", interfaces.ErrStorageUnavailable, err)
	default:
		return err
	}
}
