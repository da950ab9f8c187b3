package badger

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
)

// Manager bundles the Badger-backed storages behind one lifecycle
type Manager struct {
	db     *BadgerDB
	venue  interfaces.VenueStorage
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		venue:  NewVenueStorage(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// VenueStorage returns the Venue storage interface
func (m *Manager) VenueStorage() interfaces.VenueStorage {
	return m.venue
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// LoadVariablesFromFiles seeds the KV store from variable TOML files
func (m *Manager) LoadVariablesFromFiles(ctx context.Context, dirPath string) error {
	return loadVariablesFromFiles(ctx, m.kv, dirPath, m.logger)
}

// LoadVenueDataFromFiles ingests curated venue TOML files
func (m *Manager) LoadVenueDataFromFiles(ctx context.Context, dirPath string) error {
	return loadVenueDataFromFiles(ctx, m.venue, dirPath, m.logger)
}
