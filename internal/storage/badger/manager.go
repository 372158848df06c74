package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/steward/internal/common"
	"github.com/ternarybob/steward/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	request interfaces.RequestStorage
	job     interfaces.JobStorage
	token   interfaces.TokenStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		request: NewRequestStorage(db, logger),
		job:     NewJobStorage(db, logger),
		token:   NewTokenStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// RequestStorage returns the Request storage interface
func (m *Manager) RequestStorage() interfaces.RequestStorage {
	return m.request
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// TokenStorage returns the Token storage interface
func (m *Manager) TokenStorage() interfaces.TokenStorage {
	return m.token
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
