// Package sqlite implements the persistent storage backend. One SQLite
// database file per data directory holds entity instances (as JSON
// documents), links, and the declared schema. The data directory is
// guarded by an advisory file lock so two processes never share a
// database.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tessellate-io/strata/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

const (
	dbFileName   = "strata.db"
	lockFileName = "strata.lock"
)

// Backend implements types.EntityStore and types.SchemaStore over one
// SQLite database. The backend starts detached; Attach opens the
// database and Detach releases it. All operations on a detached backend
// fail with ErrDetached.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	lock     *flock.Flock
	log      *zap.SugaredLogger
}

var (
	_ types.EntityStore = (*Backend)(nil)
	_ types.SchemaStore = (*Backend)(nil)
)

// NewBackend creates a detached backend.
func NewBackend(log *zap.SugaredLogger) *Backend {
	return &Backend{log: log}
}

// Attach opens the database under config.DataDir, creating the directory
// and schema as needed. The data directory lock is acquired without
// blocking: a second process attaching to the same directory fails
// immediately.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("data dir %s is locked by another process", dataDir)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		_ = lock.Unlock()
		return fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return fmt.Errorf("initializing schema: %w", err)
	}

	b.db = db
	b.lock = lock
	b.config = config
	b.attached = true
	b.log.Infow("backend attached", "data_dir", dataDir)
	return nil
}

// Detach closes the database and releases the data directory lock.
// Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
		b.db = nil
	}
	if b.lock != nil {
		if err := b.lock.Unlock(); err != nil {
			return fmt.Errorf("releasing data dir lock: %w", err)
		}
		b.lock = nil
	}
	b.attached = false
	b.log.Infow("backend detached")
	return nil
}

// handle returns the open database, or ErrDetached.
func (b *Backend) handle() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	return b.db, nil
}
