// Package sqlitestorage implements the storage.Backend interface using an
// in-memory SQLite database dumped to disk via VACUUM INTO on Close.
// It wraps the GORM backend via composition.
package sqlitestorage

import (
	"errors"
	"fmt"

	"github.com/hybridmocap/simulator/internal/config"
	"github.com/hybridmocap/simulator/internal/database"
	gormstorage "github.com/hybridmocap/simulator/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg config.SQLiteConfig
	log zerolog.Logger
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSqlite("", log)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(db, log),
		cfg:     cfg,
		log:     log,
	}, nil
}

// Dump writes the in-memory database to DumpPath.
func (b *Backend) Dump() error {
	return database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath, b.log)
}

// Close dumps the database if a path is configured and closes it.
func (b *Backend) Close() error {
	var dumpErr error
	if b.cfg.DumpPath != "" {
		dumpErr = b.Dump()
	}
	return errors.Join(dumpErr, b.Backend.Close())
}

// ExportedFilePaths returns the dump file, if any.
func (b *Backend) ExportedFilePaths() []string {
	if b.cfg.DumpPath == "" {
		return nil
	}
	return []string{b.cfg.DumpPath}
}
