// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/hybridmocap/simulator/internal/config"
	"github.com/hybridmocap/simulator/internal/storage/memory"
	"github.com/hybridmocap/simulator/internal/storage/postgres"
	sqlitestorage "github.com/hybridmocap/simulator/internal/storage/sqlite"
	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, log)
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, log)
	case "memory", "":
		return memory.New(cfg.Memory, log), nil
	case "none":
		return nop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// nop discards every run.
type nop struct{}

func (nop) Init() error                     { return nil }
func (nop) Close() error                    { return nil }
func (nop) RecordRun(*core.RunReport) error { return nil }
