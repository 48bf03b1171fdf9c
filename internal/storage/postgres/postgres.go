// Package postgres implements the storage.Backend interface on a Postgres
// server through the GORM backend.
package postgres

import (
	"fmt"

	"github.com/hybridmocap/simulator/internal/config"
	"github.com/hybridmocap/simulator/internal/database"
	gormstorage "github.com/hybridmocap/simulator/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend is the GORM backend bound to a Postgres connection.
type Backend struct {
	*gormstorage.Backend
}

// New connects to Postgres. It fails if the server does not answer.
func New(cfg config.DatabaseConfig, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenPostgres(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres DB: %w", err)
	}
	return &Backend{Backend: gormstorage.New(db, log)}, nil
}
