// Package database opens the gorm connections used by the results store.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/hybridmocap/simulator/internal/config"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDSN renders the connection string for cfg.
func PostgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)
}

// OpenPostgres returns a connection to the Postgres database and checks it
// answers.
func OpenPostgres(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	log.Debug().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	log.Info().Msg("Connected to database")
	return db, nil
}

// OpenSqlite returns a connection to a SQLite database.
// If path is empty, uses a private in-memory database.
func OpenSqlite(path string, log zerolog.Logger) (*gorm.DB, error) {
	dsn := path
	if path == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if path == "" {
		log.Info().Msg("Using local SQLite DB in memory with disk dump on close")
	} else {
		log.Info().Str("path", path).Msg("Using local SQLite DB")
	}
	return db, nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file,
// replacing any existing file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string, log zerolog.Logger) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}
	if strings.ContainsRune(sqliteFilePath, '\'') {
		return fmt.Errorf("sqlite file path %q contains a quote", sqliteFilePath)
	}

	if err := os.MkdirAll(filepath.Dir(sqliteFilePath), 0o755); err != nil {
		return fmt.Errorf("error creating dump directory: %w", err)
	}

	// remove existing file if it exists
	if exists, err := os.Stat(sqliteFilePath); err == nil && exists != nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	start := time.Now()
	err := db.Exec("VACUUM INTO 'file:" + sqliteFilePath + "';").Error
	if err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	log.Debug().Dur("duration", time.Since(start)).Str("path", sqliteFilePath).Msg("Dumped memory DB to disk")
	return nil
}
