// Package gormstorage implements the storage.Backend interface on any GORM
// dialect. The sqlite and postgres backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned by LoadRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Backend stores run reports through GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a new GORM storage backend.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{
		db:  db,
		log: log,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema.
func (b *Backend) Init() error {
	b.log.Info().Str("dialect", b.db.Dialector.Name()).Msg("Migrating schema")
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// RecordRun inserts the run and its marker errors in one transaction.
func (b *Backend) RecordRun(r *core.RunReport) error {
	rec := toRecord(r)
	err := b.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.RunID, err)
	}

	b.log.Debug().
		Str("runId", rec.RunID).
		Int("markers", len(rec.MarkerErrors)).
		Msg("Run recorded")
	return nil
}

// LoadRun reads a stored run back into a report.
func (b *Backend) LoadRun(runID uuid.UUID) (*core.RunReport, error) {
	var rec RunRecord
	err := b.db.
		Preload("MarkerErrors", func(db *gorm.DB) *gorm.DB {
			return db.Order("marker_index")
		}).
		Where("run_id = ?", runID.String()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	report := &core.RunReport{
		RunID:        runID,
		StartedAt:    rec.StartedAt,
		Duration:     rec.Duration,
		InputPath:    rec.InputPath,
		OutputPath:   rec.OutputPath,
		Params:       rec.Params.Data(),
		DataRate:     rec.DataRate,
		FrameCount:   rec.FrameCount,
		MarkerCount:  rec.MarkerCount,
		OpticalTicks: rec.OpticalTicks,
		Rotations:    rec.Rotations,
		FilledCount:  rec.FilledCount,
		Mean:         rec.Mean,
		StdDev:       rec.StdDev,
		Samples:      rec.Samples,
		PerMarker:    make([]core.MarkerError, 0, len(rec.MarkerErrors)),
	}
	for _, m := range rec.MarkerErrors {
		report.PerMarker = append(report.PerMarker, core.MarkerError{
			Index:   m.MarkerIndex,
			Name:    m.MarkerName,
			Mean:    m.Mean,
			StdDev:  m.StdDev,
			Max:     m.Max,
			Samples: m.Samples,
		})
	}
	return report, nil
}

// CountRuns returns the number of stored runs.
func (b *Backend) CountRuns() (int64, error) {
	var n int64
	err := b.db.Model(&RunRecord{}).Count(&n).Error
	return n, err
}
