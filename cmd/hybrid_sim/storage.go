package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hybridmocap/simulator/internal/config"
	"github.com/hybridmocap/simulator/internal/influx"
	"github.com/hybridmocap/simulator/internal/logging"
	"github.com/hybridmocap/simulator/internal/storage"
	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/spf13/viper"
)

// recordResults stores the report in the configured backend and, when
// enabled, writes it to InfluxDB.
func recordResults(ctx context.Context, report *core.RunReport) error {
	zlog := logging.NewZerolog(LogFile, viper.GetString("logLevel"))

	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, zlog)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	recordErr := backend.RecordRun(report)
	closeErr := backend.Close()
	if err := errors.Join(recordErr, closeErr); err != nil {
		return fmt.Errorf("storing run %s: %w", report.RunID, err)
	}
	if exp, ok := backend.(storage.Exportable); ok {
		Logger.Info("Run stored", "backend", storageCfg.Type, "files", exp.ExportedFilePaths())
	} else {
		Logger.Info("Run stored", "backend", storageCfg.Type)
	}

	influxCfg := config.GetInfluxConfig()
	if !influxCfg.Enabled {
		return nil
	}
	m := influx.NewManager(influxCfg, zlog, backupPath())
	if err := m.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	writeErr := m.WriteRunReport(report)
	if err := errors.Join(writeErr, m.Close()); err != nil {
		return fmt.Errorf("writing run metrics: %w", err)
	}
	return nil
}
