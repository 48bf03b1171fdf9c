package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hybridmocap/simulator/internal/config"
	"github.com/hybridmocap/simulator/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names written per run.
const (
	MeasurementRun    = "fusion_error"
	MeasurementMarker = "marker_error"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influxdb is disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		IsValid:    false,
		Logger:     log,
		BackupPath: backupPath,
		cfg:        cfg,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to a gzip line-protocol file at BackupPath instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	pingCtx := ctx
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}
	running, err := m.Client.Ping(pingCtx)

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			if err := os.MkdirAll(filepath.Dir(m.BackupPath), 0755); err != nil {
				return fmt.Errorf("error creating backup directory: %w", err)
			}
			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure bucket exists with 90 day retention
	bucket := m.cfg.Bucket
	_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
	if err != nil {
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func(bucketName string, errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
				Msg("Error sending data to InfluxDB")
		}
	}(m.cfg.Bucket, errorsCh)

	m.Logger.Debug().Str("bucket", m.cfg.Bucket).Msg("InfluxDB writer initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		if m.Writer == nil {
			return fmt.Errorf("influxDB writer not initialized")
		}
		m.Writer.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
	_, err := m.BackupWriter.Write([]byte(lineProtocol))
	if err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteRunReport writes the run summary and one point per marker.
func (m *Manager) WriteRunReport(r *core.RunReport) error {
	for _, p := range RunPoints(r) {
		if err := m.WritePoint(p); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// RunPoints converts a report to points stamped with the run's end time.
func RunPoints(r *core.RunReport) []*influxdb2_write.Point {
	ts := r.StartedAt.Add(r.Duration)
	runID := r.RunID.String()

	points := make([]*influxdb2_write.Point, 0, len(r.PerMarker)+1)
	points = append(points, influxdb2_write.NewPoint(
		MeasurementRun,
		map[string]string{
			"run_id":      runID,
			"skip_factor": strconv.Itoa(r.Params.SkipFactor),
		},
		map[string]any{
			"mean":          r.Mean,
			"std":           r.StdDev,
			"samples":       r.Samples,
			"rotations":     r.Rotations,
			"frames":        r.FrameCount,
			"filled":        r.FilledCount,
			"duration_secs": r.Duration.Seconds(),
		},
		ts,
	))

	for _, me := range r.PerMarker {
		points = append(points, influxdb2_write.NewPoint(
			MeasurementMarker,
			map[string]string{
				"run_id": runID,
				"marker": me.Name,
			},
			map[string]any{
				"mean":    me.Mean,
				"std":     me.StdDev,
				"max":     me.Max,
				"samples": me.Samples,
			},
			ts,
		))
	}
	return points
}
