package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hybridmocap/simulator/internal/config"
	"github.com/hybridmocap/simulator/internal/estimator"
	"github.com/hybridmocap/simulator/internal/logging"
	intOtel "github.com/hybridmocap/simulator/internal/otel"
	"github.com/hybridmocap/simulator/internal/pipeline"
	"github.com/hybridmocap/simulator/internal/trc"
	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ExtensionName string = "hybrid_sim"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	SessionStartTime time.Time = time.Now()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ExtensionName, err)
		os.Exit(1)
	}
}

// run executes one simulation and prints the mean and standard deviation of
// the sampled error to stdout, one per line.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet(ExtensionName, pflag.ContinueOnError)
	config.Flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	configDir, err := fs.GetString("config")
	if err != nil {
		return err
	}

	// console logging until the log file exists
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return err
		}
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}

	runID := uuid.New()
	closeLogs, err := setupLogging(runID)
	if err != nil {
		return err
	}
	defer closeLogs()

	Logger.Info("Starting up...", "version", CurrentVersion, "buildDate", BuildDate)

	sim := config.GetSimulationConfig()
	if sim.Params.Occlusion.Seed == 0 {
		sim.Params.Occlusion.Seed = uint64(time.Now().UnixNano())
	}

	input, err := trc.Load(sim.InputPath)
	if err != nil {
		return err
	}
	Logger.Info("Loaded input",
		"path", sim.InputPath,
		"frames", input.NumFrames(),
		"markers", len(input.Markers),
		"dataRate", input.DataRate(),
		"seed", sim.Params.Occlusion.Seed)

	report, err := simulate(ctx, runID, input, sim)
	if err != nil {
		return err
	}

	Logger.Info("Simulation complete",
		"mean", report.Mean,
		"std", report.StdDev,
		"samples", report.Samples,
		"rotations", report.Rotations)

	if err := recordResults(ctx, report); err != nil {
		return err
	}

	if OTelProvider != nil {
		if err := OTelProvider.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush OTel provider", "error", err)
		}
	}

	fmt.Fprintln(stdout, report.Mean)
	fmt.Fprintln(stdout, report.StdDev)
	return nil
}

// simulate runs the pipeline, compares its output with the input and
// assembles the run report.
func simulate(ctx context.Context, runID uuid.UUID, input *trc.File, sim config.SimulationConfig) (*core.RunReport, error) {
	started := time.Now()

	res, err := pipeline.Run(ctx, input, pipeline.Config{
		Params:     sim.Params,
		OutputPath: sim.OutputPath,
	}, Logger)
	if err != nil {
		return nil, err
	}

	cmp, err := estimator.CompareFile(input, sim.OutputPath, estimator.Config{
		FrameCount:  res.FrameCount,
		MarkerCount: res.MarkerCount,
		SkipFactor:  sim.Params.SkipFactor,
	})
	if err != nil {
		return nil, err
	}

	return &core.RunReport{
		RunID:        runID,
		StartedAt:    started.UTC(),
		Duration:     time.Since(started),
		InputPath:    sim.InputPath,
		OutputPath:   sim.OutputPath,
		Params:       sim.Params,
		DataRate:     input.DataRate(),
		FrameCount:   res.FrameCount,
		MarkerCount:  res.MarkerCount,
		OpticalTicks: res.OpticalTicks,
		Rotations:    res.Rotations,
		FilledCount:  res.Filled,
		Mean:         cmp.Mean,
		StdDev:       cmp.StdDev,
		Samples:      cmp.Samples,
		PerMarker:    cmp.PerMarker,
	}, nil
}

// setupLogging opens the session log file and re-initializes logging with
// the file, optional OTel and optional Graylog outputs.
func setupLogging(runID uuid.UUID) (func(), error) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	LogFilePath = logging.LogFilePath(logsDir, ExtensionName, SessionStartTime)
	logFile, err := os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file %s: %w", LogFilePath, err)
	}
	LogFile = logFile

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	var sinks []io.Writer
	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		gw, err := logging.NewGraylogWriter(graylogCfg.Address)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			sinks = append(sinks, gw)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	SlogManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("run_id", runID.String())}
	})
	SlogManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider, sinks...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath, "sinks", len(sinks), "otel", OTelProvider != nil)

	return func() {
		if OTelProvider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := OTelProvider.Shutdown(ctx); err != nil {
				Logger.Warn("Failed to shut down OTel provider", "error", err)
			}
			OTelProvider = nil
		}
		for _, s := range sinks {
			if c, ok := s.(io.Closer); ok {
				_ = c.Close()
			}
		}
		_ = logFile.Close()
		LogFile = nil
	}, nil
}

// backupPath is where influx line protocol goes when the server is down.
func backupPath() string {
	return filepath.Join(
		viper.GetString("logsDir"),
		fmt.Sprintf("%s_influx_backup_%s.lp.gz", ExtensionName, SessionStartTime.Format("20060102_150405")),
	)
}
