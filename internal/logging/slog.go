package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Swapped by tests to capture console output.
var osStdout io.Writer = os.Stdout

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	contextProvider ContextProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetContextProvider registers attributes added to every record. It takes
// effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.contextProvider = p
}

// Setup initializes the logging system with file and optional OTel output.
// Without a file, records go to stdout. If provider is nil, OTel logging is
// disabled. Each sink gets its own text handler; the Graylog GELF writer is
// passed here.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, sinks ...io.Writer) {
	lvl := parseLevel(level)
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	for _, sink := range sinks {
		if sink != nil {
			handlers = append(handlers, slog.NewTextHandler(sink, handlerOpts))
		}
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler("hybrid-sim", otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	var handler slog.Handler = newFanout(handlers...)
	if m.contextProvider != nil {
		handler = stamped{next: handler, provider: m.contextProvider}
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
