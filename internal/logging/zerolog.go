package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog builds the plain-text zerolog logger used by the storage and
// influx managers.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(out).Level(zerologLevel(level)).With().Timestamp().Logger()
}

func zerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
