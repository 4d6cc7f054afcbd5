package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoadLocation resolves the IANA zone used for log timestamps, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// New builds a JSON-lines logger writing to w.
// Every entry carries "ts" (RFC3339Nano in loc) and "level".
func New(w io.Writer, level string, loc *time.Location) zerolog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimestampFieldName = "ts"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFunc = func() time.Time { return time.Now().In(loc) }

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Setup configures the process-wide logger on stdout and returns it.
func Setup(level string, loc *time.Location) zerolog.Logger {
	logger := New(os.Stdout, level, loc)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}
