package netgauge

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const consoleTimeFormat = "15:04:05.000"

// logger carries diagnostics only; measurement results go to the printer.
var logger = NewLogger(os.Stderr, zerolog.InfoLevel)

func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: consoleTimeFormat,
	}).Level(level).With().Timestamp().Logger()
}

func ParseLogLevel(level string) (zerolog.Level, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(ErrInvalidConfig, "log.level %q", level)
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return parsed, nil
}

func SetLogLevel(level zerolog.Level) {
	logger = NewLogger(os.Stderr, level)
}

func logDuration(event *zerolog.Event, key string, d time.Duration) *zerolog.Event {
	return event.Float64(key, float64(d.Microseconds())/1000)
}
