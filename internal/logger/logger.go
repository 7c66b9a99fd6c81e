package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the service logger. Development gets a human readable console
// writer at debug level; every other environment logs JSON at info level.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "development" || env == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("service", "alpr-service").
		Logger()
}
