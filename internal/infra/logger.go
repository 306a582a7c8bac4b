package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the gateway's zerolog.Logger. Every event carries the
// service name so aggregated logs can tell the API apart from the providerkey
// CLI sharing this module.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "media-router").
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases zerolog.Logger so packages outside infra depend on one
// logging surface instead of importing the third-party module directly.
type Logger = zerolog.Logger
