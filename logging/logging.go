// Package logging configures the process-wide zerolog logger, the way
// the source project's entrypoint sets log level and format once at
// startup and every package pulls from the global logger thereafter.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global zerolog logger. levelName is parsed case
// insensitively ("debug", "info", "warn", "error"); an unrecognised
// value falls back to info. pretty selects a human-readable console
// writer instead of structured JSON, for local development.
func Init(levelName string, pretty bool) {
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer zerolog.Logger
	if pretty {
		writer = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	} else {
		writer = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	log.Logger = writer
}
