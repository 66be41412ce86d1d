// Package logger provides the process-wide zerolog logger used by every
// component of the control core.
package logger

import (
	"os"

	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
)

// Log is the package-level logger. Components pull fields off of it with
// .With() rather than constructing their own writer.
var Log = logger.With().Caller().Logger().Output(zerolog.ConsoleWriter{Out: os.Stderr})

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// UseJSON switches the global logger to line-delimited JSON output,
// suitable for production where logs are collected rather than read
// on a terminal.
func UseJSON() {
	Log = logger.With().Caller().Logger().Output(os.Stderr)
}
