// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger and returns it.
//   - level: trace, debug, info, warn, error (unknown values mean info)
//   - format: "pretty" for console output, anything else for JSON lines
//
// Logs go to stderr so command output on stdout stays machine readable.
func Setup(level, format string) zerolog.Logger {
	return SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(out io.Writer, level, format string) zerolog.Logger {
	writer := out
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger()

	log.Logger = l
	return l
}
