// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global logger. With a path, JSON lines are appended to that
// file and mirrored to stderr; otherwise a console writer on stderr is used.
// The returned closer releases the file, if any.
func Init(level zerolog.Level, path string) (io.Closer, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	var (
		w      io.Writer = console
		closer io.Closer = nopCloser{}
	)

	if path != "" {
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = zerolog.MultiLevelWriter(logFile, console)
		closer = logFile
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()

	if level == zerolog.DebugLevel {
		log.Debug().Msg("Log level set to DEBUG")
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
