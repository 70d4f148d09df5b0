package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the zerolog logger handed to every component.
type Logger = zerolog.Logger

// NewLogger builds the process-wide logger. Production emits JSON at info
// level; development switches to the console writer and opens up debug so
// per-tick watch lines are visible.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if appEnv == "development" {
		level = zerolog.DebugLevel
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}

	return logger.Level(level)
}
