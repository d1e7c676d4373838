// internal/util/logger.go
package util

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	loggerMu sync.RWMutex
	logger   *zerolog.Logger
)

// InitLogger initializes the global structured logger.
// Development gets a human-readable console writer, everything else JSON on stdout.
func InitLogger(appEnv, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	l := zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "mandir-fund").
		Logger()

	if appEnv == "development" {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	loggerMu.Lock()
	logger = &l
	loggerMu.Unlock()
	zerolog.DefaultContextLogger = &l
}

// GetLogger returns the initialized global logger.
func GetLogger() *zerolog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		InitLogger("production", "info") // should be called explicitly at app start
		return GetLogger()
	}
	return l
}
