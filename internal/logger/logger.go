package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger writing JSON to stdout, or console output when APP_ENV=development
func New(logLevel string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if os.Getenv("APP_ENV") == "development" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	logger := NewWithWriter(out, logLevel)
	zerolog.SetGlobalLevel(logger.GetLevel())
	return logger
}

// NewWithWriter creates a logger on an arbitrary writer
func NewWithWriter(out io.Writer, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "questauth").
		Logger()
}

// WithAddress adds a wallet address to logger context
func WithAddress(logger zerolog.Logger, address string) zerolog.Logger {
	return logger.With().Str("address", address).Logger()
}

// WithAccount adds an account ID to logger context
func WithAccount(logger zerolog.Logger, accountID string) zerolog.Logger {
	return logger.With().Str("account_id", accountID).Logger()
}

// WithRequestID adds a request ID to logger context
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}
