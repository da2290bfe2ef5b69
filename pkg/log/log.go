package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is an alias for zerolog.Logger so callers outside this package
// never need to import zerolog directly just to hold a reference.
type Logger = zerolog.Logger

// GlobalLogger is the global logger instance. It is usable before Init is
// called (writing JSON to stderr) so that package-level var
// initializers elsewhere in ledger can safely call WithComponent.
var GlobalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Level represents a logging severity threshold.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the global logger. Safe to call once at process
// startup (cmd/ledgerctl does this before touching the coordinator).
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		GlobalLogger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		GlobalLogger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger tagged with a subsystem name, e.g.
// "txn", "resource", "filestore".
func WithComponent(component string) Logger {
	return GlobalLogger.With().Str("component", component).Logger()
}

// WithSessionID creates a child logger tagged with a transaction session ID.
func WithSessionID(sessionID string) Logger {
	return GlobalLogger.With().Str("session_id", sessionID).Logger()
}

// WithResourceID creates a child logger tagged with an enrolled resource's
// name (conventionally the entity type it stores, e.g. "Order").
func WithResourceID(resourceID string) Logger {
	return GlobalLogger.With().Str("resource_id", resourceID).Logger()
}

// WithProvider creates a child logger tagged with a backend provider name
// from the configuration document (spec.md §6).
func WithProvider(provider string) Logger {
	return GlobalLogger.With().Str("provider", provider).Logger()
}

// Helper functions for the common case of a message with no extra fields.
func Info(msg string)  { GlobalLogger.Info().Msg(msg) }
func Debug(msg string) { GlobalLogger.Debug().Msg(msg) }
func Warn(msg string)  { GlobalLogger.Warn().Msg(msg) }
func Error(msg string) { GlobalLogger.Error().Msg(msg) }

func Errorf(msg string, err error) {
	GlobalLogger.Error().Err(err).Msg(msg)
}

func Fatal(msg string) { GlobalLogger.Fatal().Msg(msg) }
