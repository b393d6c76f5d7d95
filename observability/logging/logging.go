// Package logging configures structured JSON logging for the lien daemons.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// levelEnv names the environment variable controlling the log level.
const levelEnv = "LIEN_LOG_LEVEL"

// Setup wires process-wide JSON logging to stdout and returns the service
// logger. The level comes from LIEN_LOG_LEVEL (debug|info|warn|error,
// default info); every line carries the service name and, when provided,
// the deployment environment.
func Setup(service, env string) *slog.Logger {
	logger, handler := New(os.Stdout, service, env)
	slog.SetDefault(logger)

	// Bridge the stdlib logger so dependencies that still use log.Printf
	// emit through the same handler.
	stdBridge := slog.NewLogLogger(handler, slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return logger
}

// New builds the service logger writing to w. Split out of Setup so tests
// can capture output without touching process-wide state.
func New(w io.Writer, service, env string) (*slog.Logger, slog.Handler) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelFromEnv(),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	bound := handler.WithAttrs(attrs)
	return slog.New(bound), bound
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(levelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
