package app

import (
	"io"
	"log/slog"
	"os"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger: resolved output
// goes to outW, logs to stderr.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
	}
}
