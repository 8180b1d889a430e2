package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/eora"
	"github.com/aretw0/eora/internal/config"
	"github.com/aretw0/eora/internal/logging"
)

// Options are the settings shared by every command.
type Options struct {
	ConfigPath string // Optional YAML or .env file
	LogLevel   string // Overrides the configured level when set
	Quiet      bool   // Discard logs entirely
}

// App bundles what a command needs to run.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Assistant *eora.Assistant
}

// Close releases the assistant resources.
func (a *App) Close() error {
	return a.Assistant.Close()
}

// LoadConfig reads the configuration and builds the logger it asks for.
func LoadConfig(opts Options) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger, err := createLogger(cfg.LogLevel, opts.Quiet)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// NewApp loads the configuration and initializes the assistant with CLI conventions.
func NewApp(opts Options, extra ...eora.Option) (*App, error) {
	cfg, logger, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}

	assistantOpts := append([]eora.Option{eora.WithLogger(logger)}, extra...)
	assistant, err := eora.New(cfg, assistantOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing assistant: %w", err)
	}

	return &App{Config: cfg, Logger: logger, Assistant: assistant}, nil
}

// createLogger configures the application logger.
// It writes to Stderr (to separate from Stdout answers).
func createLogger(level string, quiet bool) (*slog.Logger, error) {
	if quiet {
		return logging.NewNop(), nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}
