// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, authentication,
// telemetry, and the language model backend) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/casestudio/internal/config"
	"github.com/JaimeStill/casestudio/internal/generator"
	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/database"
	"github.com/JaimeStill/casestudio/pkg/lifecycle"
	"github.com/JaimeStill/casestudio/pkg/storage"
	"github.com/JaimeStill/casestudio/pkg/telemetry"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, blob storage, caller authentication, telemetry,
// and the generation backend.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Auth      auth.Provider
	Telemetry *telemetry.Recorder
	Backend   generator.Backend
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := NewLogger(&cfg.Logging)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	provider, err := auth.New(lc.Context(), &cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("auth init failed: %w", err)
	}

	backend := generator.NewOpenAI(generator.OpenAIConfig{
		APIKey:     cfg.Generation.APIKey,
		BaseURL:    cfg.Generation.BaseURL,
		MaxRetries: cfg.Generation.Retries(),
		Timeout:    cfg.Generation.TimeoutDuration(),
	})

	logger.Info(
		"generation backend configured",
		"base_url", cfg.Generation.BaseURL,
		"model", cfg.Generation.Model,
		"partial_mode", cfg.Generation.PartialMode,
	)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Auth:      provider,
		Telemetry: telemetry.NewRecorder(cfg.Telemetry.Buffer, logger),
		Backend:   backend,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown
// coordination; the telemetry recorder flushes on shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Telemetry.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("telemetry start failed: %w", err)
	}
	return nil
}

// Close releases systems that run independently of the lifecycle, for
// processes that exit without a coordinated shutdown.
func (i *Infrastructure) Close(ctx context.Context) {
	i.Telemetry.Close(ctx)
}
