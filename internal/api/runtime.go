package api

import (
	"github.com/JaimeStill/casestudio/internal/config"
	"github.com/JaimeStill/casestudio/internal/infrastructure"
	"github.com/JaimeStill/casestudio/internal/stream"
	"github.com/JaimeStill/casestudio/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Model      string
	Stream     stream.Options
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Auth:      infra.Auth,
			Telemetry: infra.Telemetry,
			Backend:   infra.Backend,
		},
		Pagination: cfg.API.Pagination,
		Model:      cfg.Generation.Model,
		Stream: stream.Options{
			IdleTimeout: cfg.Generation.StreamIdleTimeoutDuration(),
			PartialMode: cfg.Generation.Partial(),
		},
	}
}
