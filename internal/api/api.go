// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/casestudio/internal/config"
	"github.com/JaimeStill/casestudio/internal/infrastructure"
	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/middleware"
	"github.com/JaimeStill/casestudio/pkg/module"
	"github.com/JaimeStill/casestudio/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
// Every route except the OpenAPI document requires an authenticated caller.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	spec, err := openapi.MarshalJSON(NewSpec(cfg))
	if err != nil {
		return nil, fmt.Errorf("build openapi spec: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, spec)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.MaxBytes(cfg.API.MaxRequestSizeBytes()))
	m.Use(auth.Require(runtime.Auth, runtime.Logger, "/openapi.json"))

	return m, nil
}
