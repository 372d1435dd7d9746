package main

import (
	"net/http"

	"github.com/JaimeStill/casestudio/internal/api"
	"github.com/JaimeStill/casestudio/internal/config"
	"github.com/JaimeStill/casestudio/internal/infrastructure"
	"github.com/JaimeStill/casestudio/pkg/handlers"
	"github.com/JaimeStill/casestudio/pkg/module"
)

// Modules holds the mounted HTTP modules. Health probes are served natively
// by the router and bypass module middleware, including authentication.
type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	return router
}
