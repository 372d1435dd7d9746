package api

import (
	"net/http"

	"github.com/JaimeStill/casestudio/internal/config"
	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/middleware"
	"github.com/JaimeStill/casestudio/pkg/openapi"
	"github.com/JaimeStill/casestudio/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	spec []byte,
) {
	limit := middleware.RateLimit(&cfg.API.RateLimit, auth.Key)

	routes.Register(
		mux,
		domain.Prompts.Handler().Routes(),
		domain.Generations.Handler().Routes().Wrap(limit, startsGeneration),
	)

	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
}

// startsGeneration selects the routes that call the generation backend and
// are subject to the per-caller rate limit.
func startsGeneration(r routes.Route) bool {
	return r.Is("POST", "") || r.Is("POST", "/stream") || r.Is("GET", "/subscribe")
}
