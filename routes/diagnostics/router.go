package diagnostics

import (
	"imagen/api"
	"imagen/routes/diagnostics/endpoints/health"
	"imagen/routes/diagnostics/endpoints/ping"

	"github.com/go-chi/chi/v5"
)

const tagName = "Diagnostics"

type Router struct{}

func (b Router) Tag() (string, string) {
	return tagName, "These API endpoints allow diagnosing potential connection issues to the API"
}

func (b Router) Routes(r *chi.Mux) {
	api.Route{
		Pattern: "/",
		OpId:    "ping",
		Method:  api.GET,
		Docs:    ping.Docs,
		Handler: ping.Route,
		Setup:   ping.Setup,
	}.Route(r)

	api.Route{
		Pattern: "/health",
		OpId:    "health",
		Method:  api.GET,
		Docs:    health.Docs,
		Handler: health.Route,
	}.Route(r)
}
