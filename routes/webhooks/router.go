package webhooks

import (
	"imagen/api"
	"imagen/routes/webhooks/endpoints/post_result"

	"github.com/go-chi/chi/v5"
)

const tagName = "Webhooks"

type Router struct{}

func (b Router) Tag() (string, string) {
	return tagName, "These API endpoints are callbacks hit by the external worker"
}

func (b Router) Routes(r *chi.Mux) {
	api.Route{
		Pattern: "/webhook/result",
		OpId:    "post_result",
		Method:  api.POST,
		Docs:    post_result.Docs,
		Handler: post_result.Route,
	}.Route(r)
}
