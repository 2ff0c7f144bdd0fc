package history

import (
	"imagen/api"
	"imagen/routes/history/endpoints/get_history"
	"imagen/types"

	"github.com/go-chi/chi/v5"
)

const tagName = "History"

type Router struct{}

func (b Router) Tag() (string, string) {
	return tagName, "These API endpoints are related to the generation history archive"
}

func (b Router) Routes(r *chi.Mux) {
	api.Route{
		Pattern: "/history",
		OpId:    "get_history",
		Method:  api.GET,
		Docs:    get_history.Docs,
		Handler: get_history.Route,
		Auth: []api.AuthType{
			{
				Type: types.TargetTypeUser,
			},
		},
	}.Route(r)
}
