package tasks

import (
	"imagen/api"
	"imagen/routes/tasks/endpoints/create_task"
	"imagen/routes/tasks/endpoints/get_task_status"
	"imagen/types"

	"github.com/go-chi/chi/v5"
)

const tagName = "Tasks"

type Router struct{}

func (b Router) Tag() (string, string) {
	return tagName, "These API endpoints are related to image generation tasks"
}

func (b Router) Routes(r *chi.Mux) {
	api.Route{
		Pattern: "/generate",
		OpId:    "create_task",
		Method:  api.POST,
		Docs:    create_task.Docs,
		Handler: create_task.Route,
		Auth: []api.AuthType{
			{
				Type: types.TargetTypeUser,
			},
		},
	}.Route(r)

	api.Route{
		Pattern: "/status/{taskId}",
		OpId:    "get_task_status",
		Method:  api.GET,
		Docs:    get_task_status.Docs,
		Handler: get_task_status.Route,
	}.Route(r)
}
