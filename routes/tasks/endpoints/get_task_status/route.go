package get_task_status

import (
	"errors"
	"net/http"

	"imagen/api"
	"imagen/docs"
	"imagen/state"
	"imagen/tasks"
	"imagen/types"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Get Task Status",
		Description: "Gets the current state of a task. Expired tasks are indistinguishable from tasks that never existed.",
		Params: []docs.Parameter{
			{
				Name:        "taskId",
				Description: "The task ID",
				Required:    true,
				In:          "path",
				Schema:      docs.IdSchema,
			},
		},
		Resp: types.Task{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	taskId := chi.URLParam(r, "taskId")

	if taskId == "" {
		return api.HttpResponse{
			Status: http.StatusBadRequest,
			Json:   types.ApiError{Message: "task id is required"},
		}
	}

	// Evict expired tasks first so a stale record can never be served
	if _, err := state.Tasks.ExpireOld(d.Context); err != nil {
		state.Logger.Error("Failed to expire old tasks", zap.Error(err))
		return api.DefaultResponse(http.StatusInternalServerError)
	}

	task, err := state.Tasks.Get(d.Context, taskId)

	if errors.Is(err, tasks.ErrNotFound) {
		return api.HttpResponse{
			Status: http.StatusNotFound,
			Json:   types.ApiError{Message: "Task not found"},
		}
	}

	if err != nil {
		state.Logger.Error("Failed to fetch task", zap.String("taskID", taskId), zap.Error(err))
		return api.DefaultResponse(http.StatusInternalServerError)
	}

	return api.HttpResponse{
		Json: task,
	}
}
