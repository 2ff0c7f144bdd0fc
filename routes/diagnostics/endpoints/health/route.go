package health

import (
	"net/http"
	"time"

	"imagen/api"
	"imagen/docs"
	"imagen/state"
	"imagen/types"

	"go.uber.org/zap"
)

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Health Check",
		Description: "Reports whether the service can reach its task store, along with the number of currently active (non-terminal) tasks. Returns 503 when the store is unreachable.",
		Resp:        types.Health{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	active, err := state.Tasks.CountActive(d.Context)

	if err != nil {
		state.Logger.Error("Health check failed", zap.Error(err))

		return api.HttpResponse{
			Status: http.StatusServiceUnavailable,
			Json: types.Health{
				Status:    "unhealthy",
				Timestamp: time.Now(),
				Reason:    "task store unreachable",
			},
		}
	}

	return api.HttpResponse{
		Json: types.Health{
			Status:      "healthy",
			ActiveTasks: active,
			Timestamp:   time.Now(),
		},
	}
}
