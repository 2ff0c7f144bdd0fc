package create_task

import (
	"net/http"
	"time"

	"imagen/api"
	"imagen/constants"
	"imagen/docs"
	"imagen/ratelimit"
	"imagen/state"
	"imagen/types"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var compiledMessages = api.CompileValidationErrors(types.GenerateRequest{})

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Create Task",
		Description: "Submits a prompt for image generation. The task is queued and handed to the worker in the background; poll Get Task Status with the returned task ID to follow it.",
		Req:         types.GenerateRequest{},
		Resp:        types.QueuedTask{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	bucket := ratelimit.Bucket{
		BucketName: "generate",
		Requests:   state.Config.Meta.GenerateRL,
		Time:       time.Duration(state.Config.Meta.GenerateRLWindow) * time.Second,
	}

	limit, err := ratelimit.Check(d.Context, bucket, ratelimit.Identifier(r, d.Auth.ID))

	if err != nil {
		state.Logger.Error("Failed to check ratelimit", zap.Error(err))
		return api.DefaultResponse(http.StatusInternalServerError)
	}

	if limit.Exceeded {
		return api.HttpResponse{
			Status:  http.StatusTooManyRequests,
			Data:    constants.TooManyRequests,
			Headers: limit.Headers(bucket),
		}
	}

	var payload types.GenerateRequest

	hresp, ok := api.MarshalReq(r, &payload)

	if !ok {
		return hresp
	}

	err = state.Validator.Struct(payload)

	if err != nil {
		return api.ValidatorErrorResponse(compiledMessages, err.(validator.ValidationErrors))
	}

	task, err := state.Tasks.Create(d.Context, payload.Prompt, d.Auth.ID)

	if err != nil {
		state.Logger.Error("Failed to create task", zap.Error(err))
		return api.DefaultResponse(http.StatusInternalServerError)
	}

	// Fire and forget: the response goes out before (and regardless of)
	// the worker handoff
	state.Dispatcher.Dispatch(task.TaskID, task.Prompt)

	return api.HttpResponse{
		Status: http.StatusAccepted,
		Json: types.QueuedTask{
			TaskID: task.TaskID,
			Status: task.Status,
		},
	}
}
