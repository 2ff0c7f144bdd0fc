package post_result

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"io"
	"net/http"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"imagen/api"
	"imagen/docs"
	"imagen/state"
	"imagen/tasks"
	"imagen/types"

	"go.uber.org/zap"
)

// Worker uploads can be large; cap what we are willing to buffer
const maxImageSize = 32 << 20

type workerResult struct {
	TaskID    string `json:"task_id"`
	Success   *bool  `json:"success"`
	ImageData string `json:"image_data"`
	Error     string `json:"error"`
}

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Post Result",
		Description: "Worker callback reporting the outcome of a generation. Accepts multipart/form-data with an `image_data` file field, or JSON with base64 `image_data`. Redeliveries for an already-terminal task are acknowledged, not errored.",
		Req:         workerResult{},
		Resp:        types.WebhookAck{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	res, hresp, ok := parseResult(r)

	if !ok {
		return hresp
	}

	if res.TaskID == "" {
		return api.HttpResponse{
			Status: http.StatusBadRequest,
			Json:   types.ApiError{Message: "task_id is required"},
		}
	}

	if failed, reason := res.failure(); failed {
		return applyUpdate(d, res.TaskID, tasks.Update{
			Status: types.TaskStatusError,
			Error:  reason,
		})
	}

	return applyUpdate(d, res.TaskID, tasks.Update{
		Status:    types.TaskStatusCompleted,
		ImageData: res.ImageData,
	})
}

// failure reports whether the callback is a failure report and with what
// reason. A callback with neither an image nor an explicit success flag
// is a failure: there is nothing to complete the task with.
func (res workerResult) failure() (bool, string) {
	if res.Success != nil && !*res.Success {
		if res.Error != "" {
			return true, res.Error
		}
		return true, "Worker reported failure"
	}

	if res.Error != "" {
		return true, res.Error
	}

	if res.ImageData == "" {
		return true, "Worker sent no image data"
	}

	return false, ""
}

func parseResult(r *http.Request) (workerResult, api.HttpResponse, bool) {
	var res workerResult

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err := r.ParseMultipartForm(maxImageSize)

		if err != nil {
			return res, api.HttpResponse{
				Status: http.StatusBadRequest,
				Json:   types.ApiError{Message: "Invalid multipart body: " + err.Error()},
			}, false
		}

		res.TaskID = r.FormValue("task_id")
		res.Error = r.FormValue("error")

		if v := r.FormValue("success"); v != "" {
			success := v != "false" && v != "0"
			res.Success = &success
		}

		file, _, err := r.FormFile("image_data")

		if err == nil {
			defer file.Close()

			data, err := io.ReadAll(io.LimitReader(file, maxImageSize))

			if err != nil {
				return res, api.DefaultResponse(http.StatusInternalServerError), false
			}

			b64, hresp, ok := sniffImage(res.TaskID, data)

			if !ok {
				return res, hresp, false
			}

			res.ImageData = b64
		}

		return res, api.HttpResponse{}, true
	}

	if hresp, ok := api.MarshalReq(r, &res); !ok {
		return res, hresp, false
	}

	// The JSON path carries the image as base64. Decode and sniff it the
	// same way as a multipart upload so a garbage payload cannot complete
	// a task with an unrenderable result.
	if res.ImageData != "" {
		data, err := base64.StdEncoding.DecodeString(res.ImageData)

		if err != nil {
			return res, api.HttpResponse{
				Status: http.StatusBadRequest,
				Json:   types.ApiError{Message: "image_data is not valid base64"},
			}, false
		}

		b64, hresp, ok := sniffImage(res.TaskID, data)

		if !ok {
			return res, hresp, false
		}

		res.ImageData = b64
	}

	return res, api.HttpResponse{}, true
}

// sniffImage checks that the raw payload decodes as png, jpeg or webp and
// returns it base64 encoded for storage
func sniffImage(taskID string, data []byte) (string, api.HttpResponse, bool) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))

	if err != nil {
		return "", api.HttpResponse{
			Status: http.StatusBadRequest,
			Json:   types.ApiError{Message: "Payload is not a supported image"},
		}, false
	}

	state.Logger.Info("Received result image", zap.String("taskID", taskID), zap.String("format", format), zap.Int("width", cfg.Width), zap.Int("height", cfg.Height))

	return base64.StdEncoding.EncodeToString(data), api.HttpResponse{}, true
}

func applyUpdate(d api.RouteData, taskID string, upd tasks.Update) api.HttpResponse {
	err := state.Tasks.Update(d.Context, taskID, upd)

	if errors.Is(err, tasks.ErrNotFound) {
		return api.HttpResponse{
			Status: http.StatusNotFound,
			Json:   types.ApiError{Message: "Task not found"},
		}
	}

	// A terminal task means this is a redelivery: the first report won.
	// Acknowledge anyway so the worker stops retrying.
	if err != nil && !errors.Is(err, tasks.ErrTerminal) {
		state.Logger.Error("Failed to apply worker result", zap.String("taskID", taskID), zap.Error(err))
		return api.DefaultResponse(http.StatusInternalServerError)
	}

	// The archive is attempted on every success callback, redeliveries
	// included: the task_id dedup makes the normal case a no-op, and an
	// archive lost on the first delivery gets repaired by the retry.
	if upd.Status == types.TaskStatusCompleted {
		archive(d, taskID)
	}

	return api.HttpResponse{
		Json: types.WebhookAck{Success: true, Message: "Result recorded"},
	}
}

// archive copies the completed task into durable history. Failure here is
// logged but never surfaced to the worker: the task update already
// committed, and redelivery dedup makes a retry harmless.
func archive(d api.RouteData, taskID string) {
	task, err := state.Tasks.Get(d.Context, taskID)

	if err != nil {
		state.Logger.Error("Failed to fetch task for history", zap.String("taskID", taskID), zap.Error(err))
		return
	}

	// A success redelivery for a task that already errored must not
	// fabricate a history record
	if task.Status != types.TaskStatusCompleted {
		return
	}

	err = state.History.Add(d.Context, types.HistoryRecord{
		TaskID:    task.TaskID,
		UserID:    task.UserID,
		Prompt:    task.Prompt,
		ImageData: task.ImageData,
	})

	if err != nil {
		state.Logger.Error("Failed to archive task to history", zap.String("taskID", taskID), zap.Error(err))
	}
}
