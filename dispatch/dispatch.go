// Hands newly created tasks to the external worker.
//
// Dispatch is fire and forget: the submission endpoint never waits on the
// worker, and a failed handoff is captured into the task record instead of
// being propagated. Dispatch failure is terminal for the task; the client
// resubmits to get a fresh task id.
package dispatch

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"imagen/tasks"
	"imagen/types"

	"go.uber.org/zap"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const userAgent = "Imagen/v1.0.0"

// The payload POSTed to the worker. The callback carries no secret: the
// task id is the only correlation key the worker needs to report back.
type workerRequest struct {
	TaskID      string `json:"task_id"`
	Prompt      string `json:"prompt"`
	CallbackURL string `json:"callback_url"`
}

type Dispatcher struct {
	// WorkerURL is the external worker's webhook endpoint
	WorkerURL string

	// CallbackURL points back at this server's result webhook
	CallbackURL string

	Tasks  tasks.Store
	Logger *zap.SugaredLogger

	// Client bounds only the dispatch handshake, not the generation
	Client *http.Client
}

func New(workerURL, callbackURL string, timeout time.Duration, store tasks.Store, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		WorkerURL:   workerURL,
		CallbackURL: callbackURL,
		Tasks:       store,
		Logger:      logger,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Dispatch hands the task to the worker in the background and returns
// immediately. All failure paths end in the task record, never the caller.
func (d *Dispatcher) Dispatch(taskID string, prompt string) {
	go func() {
		if err := d.send(context.Background(), taskID, prompt); err != nil {
			d.Logger.Error("Failed to dispatch task to worker", zap.String("taskID", taskID), zap.Error(err))

			uerr := d.Tasks.Update(context.Background(), taskID, tasks.Update{
				Status: types.TaskStatusError,
				Error:  "Failed to start generation: " + err.Error(),
			})

			if uerr != nil {
				d.Logger.Error("Failed to record dispatch failure", zap.String("taskID", taskID), zap.Error(uerr))
			}
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, taskID string, prompt string) error {
	body, err := json.Marshal(workerRequest{
		TaskID:      taskID,
		Prompt:      prompt,
		CallbackURL: d.CallbackURL,
	})

	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.WorkerURL, bytes.NewReader(body))

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.Client.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &WorkerStatusError{Status: resp.StatusCode}
	}

	// The worker accepted the handoff. If the callback already flipped the
	// task terminal in the meantime the guarded update is a no-op.
	err = d.Tasks.Update(ctx, taskID, tasks.Update{Status: types.TaskStatusProcessing})

	if err == tasks.ErrTerminal {
		return nil
	}

	if err != nil {
		d.Logger.Error("Failed to mark task as processing", zap.String("taskID", taskID), zap.Error(err))
	}

	return nil
}

type WorkerStatusError struct {
	Status int
}

func (e *WorkerStatusError) Error() string {
	return "worker returned status " + strconv.Itoa(e.Status) + " " + http.StatusText(e.Status)
}
