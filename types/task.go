package types

import "github.com/jackc/pgx/v5/pgtype"

const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusError      = "error"
)

// TaskStatusTerminal returns whether a status permits no further mutation
func TaskStatusTerminal(status string) bool {
	return status == TaskStatusCompleted || status == TaskStatusError
}

// @ci table=image_tasks
//
// Tasks track the lifecycle of a single image generation request from
// submission until the worker reports back.
type Task struct {
	TaskID      string             `db:"task_id" json:"task_id" validate:"required" description:"The task ID."`
	UserID      pgtype.Text        `db:"user_id" json:"user_id" description:"The user that submitted the task."`
	Prompt      string             `db:"prompt" json:"prompt" validate:"required" description:"The prompt the image is generated from."`
	Status      string             `db:"status" json:"status" validate:"required" description:"One of pending, processing, completed or error."`
	ImageData   pgtype.Text        `db:"image_data" json:"image_data" description:"Base64 encoded image data. Only set once the task has completed."`
	Error       pgtype.Text        `db:"error" json:"error" description:"Failure reason. Only set when the task has errored."`
	CreatedAt   pgtype.Timestamptz `db:"created_at" json:"created_at" description:"The time the task was created."`
	CompletedAt pgtype.Timestamptz `db:"completed_at" json:"completed_at" description:"The time the task reached a terminal state."`
}

// Body of POST /generate
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,notblank,max=2000" msg:"A non-empty prompt is required"`
}

// Response of POST /generate. The task record is readable the moment
// this response is sent, even if dispatch has not started yet.
type QueuedTask struct {
	TaskID string `json:"task_id" description:"The task ID to poll /status/{task_id} with."`
	Status string `json:"status" description:"Always pending at submission time."`
}
