// Task lifecycle storage.
//
// Two implementations exist: a durable Postgres-backed store used in
// production and an ephemeral in-memory store used for development. Both
// enforce the same rules: a task that has reached a terminal state
// (completed or error) can never be mutated again, and the image payload
// and the error detail are mutually exclusive.
package tasks

import (
	"context"
	"errors"

	"imagen/types"
)

var (
	ErrNotFound    = errors.New("task not found")
	ErrTerminal    = errors.New("task is already in a terminal state")
	ErrEmptyPrompt = errors.New("prompt must be a non-empty string")
)

// Update is a partial mutation of a task record. Status is required.
// ImageData is only honored for a completed transition, Error only for an
// error transition. Terminal transitions stamp completed_at.
type Update struct {
	Status    string
	ImageData string
	Error     string
}

type Store interface {
	// Create records a new pending task and returns it. The task is
	// visible to Get before Create returns.
	Create(ctx context.Context, prompt string, userID string) (*types.Task, error)

	// Get returns a task by id, or ErrNotFound if it is absent or has
	// been expired.
	Get(ctx context.Context, taskID string) (*types.Task, error)

	// Update applies a partial update. Returns ErrNotFound for unknown
	// tasks and ErrTerminal when the task already reached a terminal
	// state. The check-and-set is atomic per record.
	Update(ctx context.Context, taskID string, upd Update) error

	// CountActive returns the number of non-terminal tasks.
	CountActive(ctx context.Context) (int64, error)

	// ExpireOld evicts terminal tasks past the retention window and any
	// task past the absolute age ceiling, returning how many were
	// removed. Non-terminal tasks under the ceiling are never evicted.
	ExpireOld(ctx context.Context) (int64, error)
}
