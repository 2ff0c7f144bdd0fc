package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"imagen/types"
)

// State of a polled generation as seen by the caller
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
)

// ErrTimedOut is returned when the attempt ceiling is hit before the task
// reaches a terminal state. The task itself may still complete server side.
var ErrTimedOut = errors.New("generation timed out")

// GenerationError is a task that reached the error state
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	if e.Reason == "" {
		return "generation failed"
	}

	return "generation failed: " + e.Reason
}

// Progress is a snapshot emitted on every state change and poll attempt.
// Percent is a smoothed estimate, not a worker-reported value: the server
// does not expose real progress, so the poller fakes a steady climb that
// never reaches completion on its own.
type Progress struct {
	State   State
	Percent float64
	Attempt int
	Task    *types.Task
}

type Poller struct {
	Client *Client

	// Interval between polls, 5s when zero
	Interval time.Duration

	// MaxAttempts before giving up, 120 when zero
	MaxAttempts int

	// OnProgress, when set, is called synchronously from the polling
	// goroutine on every update
	OnProgress func(Progress)

	mu     sync.Mutex
	cancel context.CancelFunc
}

// percent estimates progress from the attempt count. Pending climbs
// slowly and caps at 70, processing starts higher and caps at 85. Only a
// terminal state reaches 100.
func percent(status string, attempt int) float64 {
	switch status {
	case types.TaskStatusPending:
		return min(30+0.5*float64(attempt), 70)
	case types.TaskStatusProcessing:
		return min(40+float64(attempt), 85)
	case types.TaskStatusCompleted, types.TaskStatusError:
		return 100
	}

	return 0
}

func (p *Poller) emit(pr Progress) {
	if p.OnProgress != nil {
		p.OnProgress(pr)
	}
}

// Cancel aborts the in-flight run, if any
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Run submits the prompt and polls until the task goes terminal, the
// attempt ceiling is hit, or the context is cancelled. Starting a new run
// cancels any previous one: a caller only ever follows one generation.
func (p *Poller) Run(ctx context.Context, prompt string) (*types.Task, error) {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	defer cancel()

	interval := p.Interval

	if interval == 0 {
		interval = 5 * time.Second
	}

	maxAttempts := p.MaxAttempts

	if maxAttempts == 0 {
		maxAttempts = 120
	}

	p.emit(Progress{State: StateSubmitting})

	queued, err := p.Client.Generate(ctx, prompt)

	if err != nil {
		p.emit(Progress{State: StateFailed})
		return nil, err
	}

	p.emit(Progress{State: StatePolling, Percent: percent(queued.Status, 0)})

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		task, err := p.Client.Status(ctx, queued.TaskID)

		if err != nil {
			// An expired or unknown task will never complete. Anything
			// else is treated as transient and polled through.
			var apiErr *APIError

			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				p.emit(Progress{State: StateFailed, Attempt: attempt})
				return nil, err
			}

			continue
		}

		switch task.Status {
		case types.TaskStatusCompleted:
			p.emit(Progress{State: StateSucceeded, Percent: 100, Attempt: attempt, Task: task})
			return task, nil
		case types.TaskStatusError:
			p.emit(Progress{State: StateFailed, Percent: 100, Attempt: attempt, Task: task})
			return task, &GenerationError{Reason: task.Error.String}
		default:
			p.emit(Progress{State: StatePolling, Percent: percent(task.Status, attempt), Attempt: attempt, Task: task})
		}
	}

	p.emit(Progress{State: StateTimedOut, Attempt: maxAttempts})

	return nil, ErrTimedOut
}
