package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"imagen/types"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore(24*time.Hour, 48*time.Hour)

	task, err := s.Create(context.Background(), "a lighthouse at dusk", "user1")

	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if task.Status != types.TaskStatusPending {
		t.Errorf("new task should be pending, got %q", task.Status)
	}

	if err := s.Update(context.Background(), task.TaskID, Update{Status: types.TaskStatusProcessing}); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}

	err = s.Update(context.Background(), task.TaskID, Update{
		Status:    types.TaskStatusCompleted,
		ImageData: "aGVsbG8=",
	})

	if err != nil {
		t.Fatalf("processing -> completed failed: %v", err)
	}

	got, err := s.Get(context.Background(), task.TaskID)

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got.Status != types.TaskStatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}

	if !got.CompletedAt.Valid {
		t.Error("completed_at should be set on terminal transition")
	}

	if got.Error.Valid {
		t.Error("completed task must not carry an error")
	}
}

func TestMemoryStoreCreateEmptyPrompt(t *testing.T) {
	s := NewMemoryStore(24*time.Hour, 48*time.Hour)

	for _, prompt := range []string{"", "   ", "\t\n"} {
		if _, err := s.Create(context.Background(), prompt, "user1"); !errors.Is(err, ErrEmptyPrompt) {
			t.Errorf("prompt %q: expected ErrEmptyPrompt, got %v", prompt, err)
		}
	}
}

func TestMemoryStoreTerminalImmutable(t *testing.T) {
	s := NewMemoryStore(24*time.Hour, 48*time.Hour)

	task, _ := s.Create(context.Background(), "prompt", "user1")

	if err := s.Update(context.Background(), task.TaskID, Update{Status: types.TaskStatusError, Error: "boom"}); err != nil {
		t.Fatalf("initial error transition failed: %v", err)
	}

	for _, upd := range []Update{
		{Status: types.TaskStatusPending},
		{Status: types.TaskStatusProcessing},
		{Status: types.TaskStatusCompleted, ImageData: "aGVsbG8="},
		{Status: types.TaskStatusError, Error: "again"},
	} {
		if err := s.Update(context.Background(), task.TaskID, upd); !errors.Is(err, ErrTerminal) {
			t.Errorf("update to %s after terminal: expected ErrTerminal, got %v", upd.Status, err)
		}
	}

	got, _ := s.Get(context.Background(), task.TaskID)

	if got.Error.String != "boom" {
		t.Errorf("terminal record mutated: %q", got.Error.String)
	}
}

func TestMemoryStoreErrorClearsImage(t *testing.T) {
	s := NewMemoryStore(24*time.Hour, 48*time.Hour)

	task, _ := s.Create(context.Background(), "prompt", "user1")

	if err := s.Update(context.Background(), task.TaskID, Update{Status: types.TaskStatusError, Error: "boom"}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, _ := s.Get(context.Background(), task.TaskID)

	if got.ImageData.Valid {
		t.Error("errored task must not carry image data")
	}

	if got.Error.String != "boom" {
		t.Errorf("expected error to be stored, got %q", got.Error.String)
	}
}

func TestMemoryStoreUpdateUnknownTask(t *testing.T) {
	s := NewMemoryStore(24*time.Hour, 48*time.Hour)

	err := s.Update(context.Background(), "no-such-task", Update{Status: types.TaskStatusProcessing})

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	s := NewMemoryStore(time.Hour, 48*time.Hour)

	task, _ := s.Create(context.Background(), "prompt", "user1")

	s.Update(context.Background(), task.TaskID, Update{Status: types.TaskStatusCompleted, ImageData: "aGVsbG8="})

	// Backdate completion past the retention window
	s.mu.Lock()
	rec := s.tasks[task.TaskID]
	rec.CompletedAt = pgtype.Timestamptz{Time: time.Now().Add(-2 * time.Hour), Valid: true}
	s.tasks[task.TaskID] = rec
	s.mu.Unlock()

	if _, err := s.Get(context.Background(), task.TaskID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired task to read as not found, got %v", err)
	}
}

func TestMemoryStoreMaxAgeExpiry(t *testing.T) {
	s := NewMemoryStore(24*time.Hour, time.Hour)

	task, _ := s.Create(context.Background(), "prompt", "user1")

	// A stuck non-terminal task older than the ceiling is still evicted
	s.mu.Lock()
	rec := s.tasks[task.TaskID]
	rec.CreatedAt = pgtype.Timestamptz{Time: time.Now().Add(-2 * time.Hour), Valid: true}
	s.tasks[task.TaskID] = rec
	s.mu.Unlock()

	evicted, err := s.ExpireOld(context.Background())

	if err != nil {
		t.Fatalf("ExpireOld returned error: %v", err)
	}

	if evicted != 1 {
		t.Errorf("expected 1 eviction, got %d", evicted)
	}

	if _, err := s.Get(context.Background(), task.TaskID); !errors.Is(err, ErrNotFound) {
		t.Fatal("task should be gone after sweep")
	}
}

func TestMemoryStoreCountActive(t *testing.T) {
	s := NewMemoryStore(24*time.Hour, 48*time.Hour)

	t1, _ := s.Create(context.Background(), "one", "user1")
	s.Create(context.Background(), "two", "user1")
	s.Create(context.Background(), "three", "user2")

	s.Update(context.Background(), t1.TaskID, Update{Status: types.TaskStatusError, Error: "boom"})

	active, err := s.CountActive(context.Background())

	if err != nil {
		t.Fatalf("CountActive returned error: %v", err)
	}

	if active != 2 {
		t.Errorf("expected 2 active tasks, got %d", active)
	}
}
