package get_task_status

import (
	"context"
	"net/http"
	"testing"

	"imagen/api"
	"imagen/tasks"
	"imagen/types"
)

func TestGetTaskStatus(t *testing.T) {
	taskStore, _ := api.TestInit()

	task, err := taskStore.Create(context.Background(), "a red bicycle", "user1")

	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	resp := api.Test(api.TestData{
		Route:  Route,
		Params: map[string]string{"taskId": task.TaskID},
		T:      t,
	})

	if resp.Status != 0 && resp.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}

	got, ok := resp.Json.(*types.Task)

	if !ok {
		t.Fatalf("expected Task response, got %T", resp.Json)
	}

	if got.TaskID != task.TaskID {
		t.Errorf("expected task %s, got %s", task.TaskID, got.TaskID)
	}

	if got.Status != types.TaskStatusPending {
		t.Errorf("expected pending status, got %q", got.Status)
	}
}

func TestGetTaskStatusTerminal(t *testing.T) {
	taskStore, _ := api.TestInit()

	task, err := taskStore.Create(context.Background(), "a red bicycle", "user1")

	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	err = taskStore.Update(context.Background(), task.TaskID, tasks.Update{
		Status:    types.TaskStatusCompleted,
		ImageData: "aGVsbG8=",
	})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	resp := api.Test(api.TestData{
		Route:  Route,
		Params: map[string]string{"taskId": task.TaskID},
		T:      t,
	})

	got, ok := resp.Json.(*types.Task)

	if !ok {
		t.Fatalf("expected Task response, got %T", resp.Json)
	}

	if got.Status != types.TaskStatusCompleted {
		t.Errorf("expected completed status, got %q", got.Status)
	}

	if got.ImageData.String != "aGVsbG8=" {
		t.Errorf("image data not returned, got %q", got.ImageData.String)
	}

	if !got.CompletedAt.Valid {
		t.Error("expected completed_at to be set")
	}
}

func TestGetTaskStatusNotFound(t *testing.T) {
	api.TestInit()

	resp := api.Test(api.TestData{
		Route:  Route,
		Params: map[string]string{"taskId": "no-such-task"},
		T:      t,
	})

	if resp.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Status)
	}
}
