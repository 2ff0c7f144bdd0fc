package health

import (
	"context"
	"testing"

	"imagen/api"
	"imagen/tasks"
	"imagen/types"
)

func TestHealthCountsActiveTasks(t *testing.T) {
	taskStore, _ := api.TestInit()

	t1, _ := taskStore.Create(context.Background(), "one", "user1")
	taskStore.Create(context.Background(), "two", "user1")

	// Terminal tasks are not active
	err := taskStore.Update(context.Background(), t1.TaskID, tasks.Update{
		Status:    types.TaskStatusCompleted,
		ImageData: "aGVsbG8=",
	})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	resp := api.Test(api.TestData{
		Route: Route,
		T:     t,
	})

	h, ok := resp.Json.(types.Health)

	if !ok {
		t.Fatalf("expected Health response, got %T", resp.Json)
	}

	if h.Status != "healthy" {
		t.Errorf("expected healthy, got %q", h.Status)
	}

	if h.ActiveTasks != 1 {
		t.Errorf("expected 1 active task, got %d", h.ActiveTasks)
	}
}
