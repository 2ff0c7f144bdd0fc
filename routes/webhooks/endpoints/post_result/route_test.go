package post_result

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"testing"

	"imagen/api"
	"imagen/tasks"
	"imagen/types"
)

func createTask(t *testing.T, taskStore *tasks.MemoryStore) *types.Task {
	t.Helper()

	task, err := taskStore.Create(context.Background(), "a lighthouse at dusk", "user1")

	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	return task
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer

	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	return buf.Bytes()
}

func TestPostResultJSONSuccess(t *testing.T) {
	taskStore, historyStore := api.TestInit()
	task := createTask(t, taskStore)

	imgB64 := base64.StdEncoding.EncodeToString(pngData(t, 1, 1))

	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":true,"image_data":"` + imgB64 + `"}`),
		T:      t,
	})

	if resp.Status != 0 && resp.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}

	got, err := taskStore.Get(context.Background(), task.TaskID)

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got.Status != types.TaskStatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}

	if got.ImageData.String != imgB64 {
		t.Error("stored image data does not match the callback payload")
	}

	recs, err := historyStore.ForUser(context.Background(), "user1")

	if err != nil {
		t.Fatalf("ForUser returned error: %v", err)
	}

	if len(recs) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(recs))
	}

	if recs[0].TaskID != task.TaskID {
		t.Errorf("history archived wrong task: %s", recs[0].TaskID)
	}
}

func TestPostResultJSONRejectsGarbageImage(t *testing.T) {
	taskStore, _ := api.TestInit()
	task := createTask(t, taskStore)

	// Valid base64, but not an image
	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":true,"image_data":"aGVsbG8="}`),
		T:      t,
	})

	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Status)
	}

	// Not base64 at all
	resp = api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":true,"image_data":"%%%not-base64%%%"}`),
		T:      t,
	})

	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid base64, got %d", resp.Status)
	}

	got, err := taskStore.Get(context.Background(), task.TaskID)

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got.Status != types.TaskStatusPending {
		t.Errorf("rejected payload must not complete the task, got %q", got.Status)
	}
}

func TestPostResultMultipartSuccess(t *testing.T) {
	taskStore, _ := api.TestInit()
	task := createTask(t, taskStore)

	img := pngData(t, 1, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	mw.WriteField("task_id", task.TaskID)

	fw, err := mw.CreateFormFile("image_data", "result.png")

	if err != nil {
		t.Fatalf("CreateFormFile returned error: %v", err)
	}

	fw.Write(img)
	mw.Close()

	resp := api.Test(api.TestData{
		Route:   Route,
		Method:  "POST",
		Body:    body.Bytes(),
		Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
		T:       t,
	})

	if resp.Status != 0 && resp.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}

	got, err := taskStore.Get(context.Background(), task.TaskID)

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got.Status != types.TaskStatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}

	if got.ImageData.String != base64.StdEncoding.EncodeToString(img) {
		t.Error("stored image data does not match the upload")
	}
}

func TestPostResultMultipartRejectsNonImage(t *testing.T) {
	taskStore, _ := api.TestInit()
	task := createTask(t, taskStore)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	mw.WriteField("task_id", task.TaskID)

	fw, _ := mw.CreateFormFile("image_data", "result.txt")
	fw.Write([]byte("not an image"))
	mw.Close()

	resp := api.Test(api.TestData{
		Route:   Route,
		Method:  "POST",
		Body:    body.Bytes(),
		Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
		T:       t,
	})

	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Status)
	}
}

func TestPostResultFailureReport(t *testing.T) {
	taskStore, historyStore := api.TestInit()
	task := createTask(t, taskStore)

	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":false,"error":"model exploded"}`),
		T:      t,
	})

	if resp.Status != 0 && resp.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}

	got, err := taskStore.Get(context.Background(), task.TaskID)

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got.Status != types.TaskStatusError {
		t.Errorf("expected error status, got %q", got.Status)
	}

	if got.Error.String != "model exploded" {
		t.Errorf("error not stored, got %q", got.Error.String)
	}

	recs, _ := historyStore.ForUser(context.Background(), "user1")

	if len(recs) != 0 {
		t.Errorf("failed tasks must not be archived, got %d records", len(recs))
	}
}

func TestPostResultMissingTaskID(t *testing.T) {
	api.TestInit()

	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"success":false,"error":"boom"}`),
		T:      t,
	})

	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Status)
	}
}

func TestPostResultUnknownTask(t *testing.T) {
	api.TestInit()

	imgB64 := base64.StdEncoding.EncodeToString(pngData(t, 1, 1))

	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"no-such-task","success":true,"image_data":"` + imgB64 + `"}`),
		T:      t,
	})

	if resp.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Status)
	}
}

func TestPostResultRedelivery(t *testing.T) {
	taskStore, historyStore := api.TestInit()
	task := createTask(t, taskStore)

	firstB64 := base64.StdEncoding.EncodeToString(pngData(t, 1, 1))
	secondB64 := base64.StdEncoding.EncodeToString(pngData(t, 2, 2))

	api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":true,"image_data":"` + firstB64 + `"}`),
		T:      t,
	})

	// Redelivery with different data must be acknowledged but ignored
	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":true,"image_data":"` + secondB64 + `"}`),
		T:      t,
	})

	if resp.Status != 0 && resp.Status != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", resp.Status)
	}

	got, err := taskStore.Get(context.Background(), task.TaskID)

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got.ImageData.String != firstB64 {
		t.Error("redelivery overwrote the first result")
	}

	recs, _ := historyStore.ForUser(context.Background(), "user1")

	if len(recs) != 1 {
		t.Errorf("expected exactly 1 history record, got %d", len(recs))
	}
}

func TestPostResultRedeliveryRepairsHistory(t *testing.T) {
	taskStore, historyStore := api.TestInit()
	task := createTask(t, taskStore)

	// The task completed but the archive was lost, as if the process died
	// between the task update and the history insert
	err := taskStore.Update(context.Background(), task.TaskID, tasks.Update{
		Status:    types.TaskStatusCompleted,
		ImageData: base64.StdEncoding.EncodeToString(pngData(t, 1, 1)),
	})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	imgB64 := base64.StdEncoding.EncodeToString(pngData(t, 1, 1))

	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":true,"image_data":"` + imgB64 + `"}`),
		T:      t,
	})

	if resp.Status != 0 && resp.Status != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", resp.Status)
	}

	recs, err := historyStore.ForUser(context.Background(), "user1")

	if err != nil {
		t.Fatalf("ForUser returned error: %v", err)
	}

	if len(recs) != 1 {
		t.Fatalf("redelivery should repair the missing archive, got %d records", len(recs))
	}

	if recs[0].TaskID != task.TaskID {
		t.Errorf("history archived wrong task: %s", recs[0].TaskID)
	}
}

func TestPostResultSuccessAfterErrorNoHistory(t *testing.T) {
	taskStore, historyStore := api.TestInit()
	task := createTask(t, taskStore)

	err := taskStore.Update(context.Background(), task.TaskID, tasks.Update{
		Status: types.TaskStatusError,
		Error:  "model exploded",
	})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	imgB64 := base64.StdEncoding.EncodeToString(pngData(t, 1, 1))

	resp := api.Test(api.TestData{
		Route:  Route,
		Method: "POST",
		Body:   []byte(`{"task_id":"` + task.TaskID + `","success":true,"image_data":"` + imgB64 + `"}`),
		T:      t,
	})

	if resp.Status != 0 && resp.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}

	got, _ := taskStore.Get(context.Background(), task.TaskID)

	if got.Status != types.TaskStatusError {
		t.Errorf("errored task must stay errored, got %q", got.Status)
	}

	recs, _ := historyStore.ForUser(context.Background(), "user1")

	if len(recs) != 0 {
		t.Errorf("a success redelivery for an errored task must not create history, got %d records", len(recs))
	}
}
