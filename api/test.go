package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imagen/config"
	"imagen/dispatch"
	"imagen/history"
	"imagen/state"
	"imagen/tasks"
	"imagen/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TestData drives a route handler directly, without the router or the
// auth layer, for endpoint tests.
type TestData struct {
	Route   func(d RouteData, r *http.Request) HttpResponse
	Body    []byte
	Method  string
	Headers map[string]string
	Params  map[string]string
	AuthID  string
	T       *testing.T
}

// TestInit swaps the global state for in-memory stores, miniredis and a
// stub worker so endpoint tests run without Postgres, Redis or a real
// worker. Returns the stores for assertions.
func TestInit() (*tasks.MemoryStore, *history.MemoryStore) {
	taskStore := tasks.NewMemoryStore(24*time.Hour, 48*time.Hour)
	historyStore := history.NewMemoryStore()

	state.Logger = zap.NewNop().Sugar()
	state.Tasks = taskStore
	state.History = historyStore

	state.Validator.RegisterValidation("notblank", validators.NotBlank)

	mr, err := miniredis.Run()

	if err != nil {
		panic(err)
	}

	state.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// Stub worker that always accepts the handoff
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	state.Config = &config.Config{}
	state.Config.Meta.GenerateRL = 100
	state.Config.Meta.GenerateRLWindow = 60
	state.Config.Worker.URL = worker.URL

	state.Dispatcher = dispatch.New(worker.URL, "http://localhost:8198/webhook/result", 5*time.Second, taskStore, state.Logger)

	return taskStore, historyStore
}

// Test runs a route handler against a synthetic request and returns the
// response for assertions.
func Test(d TestData) HttpResponse {
	method := d.Method

	if method == "" {
		method = "GET"
	}

	req := httptest.NewRequest(method, "/", bytes.NewReader(d.Body))

	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}

	rctx := chi.NewRouteContext()

	for k, v := range d.Params {
		rctx.URLParams.Add(k, v)
	}

	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	authData := AuthData{}

	if d.AuthID != "" {
		authData = AuthData{
			TargetType: types.TargetTypeUser,
			ID:         d.AuthID,
			Authorized: true,
		}
	}

	return d.Route(RouteData{
		Context: req.Context(),
		Auth:    authData,
	}, req)
}
