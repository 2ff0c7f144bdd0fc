package main

import (
	"net/http"
	"strings"
	"time"

	"imagen/api"
	"imagen/constants"
	"imagen/docs"
	"imagen/routes/diagnostics"
	"imagen/routes/history"
	routetasks "imagen/routes/tasks"
	"imagen/routes/webhooks"
	"imagen/state"
	"imagen/tasks"
	"imagen/types"
	"imagen/zapchi"

	_ "embed"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed docs/assets/ext.js
var extUnminified string

//go:embed docs/assets/docs.html
var docsHTML string

func init() {
	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)

	strWriter := &strings.Builder{}

	strReader := strings.NewReader(extUnminified)

	if err := m.Minify("application/javascript", strWriter, strReader); err != nil {
		panic(err)
	}

	docsHTML = strings.Replace(docsHTML, "[JS]", strWriter.String(), 1)
}

var openapi []byte

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Worker uploads can be large, everything else should not be
		r.Body = http.MaxBytesReader(w, r.Body, 64*1024*1024)

		if r.Header.Get("Origin") == state.Config.Sites.Frontend {
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")

		if r.Method == "OPTIONS" {
			w.Write([]byte{})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	state.Setup()

	docs.AddSecuritySchema(types.TargetTypeUser, "Requires a user API token, sent as `Authorization: Bearer <token>`")

	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.CleanPath,
		corsMiddleware,
		zapchi.Logger(state.Logger, "api"),
		middleware.Timeout(30*time.Second),
	)

	routers := []api.APIRouter{
		routetasks.Router{},
		webhooks.Router{},
		history.Router{},
		diagnostics.Router{},
	}

	for _, router := range routers {
		name, desc := router.Tag()
		if name != "" {
			docs.AddTag(name, desc)
			api.CurrentTag = name
		} else {
			panic("Router tag name cannot be empty")
		}

		router.Routes(r)
	}

	r.Get("/openapi", func(w http.ResponseWriter, r *http.Request) {
		w.Write(openapi)
	})

	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(docsHTML))
	})

	// Load openapi here to avoid large marshalling in every request
	var err error
	openapi, err = json.Marshal(docs.GetSchema())

	if err != nil {
		panic(err)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(constants.NotFoundPage))
	})

	tasks.StartSweeper(state.Context, state.Tasks, state.Logger)

	state.Logger.Info("Listening on " + state.Config.Meta.Port)

	err = http.ListenAndServe(state.Config.Meta.Port, r)

	if err != nil {
		state.Logger.Fatal(err)
	}
}
