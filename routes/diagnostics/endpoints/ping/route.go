package ping

import (
	"net/http"

	"imagen/api"
	"imagen/docs"
	"imagen/state"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Hello struct {
	Message string `json:"message"`
	Docs    string `json:"docs"`
	Status  string `json:"status"`
}

var helloWorld []byte
var helloWorldB Hello

func Setup() {
	// This is done here to avoid constant remarshalling
	helloWorldB = Hello{
		Message: "Hello world from the Imagen API!",
		Docs:    state.Config.Sites.API + "/docs",
		Status:  state.Config.Sites.API + "/health",
	}

	var err error
	helloWorld, err = json.Marshal(helloWorldB)

	if err != nil {
		panic(err)
	}
}

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Ping Server",
		Description: "This is a simple ping endpoint to check if the API is online. It will return a simple JSON object with a message, docs link and health link.",
		Resp:        helloWorldB,
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	return api.HttpResponse{
		Bytes: helloWorld,
	}
}
