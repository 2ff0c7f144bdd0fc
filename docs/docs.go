package docs

import (
	"reflect"
	"strings"

	"imagen/types"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var api = Openapi{
	OpenAPI: "3.0.3",
	Info: Info{
		Title: "Imagen API",
		Description: `
Welcome to the Imagen API documentation!

Imagen is an asynchronous image generation service: submit a prompt, get a
task id back immediately, poll the status endpoint until the external
worker reports the result through the callback webhook.
`,
		Version: "1.0",
		Contact: Contact{
			Name: "Imagen",
			URL:  "https://github.com/imagen",
		},
		License: License{
			Name: "MIT",
			URL:  "https://opensource.org/licenses/MIT",
		},
	},
	Servers: []Server{
		{
			URL:         "https://api.imagen.localhost",
			Description: "Imagen (v1)",
			Variables:   map[string]any{},
		},
	},
	Components: Component{
		Schemas:       make(map[string]any),
		Security:      make(map[string]Security),
		RequestBodies: make(map[string]ReqBody),
	},
	Paths: orderedmap.New[string, Path](),
}

var badRequestSchema *openapi3.SchemaRef

var IdSchema *openapi3.SchemaRef
var BoolSchema *openapi3.SchemaRef

func init() {
	var err error

	badRequestSchema, err = openapi3gen.NewSchemaRefForValue(types.ApiError{}, nil)

	if err != nil {
		panic(err)
	}

	IdSchema, err = openapi3gen.NewSchemaRefForValue("1234567890", nil)

	if err != nil {
		panic(err)
	}

	BoolSchema, err = openapi3gen.NewSchemaRefForValue(true, nil)

	if err != nil {
		panic(err)
	}

	api.Components.Schemas["ApiError"] = badRequestSchema
}

func AddTag(name, description string) {
	api.Tags = append(api.Tags, Tag{
		Name:        name,
		Description: description,
	})
}

func AddSecuritySchema(id, description string) {
	api.Components.Security[id] = Security{
		Type:        "apiKey",
		Name:        "Authorization",
		In:          "header",
		Description: description,
	}
}

// Route registers a documented route into the schema. Called by the api
// package when a route is mounted.
func Route(doc *Doc) {
	defer func() {
		doc.added = true
	}()

	// Generate schemaName, taking out bad things
	schemaName := strings.ReplaceAll(reflect.TypeOf(doc.Resp).String(), "[", "-")

	schemaName = strings.ReplaceAll(schemaName, "]", "-")
	schemaName = strings.ReplaceAll(schemaName, " ", "")
	schemaName = strings.ReplaceAll(schemaName, "{", "")
	schemaName = strings.ReplaceAll(schemaName, "}", "")

	// Remove last - if it exists
	schemaName = strings.TrimSuffix(schemaName, "-")

	schemaName = strings.ReplaceAll(schemaName, "docs.", "")

	if _, ok := api.Components.Schemas[schemaName]; !ok {
		schemaRef, err := openapi3gen.NewSchemaRefForValue(doc.Resp, nil)

		if err != nil {
			panic(err)
		}

		api.Components.Schemas[schemaName] = schemaRef
	}

	// Add in requests
	if doc.Req != nil {
		schemaRef, err := openapi3gen.NewSchemaRefForValue(doc.Req, nil)

		if err != nil {
			panic(err)
		}

		api.Components.RequestBodies["method-"+schemaName] = ReqBody{
			Description: "Request body",
			Required:    true,
			Content: map[string]Content{
				"application/json": {
					Schema: schemaRef,
				},
			},
		}
	}

	refName := "#/components/schemas/" + schemaName
	reqName := "#/components/requestBodies/" + "method-" + schemaName

	var reqBody *Ref

	if doc.Req != nil {
		reqBody = &Ref{Ref: reqName}
	}

	if doc.Params == nil {
		doc.Params = []Parameter{}
	}

	operationData := &Operation{
		Tags:        doc.Tags,
		Summary:     doc.Summary,
		Description: doc.Description,
		ID:          doc.OpId,
		Parameters:  doc.Params,
		RequestBody: reqBody,
		Responses: map[string]Response{
			"200": {
				Description: "Success",
				Content: map[string]SchemaResp{
					"application/json": {
						Schema: Ref{
							Ref: refName,
						},
					},
				},
			},
			"400": {
				Description: "Bad Request",
				Content: map[string]SchemaResp{
					"application/json": {
						Schema: Ref{
							Ref: "#/components/schemas/ApiError",
						},
					},
				},
			},
		},
	}

	operationData.Security = []map[string][]string{}

	if len(doc.AuthType) == 0 {
		operationData.Security = append(operationData.Security, map[string][]string{
			"None": {},
		})
	}

	for _, auth := range doc.AuthType {
		operationData.Security = append(operationData.Security, map[string][]string{
			auth: {},
		})
	}

	op, _ := api.Paths.Get(doc.Path)

	switch strings.ToLower(doc.Method) {
	case "get":
		op.Get = operationData
	case "post":
		op.Post = operationData
	case "put":
		op.Put = operationData
	case "patch":
		op.Patch = operationData
	case "delete":
		op.Delete = operationData
	default:
		panic("Unknown method: " + doc.Method)
	}

	api.Paths.Set(doc.Path, op)
}

func GetSchema() any {
	return api
}
