//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

const swaggerTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/status": {"get": {"summary": "Session status", "responses": {"200": {"description": "OK"}}}},
        "/model/local": {"post": {"summary": "Load a local model file", "responses": {"200": {"description": "OK"}, "400": {"description": "Not a model file"}, "404": {"description": "No such file"}}}},
        "/model/download": {
            "get": {"summary": "Download progress", "responses": {"200": {"description": "OK"}}},
            "post": {"summary": "Start the model download", "responses": {"202": {"description": "Started"}, "409": {"description": "Already running"}}},
            "delete": {"summary": "Cancel the model download", "responses": {"200": {"description": "OK"}}}
        },
        "/infer": {"post": {"summary": "Stream a response as NDJSON", "responses": {"200": {"description": "Stream"}, "409": {"description": "No model loaded"}, "503": {"description": "Engine unavailable"}}}},
        "/reset": {"post": {"summary": "Clear prompt and response", "responses": {"204": {"description": "Cleared"}}}}
    }
}`

var swaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelcache API",
	Description:      "Acquire, cache and restore a model file, and generate text with it.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerTemplate,
}

func init() {
	swag.Register(swaggerInfo.InstanceName(), swaggerInfo)
}

// MountSwagger serves the API description and Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
