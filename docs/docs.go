// Package docs holds the Swagger document served under /swagger/ when the
// server is built with -tags=swagger. Regenerate with `swag init -g cmd/embedd/docs.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "embedd maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/embedding": {
            "post": {
                "description": "Encodes one or more texts with the named model.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["embedding"],
                "summary": "Embed texts",
                "parameters": [
                    {
                        "description": "Texts and model",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.EmbeddingRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.EmbeddingResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.EmbeddingResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/types.EmbeddingResponse"}}
                }
            }
        },
        "/get_available_models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Availability by canonical model name",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness message",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Per-model load and queue status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.EmbeddingRequest": {
            "type": "object",
            "properties": {
                "contexts": {"type": "array", "items": {"type": "string"}, "example": ["hello", "world"]},
                "model_name": {"type": "string", "example": "bge_small_en_v1.5"}
            }
        },
        "types.EmbeddingResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "integer", "example": 200},
                "embedding_res": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "integer", "example": 200},
                "message": {"type": "string", "example": "service is healthy!"}
            }
        },
        "types.ModelStatus": {
            "type": "object",
            "properties": {
                "alias": {"type": "string"},
                "name": {"type": "string"},
                "backend": {"type": "string"},
                "device": {"type": "string"},
                "loaded": {"type": "boolean"},
                "last_error": {"type": "string"},
                "dimensions": {"type": "integer"},
                "load_ms": {"type": "integer"},
                "queue_len": {"type": "integer"},
                "inflight": {"type": "integer"},
                "max_queue_depth": {"type": "integer"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelStatus"}},
                "loaded": {"type": "integer"},
                "failed": {"type": "integer"},
                "ready": {"type": "boolean"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "embedd API",
	Description:      "HTTP API for text embedding with a fault-tolerant model registry.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
