// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/update_balance": {
            "post": {
                "description": "Adds the current temperature of the city to the user's balance unless balance - temperature would be negative. The reply only confirms queuing; see /updates/{id} for the outcome.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["balance"],
                "summary": "Queue a weather-driven balance update",
                "parameters": [
                    {"description": "User and city", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateBalanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "status, task_id", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.User"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Add user",
                "parameters": [
                    {"description": "Username and starting balance", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AddUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "id", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/users/{id}/balance": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "User balance",
                "parameters": [
                    {"type": "integer", "description": "User id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "id, balance", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/updates": {
            "get": {
                "description": "Newest first. Only the most recent results are kept in memory.",
                "produces": ["application/json"],
                "tags": ["updates"],
                "summary": "Recent balance updates",
                "parameters": [
                    {"type": "integer", "default": 50, "description": "Max results (1..1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "count, updates", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/updates/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["updates"],
                "summary": "Balance update status",
                "parameters": [
                    {"type": "string", "description": "Task id returned by /update_balance", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.UpdateResult"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "WebSocket. Sends {\"type\":\"recent\"} with the latest results, then one {\"type\":\"update\"} per finished update.",
                "tags": ["updates"],
                "summary": "Stream finished balance updates",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Size of the initial backlog (1..1000)", "name": "limit", "in": "query"}
                ],
                "responses": {}
            }
        }
    },
    "definitions": {
        "handlers.AddUserRequest": {
            "type": "object",
            "required": ["username"],
            "properties": {
                "balance": {"type": "integer", "example": 11000},
                "username": {"type": "string", "example": "user6"}
            }
        },
        "handlers.UpdateBalanceRequest": {
            "type": "object",
            "properties": {
                "city": {"description": "City passed to the weather provider", "type": "string", "example": "Moscow"},
                "userId": {"description": "User id. Integers, floats (truncated), numeric strings and booleans are accepted.", "type": "integer", "example": 1}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "balance": {"type": "integer"},
                "id": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "models.UpdateResult": {
            "type": "object",
            "properties": {
                "balance_before": {"type": "integer"},
                "city": {"type": "string"},
                "delta": {"type": "integer"},
                "error": {"type": "string"},
                "finished_at": {"type": "string"},
                "outcome": {"type": "string"},
                "queued_at": {"type": "string"},
                "status": {"type": "string"},
                "task_id": {"type": "string"},
                "temperature": {"type": "number"},
                "temperature_source": {"type": "string"},
                "user_id": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Weather balance API",
	Description:      "Adjusts user balances by the current temperature of a city.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
