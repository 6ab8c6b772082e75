// Package docs holds the Swagger document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go --v3.1=false
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User login",
                "operationId": "loginAuth",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User logout",
                "operationId": "logoutAuth",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.LogoutResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Get current user",
                "operationId": "getCurrentUserAuth",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.CurrentUserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/assets/transitions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["transitions"],
                "summary": "Check a transition",
                "description": "Runs the precondition checks of a transition on the selected assets and describes the form to show",
                "parameters": [
                    {"type": "string", "description": "release-asset, return-asset or loan-asset", "name": "transition_type", "in": "query", "required": true},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Asset IDs", "name": "select", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TransitionPrepareResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transitions"],
                "summary": "Perform a transition",
                "description": "Validates the form and runs the transition on the selected assets in one transaction",
                "parameters": [
                    {"type": "string", "description": "release-asset, return-asset or loan-asset", "name": "transition_type", "in": "query", "required": true},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Asset IDs", "name": "select", "in": "query", "required": true},
                    {"type": "string", "description": "Client chosen key guarding against double submits", "name": "Idempotency-Key", "in": "header"},
                    {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/handler.TransitionSubmitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TransitionSubmitResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/assets/transitions/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["transitions"],
                "summary": "List transition history",
                "parameters": [
                    {"type": "string", "name": "transition_id", "in": "query"},
                    {"type": "string", "name": "asset_id", "in": "query"},
                    {"type": "string", "name": "logged_user_id", "in": "query"},
                    {"type": "string", "name": "affected_user_id", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "name": "page_size", "in": "query"},
                    {"type": "string", "default": "desc", "name": "order_dir", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.TransitionHistoryResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/assets/transitions/history/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["transitions"],
                "summary": "Get a transition history record",
                "parameters": [
                    {"type": "string", "description": "History ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TransitionHistoryResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/assets/transitions/history/{id}/report": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "tags": ["transitions"],
                "summary": "Download the report of a transition",
                "parameters": [
                    {"type": "string", "description": "History ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "302": {"description": "Found"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/system/info": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Get system information",
                "operationId": "getSystemSystemInfo",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/HandlerSystemInfoResponse"}}
                }
            }
        },
        "/system/outbox/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["outbox"],
                "summary": "Get outbox statistics",
                "operationId": "getOutboxStats",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/event.OutboxStatsDTO"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/system/outbox/dead": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["outbox"],
                "summary": "List dead letter entries",
                "operationId": "getOutboxDeadLetterEntries",
                "parameters": [
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/event.OutboxEntryDTO"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/system/outbox/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["outbox"],
                "summary": "Get an outbox entry",
                "operationId": "getOutboxEntry",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Outbox entry ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/event.OutboxEntryDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/system/outbox/dead/{id}/retry": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["outbox"],
                "summary": "Retry a dead letter entry",
                "operationId": "retryDeadEntryOutbox",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Outbox entry ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/event.OutboxEntryDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/system/outbox/dead/retry-all": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["outbox"],
                "summary": "Retry all dead letter entries",
                "operationId": "retryAllDeadEntriesOutbox",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.RetryAllResponse"}}
                }
            }
        },
        "/system/ping": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Ping the API",
                "operationId": "pingSystem",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/HandlerPingResponse"}}
                }
            }
        }
    },
    "definitions": {
        "event.OutboxStatsDTO": {
            "type": "object",
            "properties": {
                "pending": {"type": "integer"},
                "processing": {"type": "integer"},
                "sent": {"type": "integer"},
                "failed": {"type": "integer"},
                "dead": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "event.OutboxEntryDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "event_id": {"type": "string"},
                "event_type": {"type": "string", "example": "AssetsTransitioned"},
                "aggregate_id": {"type": "string"},
                "aggregate_type": {"type": "string"},
                "payload": {"type": "object"},
                "status": {"type": "string", "example": "DEAD"},
                "retry_count": {"type": "integer"},
                "max_retries": {"type": "integer"},
                "last_error": {"type": "string"},
                "next_retry_at": {"type": "string"},
                "processed_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handler.RetryAllResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer", "example": 3}
            }
        },
        "HandlerPingResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "pong"},
                "timestamp": {"type": "string"}
            }
        },
        "HandlerSystemInfoResponse": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "itam-backend"},
                "version": {"type": "string", "example": "1.0.0"},
                "go_version": {"type": "string"},
                "uptime": {"type": "string", "example": "1h30m45s"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string", "example": "ERR_TRANSITION_REJECTED"},
                        "message": {"type": "string"},
                        "request_id": {"type": "string"},
                        "messages": {"type": "array", "items": {"type": "string"}},
                        "details": {
                            "type": "array",
                            "items": {
                                "type": "object",
                                "properties": {
                                    "field": {"type": "string"},
                                    "message": {"type": "string"}
                                }
                            }
                        }
                    }
                }
            }
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string", "example": "jdoe"},
                "password": {"type": "string"}
            }
        },
        "handler.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "object",
                    "properties": {
                        "access_token": {"type": "string"},
                        "expires_at": {"type": "string"},
                        "token_type": {"type": "string", "example": "Bearer"}
                    }
                },
                "user": {"type": "object"}
            }
        },
        "handler.LogoutResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handler.CurrentUserResponse": {
            "type": "object",
            "properties": {
                "user": {"type": "object"}
            }
        },
        "handler.TransitionSubmitRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "warehouse_id": {"type": "string"}
            }
        },
        "handler.TransitionPrepareResponse": {
            "type": "object",
            "properties": {
                "transition_type": {"type": "string", "example": "release-asset"},
                "display_name": {"type": "string", "example": "Release Asset"},
                "transition_name": {"type": "string"},
                "assign_user": {"type": "boolean"},
                "assign_warehouse": {"type": "boolean"},
                "assets": {"type": "array", "items": {"type": "object"}},
                "messages": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.TransitionSubmitResponse": {
            "type": "object",
            "properties": {
                "history_id": {"type": "string"},
                "run_id": {"type": "string"},
                "report_file_name": {"type": "string"},
                "report_link": {"type": "string"},
                "messages": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.TransitionHistoryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "transition_id": {"type": "string"},
                "asset_ids": {"type": "array", "items": {"type": "string"}},
                "logged_user_id": {"type": "string"},
                "affected_user_id": {"type": "string"},
                "run_id": {"type": "string"},
                "report_file_name": {"type": "string"},
                "report_link": {"type": "string"},
                "archived": {"type": "boolean"},
                "created_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token authentication. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ITAM Backend API",
	Description:      "IT asset management: asset transitions, their history and handover reports",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
