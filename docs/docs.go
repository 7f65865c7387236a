// Package docs holds the OpenAPI description served at /swagger when
// SWAGGER_ENABLED is set. Regenerate with `swag init -g cmd/bridge/main.go`
// after changing handler annotations.
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
        "/links": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Count short links (debug)",
                "operationId": "countLinks",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LinkCountResponse"}}
                }
            },
            "post": {
                "description": "Binds a video, payee, and invoice to a fresh opaque code and starts watching the video's live chat.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Create a short link",
                "operationId": "createLink",
                "parameters": [
                    {"type": "string", "description": "Idempotency key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Link tuple", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateLinkRequest"}}
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {"$ref": "#/definitions/handlers.CreateLinkResponse"},
                        "headers": {"Idempotency-Replayed": {"type": "string", "description": "true when served from a previous request"}}
                    },
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "No free code", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/links/{code}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Resolve a short link",
                "operationId": "getLink",
                "parameters": [{"type": "string", "description": "Short code", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LinkResponse"}},
                    "404": {"description": "Unknown or expired code", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/links/{code}/url": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Front-end URL for a short link",
                "operationId": "getLinkURL",
                "parameters": [
                    {"type": "string", "description": "Short code", "name": "code", "in": "path", "required": true},
                    {"enum": ["payment", "claim", "access"], "type": "string", "default": "payment", "description": "Target page", "name": "kind", "in": "query"},
                    {"type": "boolean", "description": "Answer with 302 instead of JSON", "name": "redirect", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LinkURLResponse"}},
                    "302": {"description": "Redirect", "schema": {"type": "string"}},
                    "400": {"description": "Unknown kind", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Unknown or expired code", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/payments": {
            "get": {
                "description": "Newest first. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "List recorded superchats (paginated)",
                "operationId": "listPayments",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Only this video", "name": "videoId", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.ListPaymentsResponse"},
                        "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}
                    },
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "400": {"description": "Bad video id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Posts the superchat to the video's live chat exactly once per paymentId. Repeats answer \"duplicate\" with the original record.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Submit a settled payment",
                "operationId": "submitPayment",
                "parameters": [
                    {"description": "Payment confirmation", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SubmitPaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SubmitPaymentResponse"}},
                    "400": {"description": "InvalidInput", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "ChatUnavailable or PostFailed; safe to retry", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "description": "Server-Sent Events; no backlog, only superchats recorded after subscribing.",
                "produces": ["text/event-stream"],
                "tags": ["Events"],
                "summary": "Live superchat stream",
                "operationId": "streamEvents",
                "responses": {
                    "200": {"description": "event: newSuperchat", "schema": {"$ref": "#/definitions/domain.Superchat"}}
                }
            }
        },
        "/monitors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Monitors"],
                "summary": "List chat monitor sessions",
                "operationId": "listMonitors",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListMonitorsResponse"}}
                }
            }
        },
        "/monitors/{videoId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Monitors"],
                "summary": "Inspect a chat monitor session",
                "operationId": "getMonitor",
                "parameters": [{"type": "string", "description": "Video id", "name": "videoId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.MonitorSession"}},
                    "404": {"description": "No session for this video", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/monitors/{videoId}/start": {
            "post": {
                "description": "Idempotent. \"started\" is true only when this call created the session.",
                "produces": ["application/json"],
                "tags": ["Monitors"],
                "summary": "Ensure a chat monitor runs for a video",
                "operationId": "startMonitor",
                "parameters": [{"type": "string", "description": "Video id", "name": "videoId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StartMonitorResponse"}},
                    "400": {"description": "Bad video id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Shutting down", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/videos/{videoId}/live-chat": {
            "get": {
                "description": "Checks provider credentials and whether the video is live.",
                "produces": ["application/json"],
                "tags": ["Videos"],
                "summary": "Resolve a video's live chat id",
                "operationId": "getLiveChat",
                "parameters": [{"type": "string", "description": "Video id", "name": "videoId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LiveChatResponse"}},
                    "400": {"description": "Bad video id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "ChatUnavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness and ledger health",
                "operationId": "health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.MonitorSession": {
            "type": "object",
            "properties": {
                "videoId": {"type": "string"},
                "liveChatId": {"type": "string"},
                "cursor": {"type": "string"},
                "status": {"type": "string", "enum": ["starting", "running", "ended", "failed"]},
                "lastPollAt": {"type": "string"},
                "lastError": {"type": "string"},
                "startedAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.Superchat": {
            "type": "object",
            "properties": {
                "seq": {"type": "integer"},
                "paymentId": {"type": "string"},
                "videoId": {"type": "string"},
                "payerAddress": {"type": "string"},
                "amount": {"type": "string"},
                "message": {"type": "string"},
                "displayText": {"type": "string"},
                "chatMessageId": {"type": "string"},
                "postedAt": {"type": "string"}
            }
        },
        "handlers.CreateLinkRequest": {
            "type": "object",
            "properties": {
                "videoId": {"type": "string", "example": "abc123"},
                "payeeAddress": {"type": "string", "example": "0xAA00000000000000000000000000000000000000"},
                "invoiceRef": {"type": "string", "example": "inv-2026-0001"}
            }
        },
        "handlers.CreateLinkResponse": {
            "type": "object",
            "properties": {"code": {"type": "string", "example": "Q7K2M1AB"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "error": {"type": "string", "example": "NotFound"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"}
            }
        },
        "handlers.LinkCountResponse": {
            "type": "object",
            "properties": {"count": {"type": "integer", "example": 42}}
        },
        "handlers.LinkResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "videoId": {"type": "string"},
                "payeeAddress": {"type": "string"},
                "invoiceRef": {"type": "string"},
                "createdAt": {"type": "string"},
                "expiresAt": {"type": "string"}
            }
        },
        "handlers.LinkURLResponse": {
            "type": "object",
            "properties": {"kind": {"type": "string", "example": "payment"}, "url": {"type": "string"}}
        },
        "handlers.ListMonitorsResponse": {
            "type": "object",
            "properties": {"sessions": {"type": "array", "items": {"$ref": "#/definitions/domain.MonitorSession"}}}
        },
        "handlers.ListPaymentsResponse": {
            "type": "object",
            "properties": {
                "superchats": {"type": "array", "items": {"$ref": "#/definitions/domain.Superchat"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.LiveChatResponse": {
            "type": "object",
            "properties": {"videoId": {"type": "string"}, "liveChatId": {"type": "string"}}
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.StartMonitorResponse": {
            "type": "object",
            "properties": {"started": {"type": "boolean"}}
        },
        "handlers.SubmitPaymentRequest": {
            "type": "object",
            "properties": {
                "paymentId": {"type": "string", "example": "pay_1"},
                "videoId": {"type": "string", "example": "abc123"},
                "payerAddress": {"type": "string"},
                "amount": {"type": "string", "example": "0.01"},
                "message": {"type": "string", "example": "gg"}
            }
        },
        "handlers.SubmitPaymentResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["posted", "duplicate"]},
                "superchat": {"$ref": "#/definitions/domain.Superchat"}
            }
        },
        "httpapi.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "ledgerRecords": {"type": "integer"},
                "ledgerPending": {"type": "integer"},
                "subscribers": {"type": "integer"},
                "monitors": {"type": "integer"}
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
	Title:            "Superchat Bridge API",
	Description:      "Turns settled crypto payments into live chat superchats, exactly once per payment.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
