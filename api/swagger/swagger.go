// Package swagger registers the hand-maintained OpenAPI document served under /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Thesis Defense Scheduler API",
        "description": "Assigns thesis defenses to rooms and committee members and serves the persisted calendar.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Defenses", "description": "Defense scheduling runs and the persisted calendar"},
        {"name": "Operations", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Operations"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Operations"],
                "summary": "Readiness probe (pings the assignment store)",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Store unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Operations"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/asignaciones": {
            "get": {
                "tags": ["Defenses"],
                "summary": "Compute and persist defense assignments",
                "description": "Loads pending defense requests with room and committee availability, assigns conflict-free slots and supersedes each assigned student's previous row. Repeated calls are not idempotent.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "strategy", "in": "query", "type": "string", "enum": ["time_ordered", "load_balanced"]},
                    {"name": "dryRun", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EventsEnvelope"}},
                    "400": {"description": "Invalid query or strategy", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Scheduling failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/asignaciones/guardadas": {
            "get": {
                "tags": ["Defenses"],
                "summary": "List persisted defense assignments",
                "description": "Returns every stored assignment; superseded rows are tagged Danger.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EventsEnvelope"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/asignaciones/guardadas/export": {
            "get": {
                "tags": ["Defenses"],
                "summary": "Export persisted defense assignments",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EventExtendedProps": {
            "type": "object",
            "properties": {
                "calendar": {"type": "string", "enum": ["Success", "Danger"]},
                "professorId": {"type": "integer"},
                "sala": {"type": "integer"},
                "estudianteId": {"type": "integer"}
            }
        },
        "CalendarEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "start": {"type": "string", "example": "2025-03-10T09:00:00"},
                "end": {"type": "string", "example": "2025-03-10T09:40:00"},
                "extendedProps": {"$ref": "#/definitions/EventExtendedProps"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "EventsEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/CalendarEvent"}},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
