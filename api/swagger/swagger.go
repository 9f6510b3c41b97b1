package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Budget Approval API",
        "description": "Approval workflow engine for internal spending requests",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Requests", "description": "Spending request lifecycle"},
        {"name": "Workflow", "description": "Approval workflow commands"}
    ],
    "paths": {
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List visible requests",
                "parameters": [
                    {"name": "state", "in": "query", "type": "string", "description": "Comma-separated states"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Create a draft request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get a request with its validation slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not visible to this actor"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/requests/{id}/submit": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Submit a draft into the approval chain",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already submitted"},
                    "422": {"description": "No supervising director"}
                }
            }
        },
        "/requests/{id}/validate": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Record the acting role's validation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ValidateRequestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role cannot validate at this stage"},
                    "409": {"description": "Already validated or invalid state"}
                }
            }
        },
        "/requests/{id}/reject": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Reject the request with a mandatory reason",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing rejection comment"}
                }
            }
        },
        "/requests/{id}/recall": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Recall a pending request back to draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RecallRequestRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Only the creator may recall"}
                }
            }
        },
        "/requests/{id}/can-validate": {
            "get": {
                "tags": ["Workflow"],
                "summary": "Whether the actor may validate the request now",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/receipt": {
            "get": {
                "tags": ["Requests"],
                "summary": "Download the approval trail as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        }
    },
    "definitions": {
        "Request": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "creator_id": {"type": "string"},
                "creator_role": {"type": "string"},
                "kind": {"type": "string", "enum": ["STANDARD", "DIRECT_TO_FINANCE"]},
                "purpose": {"type": "string"},
                "amount": {"type": "string"},
                "state": {"type": "string", "enum": ["DRAFT", "PENDING_DIRECTOR", "PENDING_FINANCE", "APPROVED", "REJECTED"]},
                "recall_reason": {"type": "string"},
                "submitted_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ValidationSlot": {
            "type": "object",
            "properties": {
                "validator_id": {"type": "string"},
                "validated_at": {"type": "string"},
                "comment": {"type": "string"}
            }
        },
        "CreateRequestRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["STANDARD", "DIRECT_TO_FINANCE"]},
                "purpose": {"type": "string"},
                "amount": {"type": "string"}
            },
            "required": ["purpose", "amount"]
        },
        "ValidateRequestRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"}
            }
        },
        "RejectRequestRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"}
            },
            "required": ["comment"]
        },
        "RecallRequestRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
