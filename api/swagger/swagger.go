package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable Engine",
        "description": "Generates conflict-free term timetables and ranks alternatives for conflicting entries.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetable", "description": "Generation runs and committed entries"},
        {"name": "Conflicts", "description": "Conflict reports and alternative placements"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate and commit a term timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}},
                    {"name": "mode", "in": "query", "type": "string", "enum": ["sync"]}
                ],
                "responses": {
                    "200": {"description": "Generated (sync mode)", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Term locked by another run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Nothing could be generated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/jobs/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get generation job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List committed entries of a term",
                "parameters": [
                    {"name": "academic_year", "in": "query", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/entries/{id}/suggestions": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Rank alternative placements for an entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown entry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List conflicts recorded for a term",
                "parameters": [
                    {"name": "academic_year", "in": "query", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts/detect": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Re-run conflict detection over a committed term",
                "parameters": [
                    {"name": "academic_year", "in": "query", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CourseSection": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "code": {"type": "string"},
                "expected_enrollment": {"type": "integer"},
                "credit_hours": {"type": "integer"},
                "lecturer_id": {"type": "string"},
                "department_id": {"type": "string"}
            }
        },
        "Room": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "capacity": {"type": "integer"},
                "building": {"type": "string"}
            }
        },
        "AvailabilityWindow": {
            "type": "object",
            "properties": {
                "day": {"type": "string", "example": "MON"},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "12:00"}
            }
        },
        "Lecturer": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "availability": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityWindow"}}
            }
        },
        "TimeSlot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "09:00"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["academic_year", "semester"],
            "properties": {
                "job_id": {"type": "string"},
                "academic_year": {"type": "string", "example": "2024/2025"},
                "semester": {"type": "integer", "example": 1},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/CourseSection"}},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/Room"}},
                "lecturers": {"type": "array", "items": {"$ref": "#/definitions/Lecturer"}},
                "constraints": {"type": "array", "items": {"type": "object"}},
                "time_slots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlot"}},
                "days": {"type": "array", "items": {"type": "string"}}
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
