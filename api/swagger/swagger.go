package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable Engine",
        "description": "Timetable generation, analysis and export API",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Timetable generation and commit"},
        {"name": "Analytics", "description": "Timetable quality analysis and runtime metrics"},
        {"name": "Export", "description": "Timetable export"}
    ],
    "paths": {
        "/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate a timetable proposal for a term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Curriculum inconsistent", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many concurrent generations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/commit": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Commit a generated proposal as the active timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Proposal not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Proposal has hard conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/generations": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List generation runs of a term",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/analysis": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Analyze the active timetable of a term",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/timetable": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Get the active timetable of a term",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/timetable/export": {
            "get": {
                "tags": ["Export"],
                "summary": "Export the active timetable of a term",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File attachment"}
                }
            }
        },
        "/analytics/system": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Runtime metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "term_id": {"type": "string"},
                "algorithm": {"type": "string", "enum": ["greedy", "genetic"]},
                "seed": {"type": "integer"},
                "grade_ids": {"type": "array", "items": {"type": "integer"}},
                "async": {"type": "boolean"},
                "options": {"$ref": "#/definitions/SolverOptions"}
            },
            "required": ["term_id"]
        },
        "SolverOptions": {
            "type": "object",
            "properties": {
                "population_size": {"type": "integer"},
                "generations": {"type": "integer"},
                "mutation_rate": {"type": "number"},
                "crossover_rate": {"type": "number"},
                "max_execution_seconds": {"type": "integer"}
            }
        },
        "CommitTimetableRequest": {
            "type": "object",
            "properties": {
                "proposal_id": {"type": "string"},
                "require_feasible": {"type": "boolean"}
            },
            "required": ["proposal_id"]
        },
        "SchedulingResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "proposal_id": {"type": "string"},
                "generation_id": {"type": "string"},
                "term_id": {"type": "string"},
                "algorithm": {"type": "string"},
                "optimization_score": {"type": "number"},
                "assigned_slots": {"type": "integer"},
                "unassigned_slots": {"type": "integer"},
                "conflicts": {"type": "array", "items": {"$ref": "#/definitions/Violation"}},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/TimetableEntry"}},
                "expires_at": {"type": "string"}
            }
        },
        "Violation": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "class_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "room_id": {"type": "string"},
                "day": {"type": "integer"},
                "slot": {"type": "integer"}
            }
        },
        "TimetableEntry": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "room_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "slot_number": {"type": "integer"}
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
