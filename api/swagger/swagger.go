package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Hoken API",
        "description": "School health-room administration backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Student roster and search"},
        {"name": "HealthRecords", "description": "Annual health-check records"},
        {"name": "Attendance", "description": "Daily attendance"},
        {"name": "Nursing", "description": "Nursing-room visits and daily log"},
        {"name": "Statistics", "description": "Aggregate measurement statistics"},
        {"name": "Classes", "description": "Class reference data"},
        {"name": "Exports", "description": "CSV and PDF exports"}
    ],
    "paths": {
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "Search students",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Validation failed"}}
            }
        },
        "/students/suggestions": {
            "get": {
                "tags": ["Students"],
                "summary": "Autocomplete student names and ids",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update a student",
                "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failed"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete a student and their records",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/health-records": {
            "get": {
                "tags": ["HealthRecords"],
                "summary": "List health records",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["HealthRecords"],
                "summary": "Record a health check",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate record"}, "422": {"description": "Validation failed"}}
            }
        },
        "/health-records/bulk": {
            "post": {
                "tags": ["HealthRecords"],
                "summary": "Record health checks for many students at once",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Validation failed"}}
            }
        },
        "/health-records/{id}": {
            "get": {
                "tags": ["HealthRecords"],
                "summary": "Get one health record",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["HealthRecords"],
                "summary": "Update a health record",
                "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failed"}}
            },
            "delete": {
                "tags": ["HealthRecords"],
                "summary": "Delete a health record",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Record attendance for one student and date",
                "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failed"}}
            }
        },
        "/attendance/bulk": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record attendance for a whole class",
                "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failed"}}
            }
        },
        "/nursing/visits": {
            "get": {
                "tags": ["Nursing"],
                "summary": "List nursing-room visits",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Nursing"],
                "summary": "Record a nursing-room visit",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Validation failed"}}
            }
        },
        "/nursing/logs/{date}": {
            "get": {
                "tags": ["Nursing"],
                "summary": "Get the daily health-room log",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/statistics": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Compute the health-check statistics report",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/statistics/trend": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Year-over-year measurement trend",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/students": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export students as CSV",
                "produces": ["text/csv"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/statistics": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the statistics report as PDF",
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/FieldError"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "last_page": {"type": "integer"}
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
