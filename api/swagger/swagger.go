package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CampusFlow UMS API",
        "description": "University scheduling and enrollment service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Departments", "description": "Academic department management"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Lecturers", "description": "Lecturer roster and course assignments"},
        {"name": "Students", "description": "Student records and schedules"},
        {"name": "ClassSessions", "description": "Weekly class session scheduling"},
        {"name": "Enrollments", "description": "Roster membership"},
        {"name": "Reports", "description": "Student schedule reports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/departments": {
            "get": {
                "tags": ["Departments"],
                "summary": "List departments",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Departments"],
                "summary": "Create department",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDepartmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/departments/{id}": {
            "get": {
                "tags": ["Departments"],
                "summary": "Get department",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Departments"],
                "summary": "Update department",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Departments"],
                "summary": "Delete department",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "409": {"description": "Department still referenced"}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "parameters": [
                    {"name": "departmentId", "in": "query", "type": "string"},
                    {"name": "lecturerId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Update course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "409": {"description": "Course has scheduled sessions"}}
            }
        },
        "/lecturers": {
            "get": {
                "tags": ["Lecturers"],
                "summary": "List lecturers",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Lecturers"],
                "summary": "Create lecturer",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/lecturers/{id}/courses/{courseId}": {
            "post": {
                "tags": ["Lecturers"],
                "summary": "Assign course to lecturer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"201": {"description": "Assigned"}, "409": {"description": "Already assigned"}}
            },
            "delete": {
                "tags": ["Lecturers"],
                "summary": "Unassign course from lecturer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Unassigned"}, "409": {"description": "Sessions still scheduled"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/students/{id}/schedule": {
            "get": {
                "tags": ["Students"],
                "summary": "List a student's enrolled sessions",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/sessions": {
            "get": {
                "tags": ["ClassSessions"],
                "summary": "List class sessions",
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "lecturerId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "day", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["ClassSessions"],
                "summary": "Schedule class session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Assignment or schedule conflict"}
                }
            }
        },
        "/sessions/{id}/seats": {
            "get": {
                "tags": ["ClassSessions"],
                "summary": "Remaining session capacity",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll student into session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Enrolled"},
                    "409": {"description": "Capacity, duplicate, or overlap conflict"}
                }
            }
        },
        "/enrollments/{studentId}/{sessionId}": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Withdraw student from session",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Withdrawn"}, "404": {"description": "Not enrolled"}}
            }
        },
        "/reports/students/{id}": {
            "post": {
                "tags": ["Reports"],
                "summary": "Generate schedule report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["txt", "csv", "pdf"]}
                ],
                "responses": {"201": {"description": "Generated"}}
            }
        },
        "/reports/students/{id}/async": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue schedule report generation",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"202": {"description": "Queued"}}
            }
        },
        "/reports/jobs/{jobId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [{"name": "jobId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown job"}}
            }
        },
        "/reports/bulk": {
            "post": {
                "tags": ["Reports"],
                "summary": "Generate reports for several students",
                "responses": {"200": {"description": "Summary"}}
            }
        },
        "/reports/files/{name}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download generated report",
                "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}],
                "produces": ["application/octet-stream"],
                "responses": {"200": {"description": "File"}, "404": {"description": "Not found"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateDepartmentRequest": {
            "type": "object",
            "required": ["name", "code"],
            "properties": {
                "name": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "CreateClassSessionRequest": {
            "type": "object",
            "required": ["course_id", "lecturer_id", "day", "start_time", "end_time", "location", "max_capacity"],
            "properties": {
                "course_id": {"type": "string"},
                "lecturer_id": {"type": "string"},
                "day": {"type": "string"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:30"},
                "location": {"type": "string"},
                "max_capacity": {"type": "integer"}
            }
        },
        "EnrollRequest": {
            "type": "object",
            "required": ["student_id", "class_session_id"],
            "properties": {
                "student_id": {"type": "string"},
                "class_session_id": {"type": "string"}
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
                "pagination": {"$ref": "#/definitions/Pagination"}
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
