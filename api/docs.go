// Package api contains the OpenAPI documentation served under /docs.
package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "description": "Entrypoint for the API, listing all endpoints",
                "tags": ["General"],
                "summary": "API root",
                "responses": {"200": {"description": "OK"}}
            },
            "options": {
                "description": "Returns an empty response with the HTTP Header \"allow\" set to the allowed HTTP verbs",
                "tags": ["General"],
                "summary": "Allowed HTTP verbs",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/healthz": {
            "get": {
                "description": "Returns the application health and, if not healthy, an error",
                "produces": ["application/json"],
                "tags": ["General"],
                "summary": "Get health",
                "responses": {
                    "204": {"description": "No Content"},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httputil.HTTPError"}}
                }
            }
        },
        "/version": {
            "get": {
                "description": "Returns the software version of the API",
                "tags": ["General"],
                "summary": "API version",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/auth/login": {
            "post": {
                "description": "Exchanges email and password for a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/v1/users": {
            "get": {
                "security": [{"Bearer": []}],
                "description": "Returns all users. Only available to admins.",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Get users",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            },
            "post": {
                "description": "Registers a new user. The uncategorized category is created with it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Register user",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/users/me": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Users"],
                "summary": "Get the authenticated user",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            },
            "patch": {
                "security": [{"Bearer": []}],
                "tags": ["Users"],
                "summary": "Update the authenticated user",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            },
            "delete": {
                "security": [{"Bearer": []}],
                "description": "Deletes the user with all categories, expenses and alerts",
                "tags": ["Users"],
                "summary": "Delete the authenticated user",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/v1/categories": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Categories"],
                "summary": "Get categories",
                "parameters": [
                    {"type": "integer", "description": "The offset of the first category returned. Defaults to 0.", "name": "offset", "in": "query"},
                    {"type": "integer", "description": "Maximum number of categories to return. Defaults to 50.", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["Categories"],
                "summary": "Create categories",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/categories/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Categories"],
                "summary": "Get category",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "patch": {
                "security": [{"Bearer": []}],
                "tags": ["Categories"],
                "summary": "Update category",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            },
            "delete": {
                "security": [{"Bearer": []}],
                "description": "Deletes a category. Its expenses and alerts are moved to the uncategorized category.",
                "tags": ["Categories"],
                "summary": "Delete category",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/categories/{id}/expenses": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Categories"],
                "summary": "Get the expenses of a category",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/expenses": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Expenses"],
                "summary": "Get expenses",
                "parameters": [
                    {"type": "string", "description": "Filter by category ID", "name": "category", "in": "query"},
                    {"type": "string", "description": "Filter by concept, supports * wildcards", "name": "concept", "in": "query"},
                    {"type": "string", "description": "Expenses on or after this date", "name": "fromDate", "in": "query"},
                    {"type": "string", "description": "Expenses before this date", "name": "untilDate", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            },
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["Expenses"],
                "summary": "Create expenses",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/v1/expenses/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Expenses"],
                "summary": "Get expense",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "patch": {
                "security": [{"Bearer": []}],
                "tags": ["Expenses"],
                "summary": "Update expense",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"Bearer": []}],
                "tags": ["Expenses"],
                "summary": "Delete expense",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/expenses/{id}/attachment": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Expenses"],
                "summary": "Download attachment",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["multipart/form-data"],
                "tags": ["Expenses"],
                "summary": "Upload attachment",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"Bearer": []}],
                "tags": ["Expenses"],
                "summary": "Delete attachment",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/alerts": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Alerts"],
                "summary": "Get alerts",
                "parameters": [
                    {"type": "string", "description": "Filter by category ID", "name": "category", "in": "query"},
                    {"enum": ["Active", "Triggered"], "type": "string", "description": "Filter by status", "name": "status", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            },
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["Alerts"],
                "summary": "Create alerts",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/v1/alerts/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Alerts"],
                "summary": "Get alert",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "patch": {
                "security": [{"Bearer": []}],
                "tags": ["Alerts"],
                "summary": "Update alert",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"Bearer": []}],
                "tags": ["Alerts"],
                "summary": "Delete alert",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        }
    },
    "definitions": {
        "httputil.HTTPError": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "An ID specified in the query string was not a valid UUID"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and the token returned by /v1/auth/login.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "",
	Description:      "",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
