// Package docs holds the swagger registration for the API. Regenerate with swag init -g server/main.go.
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
        "/bookings/{id}/pricing": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reconcile"],
                "summary": "Price the stored booking against collected invoices",
                "parameters": [
                    {"type": "integer", "description": "Booking ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/bookings/{id}/edit/preview": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reconcile"],
                "summary": "Dry-run a booking edit and return the new balance",
                "parameters": [
                    {"type": "integer", "description": "Booking ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/bookings/{id}/edit": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reconcile"],
                "summary": "Save a booking edit",
                "parameters": [
                    {"type": "integer", "description": "Booking ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/bookings/{id}/deposit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reconcile"],
                "summary": "Decide whether a deposit is due now",
                "parameters": [
                    {"type": "integer", "description": "Booking ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "counter, online or bank_transfer", "name": "payment_method", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Courtly API",
	Description:      "Court booking pricing, invoice ledger and edit reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
