package docs

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/health": {"get": {"tags": ["Health"], "summary": "Health check", "security": [], "responses": {"200": {"description": "OK"}}}},
        "/session": {"get": {"tags": ["Session"], "summary": "Session snapshot", "responses": {"200": {"description": "OK"}}}},
        "/session/online": {"post": {"tags": ["Session"], "summary": "Go online", "responses": {"200": {"description": "OK"}, "403": {"description": "balance below debt ceiling"}, "424": {"description": "location unavailable"}}}},
        "/session/offline": {"post": {"tags": ["Session"], "summary": "Go offline", "responses": {"200": {"description": "OK"}}}},
        "/session/reconcile": {"post": {"tags": ["Session"], "summary": "Reconcile availability", "responses": {"200": {"description": "OK"}}}},
        "/session/balance/refresh": {"post": {"tags": ["Session"], "summary": "Refresh balance", "responses": {"200": {"description": "OK"}}}},
        "/session/sign-out": {"post": {"tags": ["Session"], "summary": "Sign out", "responses": {"200": {"description": "OK"}, "409": {"description": "driver already has an active ride"}}}},
        "/offer/accept": {"post": {"tags": ["Offer"], "summary": "Accept the incoming offer", "responses": {"200": {"description": "OK"}, "409": {"description": "ride no longer available or driver offline"}}}},
        "/offer/decline": {"post": {"tags": ["Offer"], "summary": "Decline the incoming offer", "responses": {"200": {"description": "OK"}}}},
        "/ride/arrive": {"post": {"tags": ["Ride"], "summary": "Mark arrival at pickup", "responses": {"200": {"description": "OK"}, "502": {"description": "status update failed"}}}},
        "/ride/start": {"post": {"tags": ["Ride"], "summary": "Start the trip", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"code": {"type": "string"}}}}], "responses": {"200": {"description": "OK"}, "422": {"description": "wrong start code"}}}},
        "/ride/complete": {"post": {"tags": ["Ride"], "summary": "Complete the trip", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"collected": {"type": "number"}}}}], "responses": {"200": {"description": "OK"}}}},
        "/ride/cancel": {"post": {"tags": ["Ride"], "summary": "Cancel the active ride", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"reason": {"type": "string", "enum": ["TRAFFIC", "CAR_ISSUE", "TOO_FAR", "PERSONAL"]}}}}], "responses": {"200": {"description": "OK"}}}},
        "/ride/no-show": {"post": {"tags": ["Ride"], "summary": "Cancel for passenger no-show", "responses": {"200": {"description": "OK"}, "409": {"description": "no-show is not available yet"}}}},
        "/location/samples": {"post": {"tags": ["Location"], "summary": "Push device location fixes", "responses": {"202": {"description": "Accepted"}, "424": {"description": "location services disabled"}}}},
        "/location/services": {"put": {"tags": ["Location"], "summary": "Report the device location switch", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3010",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Driver Session API",
	Description:      "Control API of one driver's session: availability, incoming offers, the active ride and device location.",
	InfoInstanceName: "driver",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
