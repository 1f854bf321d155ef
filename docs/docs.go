// Package docs contiene la especificación OpenAPI de la API (formato swag).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "Envío de comprobantes electrónicos a SUNAT: factura, boleta, nota de crédito y guía de remisión.",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/sunat/documents": {
            "post": {
                "security": [{"Bearer": []}],
                "description": "Normaliza, firma, empaqueta y transmite una factura, boleta, nota de crédito o guía de remisión.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sunat"],
                "summary": "Enviar comprobante a SUNAT",
                "parameters": [
                    {"description": "documento y ambiente opcional", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SendDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/billing.SendResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/sunat/documents/batch": {
            "post": {
                "security": [{"Bearer": []}],
                "description": "Cada documento sigue su propio pipeline; los resultados conservan el orden de entrada.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sunat"],
                "summary": "Enviar lote de comprobantes",
                "parameters": [
                    {"description": "documentos", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.BatchSendRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.BatchItemResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/sunat/transmissions/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["sunat"],
                "summary": "Consultar transmisión",
                "parameters": [
                    {"type": "string", "description": "ID de la transmisión", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TransmissionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/sunat/transmissions/{id}/retry": {
            "post": {
                "security": [{"Bearer": []}],
                "description": "Solo org_admin o super_admin. Reenvía el payload almacenado.",
                "produces": ["application/json"],
                "tags": ["sunat"],
                "summary": "Reintentar transmisión fallida",
                "parameters": [
                    {"type": "string", "description": "ID de la transmisión", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/billing.SendResult"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/sunat/correlatives/next": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["sunat"],
                "summary": "Siguiente correlativo",
                "parameters": [
                    {"type": "string", "description": "01, 03, 07, 09 o INVOICE, SIMPLIFIED_RECEIPT, CREDIT_NOTE, DISPATCH_ADVICE", "name": "documentType", "in": "query", "required": true},
                    {"type": "string", "description": "serie; vacío usa la última emitida", "name": "series", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/billing.CorrelativeResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "billing.CorrelativeResult": {
            "type": "object",
            "properties": {"series": {"type": "string"}, "correlative": {"type": "string"}}
        },
        "billing.SendResult": {
            "type": "object",
            "properties": {
                "transmissionRecordId": {"type": "string"},
                "status": {"type": "string"},
                "environment": {"type": "string"},
                "documentType": {"type": "string"},
                "series": {"type": "string"},
                "correlative": {"type": "string"},
                "fileName": {"type": "string"},
                "receipt": {"$ref": "#/definitions/entity.Receipt"}
            }
        },
        "entity.Receipt": {
            "type": "object",
            "properties": {
                "accepted": {"type": "boolean"},
                "code": {"type": "string"},
                "description": {"type": "string"},
                "referenceId": {"type": "string"},
                "notes": {"type": "array", "items": {"type": "string"}},
                "raw": {"type": "string"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "transmissionRecordId": {"type": "string"}
            }
        },
        "dto.SendDocumentRequest": {
            "type": "object",
            "properties": {"environment": {"type": "string"}, "document": {"type": "object"}}
        },
        "dto.BatchSendRequest": {
            "type": "object",
            "properties": {"environment": {"type": "string"}, "documents": {"type": "array", "items": {"type": "object"}}}
        },
        "dto.TransmissionResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "companyId": {"type": "string"},
                "organizationId": {"type": "string"},
                "environment": {"type": "string"},
                "documentType": {"type": "string"},
                "series": {"type": "string"},
                "correlative": {"type": "string"},
                "status": {"type": "string"},
                "zipFilePath": {"type": "string"},
                "receipt": {"$ref": "#/definitions/entity.Receipt"},
                "errorMessage": {"type": "string"},
                "attempts": {"type": "integer"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "http.BatchItemResponse": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "result": {"$ref": "#/definitions/billing.SendResult"},
                "error": {"$ref": "#/definitions/dto.ErrorResponse"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo metadatos exportados de la especificación.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Facturador SUNAT API",
	Description:      "Envío de comprobantes electrónicos a SUNAT: factura, boleta, nota de crédito y guía de remisión.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
