package api

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/models"
)

// admitSchemas holds one JSON schema per service-path shape of §4.6.1,
// checked against the raw admit body before it reaches the dispatcher.
var admitSchemas = map[string]string{
	models.ServiceDocumentRequest: `{
		"type": "object",
		"required": ["office", "serviceName", "role", "name", "contact", "email", "requestItems"],
		"properties": {
			"requestItems": {"type": "array", "minItems": 1, "items": {"type": "string"}}
		}
	}`,
	models.ServiceDocumentClaim: `{
		"type": "object",
		"required": ["office", "serviceName", "role", "transactionNo"]
	}`,
	models.ServiceEnroll: `{
		"type": "object",
		"required": ["office", "serviceName", "role", "studentStatus"]
	}`,
}

const admitSchemaDefault = `{
	"type": "object",
	"required": ["office", "serviceName", "role", "name", "contact", "email"]
}`

// validateAdmitShape checks raw (the unparsed request body) against the
// schema selected by serviceName, returning a Validation error that
// lists every violated field.
func validateAdmitShape(raw []byte, serviceName string) error {
	schema, ok := admitSchemas[serviceName]
	if !ok {
		schema = admitSchemaDefault
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return apperr.NewValidation("malformed request body")
	}
	if result.Valid() {
		return nil
	}

	details := make([]apperr.FieldError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, apperr.FieldError{Field: e.Field(), Message: e.Description()})
	}
	return apperr.NewValidation("admit request does not match the required shape for this service", details...)
}
