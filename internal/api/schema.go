package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const createItemSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"description": {"type": "string", "minLength": 1},
		"dueDatetime": {"type": "string", "format": "date-time"}
	},
	"required": ["description", "dueDatetime"],
	"additionalProperties": false
}`

const updateDescriptionSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"description": {"type": "string", "minLength": 1}
	},
	"required": ["description"],
	"additionalProperties": false
}`

var (
	createItemValidator        = mustCompile("https://todolist.local/schemas/create-item.json", createItemSchema)
	updateDescriptionValidator = mustCompile("https://todolist.local/schemas/update-description.json", updateDescriptionSchema)
)

// validator is satisfied by *jsonschema.Schema.
type validator interface {
	Validate(v interface{}) error
}

// RequestError is a request body that failed decoding or schema validation.
type RequestError struct {
	Path    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func mustCompile(url, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", url, err))
	}
	return compiler.MustCompile(url)
}

// decodeValidated checks body against schema, then decodes it into dst.
func decodeValidated(body []byte, schema validator, dst interface{}) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &RequestError{Message: fmt.Sprintf("invalid request payload: %v", err)}
	}
	if dec.More() {
		return &RequestError{Message: "request body must only contain a single JSON object"}
	}

	if err := schema.Validate(doc); err != nil {
		return schemaError(err)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &RequestError{Message: fmt.Sprintf("invalid request payload: %v", err)}
	}
	return nil
}

// schemaError reports the first leaf cause of a validation failure.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &RequestError{Message: err.Error()}
	}
	var result error
	collectSchemaValidationErrors(ve, &result)
	if result != nil {
		return result
	}
	return &RequestError{Message: ve.Message}
}

func collectSchemaValidationErrors(err *jsonschema.ValidationError, result *error) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		*result = &RequestError{
			Path:    jsonPointerToPath(err.InstanceLocation),
			Message: err.Message,
		}
		return
	}

	for _, cause := range err.Causes {
		if *result == nil {
			collectSchemaValidationErrors(cause, result)
		}
	}
}

// jsonPointerToPath turns "/description" into "description".
func jsonPointerToPath(pointer string) string {
	path := strings.TrimPrefix(pointer, "/")
	path = strings.ReplaceAll(path, "/", ".")
	path = strings.ReplaceAll(path, "~1", "/")
	return strings.ReplaceAll(path, "~0", "~")
}
