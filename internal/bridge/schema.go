package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// compileSchema turns a tool's map schema into an openapi3 schema. A nil schema accepts any object.
func compileSchema(raw map[string]interface{}) (*openapi3.Schema, json.RawMessage, error) {
	if raw == nil {
		raw = NoArgs()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("encode schema: %w", err)
	}
	var schema openapi3.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, nil, fmt.Errorf("decode schema: %w", err)
	}
	return &schema, data, nil
}

// validateArgs normalises args to JSON types, fills declared defaults and checks the result
// against schema. It never mutates the caller's map.
func validateArgs(toolName string, schema *openapi3.Schema, args map[string]interface{}) (map[string]interface{}, error) {
	normalized := map[string]interface{}{}
	if len(args) > 0 {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, &InputValidationError{Tool: toolName, Reason: fmt.Sprintf("arguments are not JSON: %v", err)}
		}
		if err := json.Unmarshal(data, &normalized); err != nil {
			return nil, &InputValidationError{Tool: toolName, Reason: fmt.Sprintf("arguments are not an object: %v", err)}
		}
	}

	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil || ref.Value.Default == nil {
			continue
		}
		if _, present := normalized[name]; !present {
			normalized[name] = ref.Value.Default
		}
	}

	if err := schema.VisitJSON(normalized); err != nil {
		return nil, toValidationError(toolName, err)
	}
	return normalized, nil
}

func toValidationError(toolName string, err error) *InputValidationError {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return &InputValidationError{
			Tool:   toolName,
			Field:  fieldPath(schemaErr.JSONPointer()),
			Reason: schemaErr.Reason,
		}
	}
	var multi openapi3.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		return toValidationError(toolName, multi[0])
	}
	return &InputValidationError{Tool: toolName, Reason: err.Error()}
}
