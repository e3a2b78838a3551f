package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// conditionSchema is the structural contract for condition documents as
// they arrive over the wire: a tagged union of simple comparisons and
// recursive and/or compounds.
const conditionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"$ref": "#/definitions/condition",
	"definitions": {
		"condition": {
			"type": "object",
			"oneOf": [
				{
					"properties": {
						"type": {"const": "simple"},
						"field": {"type": "string", "minLength": 1},
						"operator": {
							"enum": [
								"eq", "neq", "contains", "startsWith",
								"gt", "gte", "lt", "lte",
								"in", "notIn", "isNull", "isNotNull"
							]
						},
						"value": {}
					},
					"required": ["type", "field", "operator"],
					"additionalProperties": false
				},
				{
					"properties": {
						"type": {"const": "compound"},
						"operator": {"enum": ["and", "or"]},
						"conditions": {
							"type": "array",
							"items": {"$ref": "#/definitions/condition"},
							"minItems": 1
						}
					},
					"required": ["type", "operator", "conditions"],
					"additionalProperties": false
				}
			]
		}
	}
}`

var conditionSchemaLoader = gojsonschema.NewStringLoader(conditionSchema)

// validateCondition checks a condition against the wire schema. A nil
// condition is valid and matches everything.
func validateCondition(condition *models.Condition) error {
	if condition == nil {
		return nil
	}

	payload, err := json.Marshal(condition)
	if err != nil {
		return fmt.Errorf("failed to marshal condition: %w", err)
	}

	result, err := gojsonschema.Validate(conditionSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("condition schema validation failed: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return NewValidationError(
			"validateCondition",
			"INVALID_CONDITION",
			strings.Join(details, "; "),
			ErrInvalidCondition,
		)
	}

	return nil
}
