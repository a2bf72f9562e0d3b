package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"
)

// JSON Schemas for rule payloads, compiled once at package init. A rule's
// conditions are a flat object; each value is "any", an exact scalar, or a
// {min,max} numeric range. Actions are a list of typed action objects.

const conditionsSchemaJSON = `{
	"type": "object",
	"additionalProperties": {
		"oneOf": [
			{"type": "string"},
			{"type": "number"},
			{"type": "boolean"},
			{
				"type": "object",
				"properties": {
					"min": {"type": "number"},
					"max": {"type": "number"}
				},
				"additionalProperties": false
			}
		]
	}
}`

const actionsSchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["type"],
		"properties": {
			"type": {"enum": ["auto-approve", "require-approval", "send-reminder", "notify", "update-compliance"]},
			"target": {"type": "string"},
			"message": {"type": "string"},
			"escalate_after_hours": {"type": "number", "minimum": 0}
		},
		"additionalProperties": false
	}
}`

var (
	conditionsSchema = mustCompile(conditionsSchemaJSON)
	actionsSchema    = mustCompile(actionsSchemaJSON)
)

func mustCompile(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic(fmt.Sprintf("compile workflow schema: %v", err))
	}
	return rs
}

// ValidateRule checks a rule's conditions and actions documents against the
// compiled schemas and returns the first violation.
func ValidateRule(ctx context.Context, conditions, actions json.RawMessage) error {
	if len(conditions) == 0 {
		conditions = json.RawMessage(`{}`)
	}
	keyErrs, err := conditionsSchema.ValidateBytes(ctx, conditions)
	if err != nil {
		return fmt.Errorf("conditions: %w", err)
	}
	if len(keyErrs) > 0 {
		return fmt.Errorf("conditions: %s", keyErrs[0].Error())
	}

	keyErrs, err = actionsSchema.ValidateBytes(ctx, actions)
	if err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	if len(keyErrs) > 0 {
		return fmt.Errorf("actions: %s", keyErrs[0].Error())
	}

	return nil
}
