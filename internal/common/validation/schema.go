// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"prmcms-workers/pkg/registry"
)

// SchemaValidator validates worker inputs against the JSON schemas
// declared in the activity registry.
type SchemaValidator struct {
	registry *registry.ActivityRegistry
}

func NewSchemaValidator(reg *registry.ActivityRegistry) *SchemaValidator {
	return &SchemaValidator{registry: reg}
}

// ValidateInput checks the job variables of a task against the
// registered input schema. A task type without a registry entry is an
// error; a registered task with no schema passes.
func (v *SchemaValidator) ValidateInput(taskType string, input map[string]interface{}) error {
	activity, err := v.registry.FindByTaskType(taskType)
	if err != nil {
		return err
	}
	if len(activity.InputSchema) == 0 {
		return nil
	}
	return ValidateAgainstSchema(activity.InputSchema, input)
}

// CheckRegistered reports whether a task type has a registry entry.
func (v *SchemaValidator) CheckRegistered(taskType string) error {
	_, err := v.registry.FindByTaskType(taskType)
	return err
}

// ValidateAgainstSchema runs a single JSON-schema validation.
func ValidateAgainstSchema(schema map[string]interface{}, document interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("input validation failed: %s", strings.Join(msgs, "; "))
}
