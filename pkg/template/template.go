// Package template parses and validates plan template documents. Templates
// are authored outside the engine; the engine only checks shape and
// referential consistency before generating a plan from one.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/probata/caseflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrInvalidTemplate indicates the document failed schema validation.
	ErrInvalidTemplate = errors.New("invalid plan template")

	// ErrUnknownDependencyKey indicates a depends_on entry references a step
	// key that does not exist in the template.
	ErrUnknownDependencyKey = errors.New("template dependency references unknown step key")

	// ErrDuplicateStepKey indicates two template steps share a key.
	ErrDuplicateStepKey = errors.New("duplicate step key in template")
)

const schemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "steps"],
	"properties": {
		"name": {"type": "string", "minLength": 3},
		"steps": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["key", "title", "sequence"],
				"properties": {
					"key": {"type": "string", "pattern": "^[a-z][a-z0-9_-]*$"},
					"title": {"type": "string", "minLength": 1},
					"sequence": {"type": "integer", "minimum": 0},
					"depends_on": {"type": "array", "items": {"type": "string"}},
					"due_in_days": {"type": "integer", "minimum": 0},
					"deadline_source": {"type": "string"},
					"assigned_actor_id": {"type": "string"}
				}
			}
		}
	}
}`

var schema = gojsonschema.NewStringLoader(schemaJSON)

// Parse validates a raw template document against the schema and decodes it.
// Dependency keys are checked for referential consistency; cycle detection is
// left to the graph builder, which sees the generated edges.
func Parse(document []byte) (*models.PlanTemplate, error) {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to validate template document: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(details, "; "))
	}

	var tmpl models.PlanTemplate

	err = json.Unmarshal(document, &tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template document: %w", err)
	}

	err = Check(&tmpl)
	if err != nil {
		return nil, err
	}

	return &tmpl, nil
}

// Check validates an already-decoded template for key uniqueness and
// dependency consistency.
func Check(tmpl *models.PlanTemplate) error {
	keys := make(map[string]bool, len(tmpl.Steps))

	for _, step := range tmpl.Steps {
		if keys[step.Key] {
			return fmt.Errorf("%w: %s", ErrDuplicateStepKey, step.Key)
		}

		keys[step.Key] = true
	}

	for _, step := range tmpl.Steps {
		for _, dep := range step.DependsOn {
			if !keys[dep] {
				return fmt.Errorf("%w: %s depends on %s", ErrUnknownDependencyKey, step.Key, dep)
			}
		}
	}

	return nil
}
