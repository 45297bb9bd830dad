// Package validation validates Flow Store request payloads against
// JSON Schema Draft 2020-12 documents.
package validation

import (
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// agentSchemaJSON validates agent create/update payloads. The id is
// service-assigned and ignored when present; position and config are
// optional on create and default server-side.
const agentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowcanvas.dev/schemas/agent.json",
  "type": "object",
  "required": ["name", "type"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "type": {"type": "string", "minLength": 1},
    "position": {
      "type": "object",
      "required": ["x", "y"],
      "properties": {
        "x": {"type": "number", "minimum": 0},
        "y": {"type": "number", "minimum": 0}
      },
      "additionalProperties": false
    },
    "config": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  },
  "additionalProperties": false
}`

// connectionSchemaJSON validates connection create payloads.
const connectionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowcanvas.dev/schemas/connection.json",
  "type": "object",
  "required": ["source_agent_id", "target_agent_id", "source_port", "target_port"],
  "properties": {
    "id": {"type": "string"},
    "source_agent_id": {"type": "string", "minLength": 1},
    "target_agent_id": {"type": "string", "minLength": 1},
    "source_port": {"type": "string", "enum": ["output"]},
    "target_port": {"type": "string", "enum": ["input"]}
  },
  "additionalProperties": false
}`

// Validator validates agent and connection payloads with pre-compiled
// JSON Schemas. It is safe for concurrent use.
type Validator struct {
	agentSchema      *jsonschema.Schema
	connectionSchema *jsonschema.Schema
}

// NewValidator compiles the payload schemas.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	agentSchema, err := compileResource(c, "https://flowcanvas.dev/schemas/agent.json", agentSchemaJSON)
	if err != nil {
		return nil, err
	}
	connectionSchema, err := compileResource(c, "https://flowcanvas.dev/schemas/connection.json", connectionSchemaJSON)
	if err != nil {
		return nil, err
	}

	return &Validator{
		agentSchema:      agentSchema,
		connectionSchema: connectionSchema,
	}, nil
}

// ValidateAgent checks a raw agent payload.
func (v *Validator) ValidateAgent(payload []byte) error {
	return validateRaw(v.agentSchema, payload)
}

// ValidateConnection checks a raw connection payload.
func (v *Validator) ValidateConnection(payload []byte) error {
	return validateRaw(v.connectionSchema, payload)
}

func compileResource(c *jsonschema.Compiler, url, doc string) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
	}
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", url, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return compiled, nil
}

func validateRaw(compiled *jsonschema.Schema, payload []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(payload)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid JSON payload").WithCause(err)
	}
	if err := compiled.Validate(doc); err != nil {
		return toFlowError(err)
	}
	return nil
}

// toFlowError converts a jsonschema.ValidationError into a FlowError with
// the leaf violations collected for actionable messages.
func toFlowError(err error) *schema.FlowError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "validation failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
