package services

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const requestSchema = `{
	"type": "object",
	"required": ["title", "description", "region", "categories"],
	"properties": {
		"title":       {"type": "string", "minLength": 1, "maxLength": 120},
		"description": {"type": "string", "minLength": 1, "maxLength": 4000},
		"region":      {"type": "string", "minLength": 1, "maxLength": 120},
		"categories": {
			"type": "array",
			"minItems": 1,
			"maxItems": 10,
			"items": {"type": "string", "minLength": 1, "maxLength": 60}
		},
		"budget": {"type": "integer", "minimum": 0},
		"photo_refs": {
			"type": "array",
			"maxItems": 20,
			"items": {"type": "string", "minLength": 1, "maxLength": 500}
		}
	},
	"additionalProperties": false
}`

const proposalSchema = `{
	"type": "object",
	"required": ["price", "description"],
	"properties": {
		"price":          {"type": "integer", "minimum": 1},
		"description":    {"type": "string", "minLength": 1, "maxLength": 4000},
		"estimated_days": {"type": "integer", "minimum": 1}
	},
	"additionalProperties": false
}`

// Validator hard-rejects malformed request and proposal payloads before they
// reach the services.
type Validator struct {
	request  *jsonschema.Schema
	proposal *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	request, err := jsonschema.CompileString("https://oficio.app/schemas/service_request.input", requestSchema)
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	proposal, err := jsonschema.CompileString("https://oficio.app/schemas/proposal.input", proposalSchema)
	if err != nil {
		return nil, fmt.Errorf("compile proposal schema: %w", err)
	}
	return &Validator{request: request, proposal: proposal}, nil
}

// ValidateRequest checks a create/edit service request body against the
// request schema.
func (v *Validator) ValidateRequest(body json.RawMessage) error {
	return validate(v.request, body)
}

// ValidateProposal checks a proposal submission body against the proposal
// schema.
func (v *Validator) ValidateProposal(body json.RawMessage) error {
	return validate(v.proposal, body)
}

func validate(schema *jsonschema.Schema, body json.RawMessage) error {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
