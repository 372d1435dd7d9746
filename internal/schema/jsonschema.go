package schema

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kaptinlin/jsonschema"
)

// ModelSchema returns the strict JSON schema sent to the language model as
// the structured output constraint for t. Every object forbids additional
// properties and lists all of its fields as required. Outlines are held to
// a stricter section count than the schema clients validate against.
func ModelSchema(t PromptType) (map[string]any, error) {
	switch t {
	case TypeOutline:
		return object(
			tagSchema(TypeOutline),
			"sections", map[string]any{
				"type":     "array",
				"minItems": MinOutlineSection,
				"maxItems": MaxOutlineSection,
				"items": object(nil,
					"title", stringSchema(0),
					"description", stringSchema(0),
				),
			},
		), nil
	case TypeSummary:
		return object(
			tagSchema(TypeSummary),
			"summary", stringSchema(0),
		), nil
	case TypeHeadline:
		return object(
			tagSchema(TypeHeadline),
			"headline", stringSchema(0),
			"variations", map[string]any{
				"type":  "array",
				"items": stringSchema(0),
			},
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
}

// SchemaName returns the structured output schema name for t.
func SchemaName(t PromptType) string {
	return "casestudio_" + string(t)
}

func tagSchema(t PromptType) map[string]any {
	return map[string]any{
		"type": "string",
		"enum": []any{string(t)},
	}
}

func stringSchema(minLength int) map[string]any {
	s := map[string]any{"type": "string"}
	if minLength > 0 {
		s["minLength"] = minLength
	}
	return s
}

// object builds a strict object schema from alternating name/schema pairs.
// A non-nil tag is placed first as the "type" property.
func object(tag map[string]any, pairs ...any) map[string]any {
	props := map[string]any{}
	required := []string{}
	if tag != nil {
		props["type"] = tag
		required = append(required, "type")
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		props[name] = pairs[i+1]
		required = append(required, name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// Client-side shapes. Full responses require every field with non-empty
// strings; partial snapshots only constrain the types of present fields.
var (
	fullSchemas = map[PromptType]map[string]any{
		TypeOutline: {
			"type":     "object",
			"required": []string{"type", "sections"},
			"properties": map[string]any{
				"type": tagSchema(TypeOutline),
				"sections": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type":     "object",
						"required": []string{"title", "description"},
						"properties": map[string]any{
							"title":       stringSchema(1),
							"description": stringSchema(1),
						},
					},
				},
			},
		},
		TypeSummary: {
			"type":     "object",
			"required": []string{"type", "summary"},
			"properties": map[string]any{
				"type":    tagSchema(TypeSummary),
				"summary": stringSchema(1),
			},
		},
		TypeHeadline: {
			"type":     "object",
			"required": []string{"type", "headline", "variations"},
			"properties": map[string]any{
				"type":     tagSchema(TypeHeadline),
				"headline": stringSchema(1),
				"variations": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items":    stringSchema(1),
				},
			},
		},
	}

	partialSchemas = map[PromptType]map[string]any{
		TypeOutline: {
			"type": "object",
			"properties": map[string]any{
				"type": tagSchema(TypeOutline),
				"sections": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":       stringSchema(0),
							"description": stringSchema(0),
						},
					},
				},
			},
		},
		TypeSummary: {
			"type": "object",
			"properties": map[string]any{
				"type":    tagSchema(TypeSummary),
				"summary": stringSchema(0),
			},
		},
		TypeHeadline: {
			"type": "object",
			"properties": map[string]any{
				"type":     tagSchema(TypeHeadline),
				"headline": stringSchema(0),
				"variations": map[string]any{
					"type":  "array",
					"items": stringSchema(0),
				},
			},
		},
	}

	fullValidators    = compileAll(fullSchemas)
	partialValidators = compileAll(partialSchemas)
)

func compileAll(schemas map[PromptType]map[string]any) map[PromptType]*jsonschema.Schema {
	out := make(map[PromptType]*jsonschema.Schema, len(schemas))
	for t, s := range schemas {
		out[t] = compile(t, s)
	}
	return out
}

// check validates doc and reports the first failing location, ordered by
// path so the message is stable.
func check(s *jsonschema.Schema, doc any) error {
	result := s.Validate(doc)
	if result.IsValid() {
		return nil
	}
	keys := slices.Sorted(maps.Keys(result.Errors))
	if len(keys) == 0 {
		return ErrSchemaViolation
	}
	return fmt.Errorf("%w: %s: %s", ErrSchemaViolation, keys[0], result.Errors[keys[0]].Message)
}
