package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// input is the compiled request schema of one prompt type. Each field also
// carries its own validator so a failing document can be traced to the first
// violated field in declaration order.
type input struct {
	schema *jsonschema.Schema
	fields []inputField
}

type inputField struct {
	name     string
	required bool
	message  string
	schema   *jsonschema.Schema
}

type fieldRule struct {
	name     string
	required bool
	schema   map[string]any
	message  string
}

var inputs = map[PromptType]input{
	TypeOutline: compileInput(TypeOutline,
		fieldRule{"topic", true, stringSchema(MinTopicLength), minLengthMessage(MinTopicLength)},
		fieldRule{"context", false, stringSchema(0), "must be a string"},
		fieldRule{"audience", false, stringSchema(0), "must be a string"},
		fieldRule{
			"keyPoints", false,
			map[string]any{"type": "array", "maxItems": MaxKeyPoints, "items": stringSchema(0)},
			fmt.Sprintf("must be a list of at most %d strings", MaxKeyPoints),
		},
		enumRule("tone", tones),
	),
	TypeSummary: compileInput(TypeSummary,
		fieldRule{"source", true, stringSchema(MinSourceLength), minLengthMessage(MinSourceLength)},
		enumRule("length", lengths),
		enumRule("tone", tones),
	),
	TypeHeadline: compileInput(TypeHeadline,
		fieldRule{"topic", true, stringSchema(MinTopicLength), minLengthMessage(MinTopicLength)},
		fieldRule{"audience", false, stringSchema(0), "must be a string"},
		enumRule("style", styles),
		fieldRule{
			"variantCount", false,
			map[string]any{"type": "integer", "minimum": MinVariantCount, "maximum": MaxVariantCount},
			fmt.Sprintf("must be an integer between %d and %d", MinVariantCount, MaxVariantCount),
		},
	),
}

// violation reports the first field of doc that fails its rule.
func (in input) violation(doc map[string]any) *ValidationError {
	for _, f := range in.fields {
		if _, ok := doc[f.name]; !ok {
			if f.required {
				return invalid(f.name, "is required")
			}
			continue
		}
		if !f.schema.Validate(doc).IsValid() {
			return invalid(f.name, "%s", f.message)
		}
	}
	return invalid("", "prompt does not match the %s schema", doc["type"])
}

func compileInput(t PromptType, rules ...fieldRule) input {
	in := input{schema: compile(t, inputObject(t, rules...))}
	for _, r := range rules {
		single := map[string]any{
			"type":       "object",
			"properties": map[string]any{r.name: r.schema},
		}
		if r.required {
			single["required"] = []string{r.name}
		}
		in.fields = append(in.fields, inputField{
			name:     r.name,
			required: r.required,
			message:  r.message,
			schema:   compile(t, single),
		})
	}
	return in
}

func inputObject(t PromptType, rules ...fieldRule) map[string]any {
	props := map[string]any{"type": tagSchema(t)}
	required := []string{"type"}
	for _, r := range rules {
		props[r.name] = r.schema
		if r.required {
			required = append(required, r.name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func enumRule[T ~string](name string, allowed []T) fieldRule {
	names := make([]string, len(allowed))
	enum := make([]any, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
		enum[i] = string(a)
	}
	return fieldRule{
		name:    name,
		schema:  map[string]any{"type": "string", "enum": enum},
		message: "must be one of " + strings.Join(names, ", "),
	}
}

func minLengthMessage(n int) string {
	return fmt.Sprintf("must be a string of at least %d characters", n)
}

func compile(t PromptType, s map[string]any) *jsonschema.Schema {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("encode %s schema: %v", t, err))
	}
	compiled, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", t, err))
	}
	return compiled
}
