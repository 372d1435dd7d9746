package prompts

import (
	"context"

	"github.com/JaimeStill/casestudio/internal/schema"
)

const outlineSpec = `Respond with a JSON object matching this exact structure:

{
  "type": "outline",
  "sections": [
    { "title": "<heading>", "description": "<what the section covers>" }
  ]
}

Field constraints:
- type: Always the literal string "outline".
- sections: Between 3 and 8 entries, in the order they should appear.
- title: A short, non-empty section heading.
- description: A non-empty description of the section's content.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Emit "type" before any other field`

const summarySpec = `Respond with a JSON object matching this exact structure:

{
  "type": "summary",
  "summary": "<summary text>"
}

Field constraints:
- type: Always the literal string "summary".
- summary: The non-empty summary text at the requested length.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Emit "type" before any other field`

const headlineSpec = `Respond with a JSON object matching this exact structure:

{
  "type": "headline",
  "headline": "<primary headline>",
  "variations": ["<variation>", "<variation>"]
}

Field constraints:
- type: Always the literal string "headline".
- headline: The non-empty primary headline.
- variations: The requested number of non-empty alternative headlines,
  none of which repeats the primary headline.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Emit "type" before any other field`

var specs = map[schema.PromptType]string{
	schema.TypeOutline:  outlineSpec,
	schema.TypeSummary:  summarySpec,
	schema.TypeHeadline: headlineSpec,
}

// Spec returns the hardcoded output specification for a prompt type.
// Specifications define the expected output format and cannot be overridden.
// Returns ErrInvalidType if the type is not recognized.
func Spec(t schema.PromptType) (string, error) {
	text, ok := specs[t]
	if !ok {
		return "", ErrInvalidType
	}
	return text, nil
}

// Compose joins instructions with the output specification for t into the
// system instruction sent to the model.
func Compose(instructions string, t schema.PromptType) (string, error) {
	spec, err := Spec(t)
	if err != nil {
		return "", err
	}
	return instructions + "\n\n" + spec, nil
}

// Defaults composes system instructions from the hardcoded defaults only.
type Defaults struct{}

// SystemPrompt returns the default instructions composed with the
// specification for t.
func (Defaults) SystemPrompt(_ context.Context, t schema.PromptType) (string, error) {
	text, err := Instructions(t)
	if err != nil {
		return "", err
	}
	return Compose(text, t)
}
