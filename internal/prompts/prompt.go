// Package prompts owns the instructions sent to the language model: the
// default per-type guidance, the fixed output specifications, user prompt
// templating, and named instruction overrides stored in the database.
package prompts

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/casestudio/internal/schema"
)

// Prompt represents a named instruction override for a generation type.
type Prompt struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Type         schema.PromptType `json:"type"`
	Instructions string            `json:"instructions"`
	Description  *string           `json:"description"`
	Active       bool              `json:"active"`
}

// CreateCommand carries the data needed to create a new prompt override.
type CreateCommand struct {
	Name         string            `json:"name"`
	Type         schema.PromptType `json:"type"`
	Instructions string            `json:"instructions"`
	Description  *string           `json:"description"`
}

// UpdateCommand carries the data needed to update an existing prompt override.
type UpdateCommand struct {
	Name         string            `json:"name"`
	Type         schema.PromptType `json:"type"`
	Instructions string            `json:"instructions"`
	Description  *string           `json:"description"`
}

// TypeContent is the response type for type-scoped content endpoints.
type TypeContent struct {
	Type    schema.PromptType `json:"type"`
	Content string            `json:"content"`
}

// ParseType validates a path value as a generation type.
func ParseType(s string) (schema.PromptType, error) {
	t := schema.PromptType(s)
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}
