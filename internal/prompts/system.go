package prompts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/pagination"
)

// System defines the public contract for prompt domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Prompt], error)

	Find(ctx context.Context, id uuid.UUID) (*Prompt, error)
	Create(ctx context.Context, cmd CreateCommand) (*Prompt, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Prompt, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*Prompt, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Prompt, error)

	// Instructions returns the active override for t, or the default
	// instructions when no override is active.
	Instructions(ctx context.Context, t schema.PromptType) (string, error)
	// Spec returns the fixed output specification for t.
	Spec(ctx context.Context, t schema.PromptType) (string, error)
	// SystemPrompt composes the effective instructions for t with its
	// output specification.
	SystemPrompt(ctx context.Context, t schema.PromptType) (string, error)
}
