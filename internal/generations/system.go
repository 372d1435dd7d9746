package generations

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/internal/stream"
	"github.com/JaimeStill/casestudio/pkg/pagination"
)

// Generator is the structured generation client the system drives.
// *generator.Client satisfies it.
type Generator interface {
	GenerateOnce(ctx context.Context, p schema.Prompt) (schema.Response, error)
	stream.Opener
}

// System defines the public contract for generation domain operations.
type System interface {
	Handler() *Handler

	// Generate performs a one-shot generation for subject and records it.
	Generate(ctx context.Context, subject string, p schema.Prompt) (schema.Response, error)
	// Stream runs a streaming session for subject, passing each event to
	// emit, and records the outcome once the session ends.
	Stream(ctx context.Context, subject string, p schema.Prompt, emit stream.Emitter) error

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Generation], error)

	Find(ctx context.Context, id uuid.UUID) (*Generation, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Archive opens the archived result document of a completed generation.
	Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	// Export renders the result of a completed generation as markdown or
	// HTML and returns the content with its media type.
	Export(ctx context.Context, id uuid.UUID, format string) ([]byte, string, error)
}
