// Package generations serves structured generation over HTTP and records
// every outcome. Completed results are archived to blob storage.
package generations

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/casestudio/internal/schema"
)

// Mode identifies the transport a generation was served over.
type Mode string

const (
	ModeOnce   Mode = "once"
	ModeStream Mode = "stream"
)

// Status is the recorded outcome of a generation.
type Status string

const (
	StatusComplete Status = "complete"
	StatusError    Status = "error"
	StatusAborted  Status = "aborted"
)

// Generation is the stored record of one generation request.
type Generation struct {
	ID          uuid.UUID         `json:"id"`
	Subject     string            `json:"subject"`
	Type        schema.PromptType `json:"type"`
	Mode        Mode              `json:"mode"`
	Prompt      json.RawMessage   `json:"prompt"`
	Status      Status            `json:"status"`
	Result      json.RawMessage   `json:"result,omitempty"`
	Error       *string           `json:"error,omitempty"`
	StorageKey  *string           `json:"storage_key,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Outcome is what a finished generation reports to the recorder.
type Outcome struct {
	Subject   string
	Mode      Mode
	Prompt    schema.Prompt
	Result    schema.Response
	Status    Status
	Message   string
	StartedAt time.Time
}
