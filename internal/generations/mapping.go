package generations

import (
	"net/url"
	"time"

	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/query"
	"github.com/JaimeStill/casestudio/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "generations", "g").
	Project("id", "ID").
	Project("subject", "Subject").
	Project("type", "Type").
	Project("mode", "Mode").
	Project("prompt", "Prompt").
	Project("status", "Status").
	Project("result", "Result").
	Project("error", "Error").
	Project("storage_key", "StorageKey").
	Project("created_at", "CreatedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for generation queries.
// Nil fields are ignored. Subject, Type, Mode, and Status use exact
// matching. Since and Until bound CreatedAt as a half-open range.
type Filters struct {
	Subject *string            `json:"subject,omitempty"`
	Type    *schema.PromptType `json:"type,omitempty"`
	Mode    *Mode              `json:"mode,omitempty"`
	Status  *Status            `json:"status,omitempty"`
	Since   *time.Time         `json:"since,omitempty"`
	Until   *time.Time         `json:"until,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Subject", f.Subject).
		WhereEquals("Type", f.Type).
		WhereEquals("Mode", f.Mode).
		WhereEquals("Status", f.Status).
		WhereRange("CreatedAt", f.Since, f.Until)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Times use RFC 3339.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("type"); s != "" {
		t := schema.PromptType(s)
		f.Type = &t
	}

	if m := values.Get("mode"); m != "" {
		mode := Mode(m)
		f.Mode = &mode
	}

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = &t
		}
	}

	if u := values.Get("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			f.Until = &t
		}
	}

	return f
}

func scanGeneration(s repository.Scanner) (Generation, error) {
	var (
		g      Generation
		prompt []byte
		result []byte
	)
	err := s.Scan(
		&g.ID,
		&g.Subject,
		&g.Type,
		&g.Mode,
		&prompt,
		&g.Status,
		&result,
		&g.Error,
		&g.StorageKey,
		&g.CreatedAt,
		&g.CompletedAt,
	)
	g.Prompt = prompt
	if len(result) > 0 {
		g.Result = result
	}
	return g, err
}
