package api

import (
	"github.com/JaimeStill/casestudio/internal/config"
	"github.com/JaimeStill/casestudio/pkg/openapi"
)

var (
	promptTypes = []any{"outline", "summary", "headline"}
	tones       = []any{"neutral", "friendly", "formal", "persuasive", "technical"}
)

// NewSpec builds the OpenAPI document describing the prompt and generation
// endpoints served under the API base path.
func NewSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(&cfg.API.OpenAPI, cfg.Version)
	if len(spec.Servers) == 0 {
		spec.AddServer(cfg.API.BasePath)
	}

	spec.Components.AddSchemas(schemas())
	spec.AddPaths(promptPaths())
	spec.AddPaths(generationPaths())

	return spec
}

func errorResponses(codes ...int) map[int]*openapi.Response {
	names := map[int]string{
		400: "BadRequest",
		401: "Unauthorized",
		404: "NotFound",
		409: "Conflict",
		429: "TooManyRequests",
		502: "BadGateway",
	}
	out := make(map[int]*openapi.Response, len(codes))
	for _, c := range codes {
		out[c] = openapi.ResponseRef(names[c])
	}
	return out
}

func with(responses map[int]*openapi.Response, code int, r *openapi.Response) map[int]*openapi.Response {
	responses[code] = r
	return responses
}

func promptPaths() map[string]*openapi.PathItem {
	tags := []string{"Prompts"}
	id := openapi.PathParam("id", "Prompt ID")
	typ := openapi.EnumPathParam("type", "Generation type", "outline", "summary", "headline")

	return map[string]*openapi.PathItem{
		"/prompts": {
			Get: &openapi.Operation{
				Summary: "List instruction overrides",
				Tags:    tags,
				Parameters: []*openapi.Parameter{
					openapi.QueryParam("page", "integer", "Page number", false),
					openapi.QueryParam("page_size", "integer", "Results per page", false),
					openapi.QueryParam("search", "string", "Search by name", false),
					openapi.QueryParam("sort", "string", "Sort fields", false),
					openapi.QueryParam("type", "string", "Filter by generation type", false),
					openapi.QueryParam("active", "boolean", "Filter by active state", false),
				},
				Responses: with(errorResponses(401), 200, openapi.ResponseJSON("Prompt page", "PromptPage")),
			},
			Post: &openapi.Operation{
				Summary:     "Create an instruction override",
				Tags:        tags,
				RequestBody: openapi.RequestBodyJSON("PromptCommand", true),
				Responses:   with(errorResponses(400, 401, 409), 201, openapi.ResponseJSON("Created prompt", "PromptOverride")),
			},
		},
		"/prompts/types": {
			Get: &openapi.Operation{
				Summary:   "List generation types",
				Tags:      tags,
				Responses: with(errorResponses(401), 200, &openapi.Response{Description: "Generation types"}),
			},
		},
		"/prompts/search": {
			Post: &openapi.Operation{
				Summary:     "Search instruction overrides",
				Tags:        tags,
				RequestBody: openapi.RequestBodyJSON("PageRequest", true),
				Responses:   with(errorResponses(400, 401), 200, openapi.ResponseJSON("Prompt page", "PromptPage")),
			},
		},
		"/prompts/{id}": {
			Get: &openapi.Operation{
				Summary:    "Find an instruction override",
				Tags:       tags,
				Parameters: []*openapi.Parameter{id},
				Responses:  with(errorResponses(400, 401, 404), 200, openapi.ResponseJSON("Prompt", "PromptOverride")),
			},
			Put: &openapi.Operation{
				Summary:     "Update an instruction override",
				Tags:        tags,
				Parameters:  []*openapi.Parameter{id},
				RequestBody: openapi.RequestBodyJSON("PromptCommand", true),
				Responses:   with(errorResponses(400, 401, 404, 409), 200, openapi.ResponseJSON("Updated prompt", "PromptOverride")),
			},
			Delete: &openapi.Operation{
				Summary:    "Delete an instruction override",
				Tags:       tags,
				Parameters: []*openapi.Parameter{id},
				Responses:  with(errorResponses(400, 401, 404), 204, &openapi.Response{Description: "Deleted"}),
			},
		},
		"/prompts/{id}/activate": {
			Post: &openapi.Operation{
				Summary:     "Activate an instruction override",
				Description: "Deactivates any other active override for the same generation type.",
				Tags:        tags,
				Parameters:  []*openapi.Parameter{id},
				Responses:   with(errorResponses(400, 401, 404), 200, openapi.ResponseJSON("Activated prompt", "PromptOverride")),
			},
		},
		"/prompts/{id}/deactivate": {
			Post: &openapi.Operation{
				Summary:    "Deactivate an instruction override",
				Tags:       tags,
				Parameters: []*openapi.Parameter{id},
				Responses:  with(errorResponses(400, 401, 404), 200, openapi.ResponseJSON("Deactivated prompt", "PromptOverride")),
			},
		},
		"/prompts/{type}/instructions": {
			Get: &openapi.Operation{
				Summary:    "Effective instructions for a generation type",
				Tags:       tags,
				Parameters: []*openapi.Parameter{typ},
				Responses:  with(errorResponses(400, 401), 200, openapi.ResponseJSON("Instructions", "Instructions")),
			},
		},
		"/prompts/{type}/spec": {
			Get: &openapi.Operation{
				Summary:    "Hard-coded instruction baseline for a generation type",
				Tags:       tags,
				Parameters: []*openapi.Parameter{typ},
				Responses:  with(errorResponses(400, 401), 200, openapi.ResponseJSON("Instructions", "Instructions")),
			},
		},
	}
}

func generationPaths() map[string]*openapi.PathItem {
	tags := []string{"Generations"}
	id := openapi.PathParam("id", "Generation ID")

	return map[string]*openapi.PathItem{
		"/generations": {
			Get: &openapi.Operation{
				Summary: "List the caller's generations",
				Tags:    tags,
				Parameters: []*openapi.Parameter{
					openapi.QueryParam("page", "integer", "Page number", false),
					openapi.QueryParam("page_size", "integer", "Results per page", false),
					openapi.QueryParam("sort", "string", "Sort fields", false),
					openapi.QueryParam("type", "string", "Filter by generation type", false),
					openapi.QueryParam("mode", "string", "Filter by mode (once, stream)", false),
					openapi.QueryParam("status", "string", "Filter by status", false),
					openapi.QueryParam("since", "string", "Created at or after (RFC 3339)", false),
					openapi.QueryParam("until", "string", "Created at or before (RFC 3339)", false),
				},
				Responses: with(errorResponses(401), 200, openapi.ResponseJSON("Generation page", "GenerationPage")),
			},
			Post: &openapi.Operation{
				Summary:     "Generate a result in one shot",
				Tags:        tags,
				RequestBody: openapi.RequestBodyJSON("Prompt", true),
				Responses:   with(errorResponses(400, 401, 429, 502), 200, openapi.ResponseJSON("Validated result", "Result")),
			},
		},
		"/generations/stream": {
			Post: &openapi.Operation{
				Summary:     "Stream a generation as server-sent events",
				Description: "Emits in-progress snapshots followed by exactly one complete or error event.",
				Tags:        tags,
				RequestBody: openapi.RequestBodyJSON("Prompt", true),
				Responses:   with(errorResponses(400, 401, 429), 200, openapi.ResponseEventStream("Generation events", "Event")),
			},
		},
		"/generations/subscribe": {
			Get: &openapi.Operation{
				Summary:     "Stream a generation over a WebSocket",
				Description: "The first client frame carries the prompt. Each server frame is an Event.",
				Tags:        tags,
				Responses:   with(errorResponses(401, 429), 101, &openapi.Response{Description: "Switching protocols"}),
			},
		},
		"/generations/search": {
			Post: &openapi.Operation{
				Summary:     "Search the caller's generations",
				Tags:        tags,
				RequestBody: openapi.RequestBodyJSON("PageRequest", true),
				Responses:   with(errorResponses(400, 401), 200, openapi.ResponseJSON("Generation page", "GenerationPage")),
			},
		},
		"/generations/{id}": {
			Get: &openapi.Operation{
				Summary:    "Find a generation",
				Tags:       tags,
				Parameters: []*openapi.Parameter{id},
				Responses:  with(errorResponses(400, 401, 404), 200, openapi.ResponseJSON("Generation", "Generation")),
			},
			Delete: &openapi.Operation{
				Summary:    "Delete a generation and its archived result",
				Tags:       tags,
				Parameters: []*openapi.Parameter{id},
				Responses:  with(errorResponses(400, 401, 404), 204, &openapi.Response{Description: "Deleted"}),
			},
		},
		"/generations/{id}/export": {
			Get: &openapi.Operation{
				Summary: "Render a completed generation as Markdown or HTML",
				Tags:    tags,
				Parameters: []*openapi.Parameter{
					id,
					openapi.QueryParam("format", "string", "md (default) or html", false),
				},
				Responses: with(errorResponses(400, 401, 404, 409), 200, &openapi.Response{Description: "Rendered document"}),
			},
		},
		"/generations/{id}/archive": {
			Get: &openapi.Operation{
				Summary:    "Download the archived result document",
				Tags:       tags,
				Parameters: []*openapi.Parameter{id},
				Responses:  with(errorResponses(400, 401, 404, 409), 200, openapi.ResponseJSON("Archived result", "Result")),
			},
		},
	}
}

func schemas() map[string]*openapi.Schema {
	minTopic, minSource := 3, 10
	minVariants, maxVariants := 1.0, 5.0

	return map[string]*openapi.Schema{
		"Prompt": {
			Type:        "object",
			Description: "Generation prompt. The type field selects outline, summary, or headline.",
			Required:    []string{"type"},
			Properties: map[string]*openapi.Schema{
				"type":         {Type: "string", Enum: promptTypes},
				"topic":        {Type: "string", MinLength: &minTopic, Description: "outline, headline"},
				"context":      {Type: "string", Description: "outline"},
				"audience":     {Type: "string", Description: "outline, headline"},
				"keyPoints":    {Type: "array", Items: &openapi.Schema{Type: "string"}, Description: "outline"},
				"source":       {Type: "string", MinLength: &minSource, Description: "summary"},
				"length":       {Type: "string", Enum: []any{"short", "medium", "long"}, Description: "summary"},
				"tone":         {Type: "string", Enum: tones, Description: "outline, summary"},
				"style":        {Type: "string", Enum: []any{"punchy", "insightful", "formal", "playful"}, Description: "headline"},
				"variantCount": {Type: "integer", Minimum: &minVariants, Maximum: &maxVariants, Default: 3, Description: "headline"},
			},
		},
		"Result": {
			Type:        "object",
			Description: "Validated generation result tagged with its type.",
			Required:    []string{"type"},
			Properties: map[string]*openapi.Schema{
				"type":       {Type: "string", Enum: promptTypes},
				"sections":   {Type: "array", Items: &openapi.Schema{Type: "object"}, Description: "outline"},
				"summary":    {Type: "string", Description: "summary"},
				"headline":   {Type: "string", Description: "headline"},
				"variations": {Type: "array", Items: &openapi.Schema{Type: "string"}, Description: "headline"},
			},
		},
		"Event": {
			Type:     "object",
			Required: []string{"status", "type"},
			Properties: map[string]*openapi.Schema{
				"status":   {Type: "string", Enum: []any{"in-progress", "complete", "error"}},
				"type":     {Type: "string", Enum: promptTypes},
				"snapshot": {Type: "object", Description: "Partial result, in-progress only"},
				"result":   {Ref: "#/components/schemas/Result"},
				"message":  {Type: "string"},
				"reason":   {Type: "string", Enum: []any{"failed", "aborted", "timeout"}},
			},
		},
		"Generation": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"subject":      {Type: "string"},
				"type":         {Type: "string", Enum: promptTypes},
				"mode":         {Type: "string", Enum: []any{"once", "stream"}},
				"prompt":       {Ref: "#/components/schemas/Prompt"},
				"status":       {Type: "string", Enum: []any{"complete", "error", "aborted"}},
				"result":       {Ref: "#/components/schemas/Result"},
				"error":        {Type: "string"},
				"storage_key":  {Type: "string"},
				"created_at":   {Type: "string", Format: "date-time"},
				"completed_at": {Type: "string", Format: "date-time"},
			},
		},
		"GenerationPage": page("Generation"),
		"PromptCommand": {
			Type:     "object",
			Required: []string{"name", "type", "instructions"},
			Properties: map[string]*openapi.Schema{
				"name":         {Type: "string"},
				"type":         {Type: "string", Enum: promptTypes},
				"instructions": {Type: "string"},
				"description":  {Type: "string"},
			},
		},
		"PromptOverride": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"name":         {Type: "string"},
				"type":         {Type: "string", Enum: promptTypes},
				"instructions": {Type: "string"},
				"description":  {Type: "string"},
				"active":       {Type: "boolean"},
			},
		},
		"PromptPage": page("PromptOverride"),
		"Instructions": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"type":    {Type: "string", Enum: promptTypes},
				"content": {Type: "string"},
			},
		},
	}
}

func page(item string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef(item)},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
			"has_next":    {Type: "boolean"},
		},
	}
}
