package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Response is a fully validated structured generation result. The concrete
// variants are OutlineResponse, SummaryResponse, and HeadlineResponse.
type Response interface {
	Type() PromptType
	// Markdown renders the result as a markdown document.
	Markdown() string
	response()
}

// Section is one entry of an outline.
type Section struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type OutlineResponse struct {
	Sections []Section `json:"sections"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type HeadlineResponse struct {
	Headline   string   `json:"headline"`
	Variations []string `json:"variations"`
}

func (OutlineResponse) Type() PromptType  { return TypeOutline }
func (SummaryResponse) Type() PromptType  { return TypeSummary }
func (HeadlineResponse) Type() PromptType { return TypeHeadline }

func (OutlineResponse) response()  {}
func (SummaryResponse) response()  {}
func (HeadlineResponse) response() {}

func (r OutlineResponse) MarshalJSON() ([]byte, error) {
	type alias OutlineResponse
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeOutline, alias(r)})
}

func (r SummaryResponse) MarshalJSON() ([]byte, error) {
	type alias SummaryResponse
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeSummary, alias(r)})
}

func (r HeadlineResponse) MarshalJSON() ([]byte, error) {
	type alias HeadlineResponse
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeHeadline, alias(r)})
}

// ValidateResponse parses a completed JSON payload and checks it against the
// full response schema for its declared type. Text that is not JSON fails
// with ErrMalformed; JSON with a missing or unknown tag, or a shape that does
// not match its tag, fails with ErrSchemaViolation.
func ValidateResponse(raw string) (Response, error) {
	doc, err := parseObject(raw)
	if err != nil {
		return nil, err
	}

	t, err := tagOf(doc)
	if err != nil {
		return nil, err
	}

	if err := check(fullValidators[t], doc); err != nil {
		return nil, err
	}

	return decodeResponse(t, raw)
}

// ValidateResponseFor validates raw and additionally requires its tag to
// match expect.
func ValidateResponseFor(expect PromptType, raw string) (Response, error) {
	r, err := ValidateResponse(raw)
	if err != nil {
		return nil, err
	}
	if r.Type() != expect {
		return nil, fmt.Errorf("%w: type %q does not match %q", ErrSchemaViolation, r.Type(), expect)
	}
	return r, nil
}

func decodeResponse(t PromptType, raw string) (Response, error) {
	var (
		r   Response
		err error
	)
	switch t {
	case TypeOutline:
		var v OutlineResponse
		err = codec.UnmarshalFromString(raw, &v)
		r = v
	case TypeSummary:
		var v SummaryResponse
		err = codec.UnmarshalFromString(raw, &v)
		r = v
	case TypeHeadline:
		var v HeadlineResponse
		err = codec.UnmarshalFromString(raw, &v)
		r = v
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return r, nil
}

func parseObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty text", ErrMalformed)
	}

	var doc any
	if err := codec.UnmarshalFromString(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a json object", ErrSchemaViolation)
	}
	return obj, nil
}

func tagOf(doc map[string]any) (PromptType, error) {
	tag, ok := doc["type"].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing type", ErrSchemaViolation)
	}
	t := PromptType(tag)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrSchemaViolation, tag)
	}
	return t, nil
}

// Metadata summarizes r for telemetry: the encoded size in bytes and the
// count that characterizes its type.
func Metadata(r Response) map[string]any {
	meta := map[string]any{}
	if data, err := json.Marshal(r); err == nil {
		meta["size"] = len(data)
	}

	switch v := r.(type) {
	case OutlineResponse:
		meta["sections"] = len(v.Sections)
	case SummaryResponse:
		meta["summary_length"] = len(v.Summary)
	case HeadlineResponse:
		meta["variations"] = len(v.Variations)
	}
	return meta
}
