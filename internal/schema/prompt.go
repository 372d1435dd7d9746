package schema

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Prompt is a validated generation request. The concrete variants are
// OutlinePrompt, SummaryPrompt, and HeadlinePrompt.
type Prompt interface {
	Type() PromptType
	prompt()
}

// OutlinePrompt requests an ordered set of case study sections.
type OutlinePrompt struct {
	Topic     string   `json:"topic"`
	Context   string   `json:"context,omitempty"`
	Audience  string   `json:"audience,omitempty"`
	KeyPoints []string `json:"keyPoints,omitempty"`
	Tone      Tone     `json:"tone,omitempty"`
}

// SummaryPrompt requests a condensed rendition of source material.
type SummaryPrompt struct {
	Source string `json:"source"`
	Length Length `json:"length,omitempty"`
	Tone   Tone   `json:"tone,omitempty"`
}

// HeadlinePrompt requests a headline and a set of alternative variations.
type HeadlinePrompt struct {
	Topic        string `json:"topic"`
	Audience     string `json:"audience,omitempty"`
	Style        Style  `json:"style,omitempty"`
	VariantCount int    `json:"variantCount,omitempty"`
}

func (OutlinePrompt) Type() PromptType  { return TypeOutline }
func (SummaryPrompt) Type() PromptType  { return TypeSummary }
func (HeadlinePrompt) Type() PromptType { return TypeHeadline }

func (OutlinePrompt) prompt()  {}
func (SummaryPrompt) prompt()  {}
func (HeadlinePrompt) prompt() {}

func (p OutlinePrompt) MarshalJSON() ([]byte, error) {
	type alias OutlinePrompt
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeOutline, alias(p)})
}

func (p SummaryPrompt) MarshalJSON() ([]byte, error) {
	type alias SummaryPrompt
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeSummary, alias(p)})
}

func (p HeadlinePrompt) MarshalJSON() ([]byte, error) {
	type alias HeadlinePrompt
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeHeadline, alias(p)})
}

// ValidatePrompt decodes raw JSON into one of the prompt variants, applying
// defaults for omitted fields. The document is checked against the input
// schema of its type; on failure the first violated field, in declaration
// order, is returned as a *ValidationError. Null values count as omitted and
// unknown fields are ignored.
func ValidatePrompt(raw []byte) (Prompt, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, invalid("", "prompt must be a json object")
	}
	maps.DeleteFunc(doc, func(_ string, v any) bool { return v == nil })

	tag, ok := doc["type"]
	if !ok {
		return nil, invalid("type", "is required")
	}
	name, _ := tag.(string)
	t := PromptType(name)

	in, ok := inputs[t]
	if !ok {
		return nil, invalid("type", "must be one of outline, summary, headline")
	}
	if !in.schema.Validate(doc).IsValid() {
		return nil, in.violation(doc)
	}

	return build(t, values(doc)), nil
}

// Validate re-checks a prompt constructed in code and returns it with
// defaults applied. Zero values of defaulted fields count as omitted.
func Validate(p Prompt) (Prompt, error) {
	if p == nil {
		return nil, invalid("", "prompt is required")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	return ValidatePrompt(raw)
}

func build(t PromptType, v values) Prompt {
	switch t {
	case TypeOutline:
		return OutlinePrompt{
			Topic:     v.str("topic"),
			Context:   v.str("context"),
			Audience:  v.str("audience"),
			KeyPoints: v.strs("keyPoints"),
			Tone:      enumOr(v, "tone", ToneNeutral),
		}
	case TypeSummary:
		return SummaryPrompt{
			Source: v.str("source"),
			Length: enumOr(v, "length", LengthMedium),
			Tone:   enumOr(v, "tone", ToneNeutral),
		}
	default:
		count := DefaultVariants
		if n, ok := v["variantCount"].(float64); ok {
			count = int(n)
		}
		return HeadlinePrompt{
			Topic:        v.str("topic"),
			Audience:     v.str("audience"),
			Style:        enumOr(v, "style", StyleInsightful),
			VariantCount: count,
		}
	}
}

// values reads fields from a document that already passed its input schema.
type values map[string]any

func (v values) str(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v values) strs(name string) []string {
	items, ok := v[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		out = append(out, s)
	}
	return out
}

func enumOr[T ~string](v values, name string, def T) T {
	if s := v.str(name); s != "" {
		return T(s)
	}
	return def
}
