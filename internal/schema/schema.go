// Package schema defines the prompt, response, partial snapshot, and stream
// event shapes for the three content generation kinds, along with the
// validation rules that govern each of them.
package schema

import (
	"encoding/json"
	"fmt"
	"slices"

	jsoniter "github.com/json-iterator/go"
)

// codec decodes model output. Wire types use encoding/json through their
// MarshalJSON/UnmarshalJSON methods.
var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// PromptType discriminates every prompt, response, partial, and event variant.
type PromptType string

const (
	TypeOutline  PromptType = "outline"
	TypeSummary  PromptType = "summary"
	TypeHeadline PromptType = "headline"
)

var promptTypes = []PromptType{
	TypeOutline,
	TypeSummary,
	TypeHeadline,
}

// PromptTypes returns the supported generation kinds.
func PromptTypes() []PromptType {
	return promptTypes
}

// Valid reports whether t is a supported generation kind.
func (t PromptType) Valid() bool {
	return slices.Contains(promptTypes, t)
}

// ParsePromptType validates s as a supported generation kind.
func ParsePromptType(s string) (PromptType, error) {
	t := PromptType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// UnmarshalJSON rejects unknown generation kinds.
func (t *PromptType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParsePromptType(raw)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Tone is the voice requested for outline and summary content.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	ToneFriendly   Tone = "friendly"
	ToneFormal     Tone = "formal"
	TonePersuasive Tone = "persuasive"
	ToneTechnical  Tone = "technical"
)

var tones = []Tone{ToneNeutral, ToneFriendly, ToneFormal, TonePersuasive, ToneTechnical}

// Length is the requested summary length.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

var lengths = []Length{LengthShort, LengthMedium, LengthLong}

// Style is the requested headline style.
type Style string

const (
	StylePunchy     Style = "punchy"
	StyleInsightful Style = "insightful"
	StyleFormal     Style = "formal"
	StylePlayful    Style = "playful"
)

var styles = []Style{StylePunchy, StyleInsightful, StyleFormal, StylePlayful}

// Input constraints.
const (
	MinTopicLength    = 3
	MinSourceLength   = 10
	MaxKeyPoints      = 10
	MinVariantCount   = 1
	MaxVariantCount   = 5
	DefaultVariants   = 3
	MinOutlineSection = 3
	MaxOutlineSection = 8
)

func enumStrings[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
