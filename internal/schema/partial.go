package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Partial is an in-flight snapshot of a response. Every field is optional.
// The concrete variants are OutlinePartial, SummaryPartial, and
// HeadlinePartial.
type Partial interface {
	Type() PromptType
	partial()
}

// PartialSection is an outline section that may still be streaming.
type PartialSection struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type OutlinePartial struct {
	Sections []PartialSection `json:"sections,omitempty"`
}

type SummaryPartial struct {
	Summary *string `json:"summary,omitempty"`
}

type HeadlinePartial struct {
	Headline   *string  `json:"headline,omitempty"`
	Variations []string `json:"variations,omitempty"`
}

func (OutlinePartial) Type() PromptType  { return TypeOutline }
func (SummaryPartial) Type() PromptType  { return TypeSummary }
func (HeadlinePartial) Type() PromptType { return TypeHeadline }

func (OutlinePartial) partial()  {}
func (SummaryPartial) partial()  {}
func (HeadlinePartial) partial() {}

func (p OutlinePartial) MarshalJSON() ([]byte, error) {
	type alias OutlinePartial
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeOutline, alias(p)})
}

func (p SummaryPartial) MarshalJSON() ([]byte, error) {
	type alias SummaryPartial
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeSummary, alias(p)})
}

func (p HeadlinePartial) MarshalJSON() ([]byte, error) {
	type alias HeadlinePartial
	return json.Marshal(struct {
		Type PromptType `json:"type"`
		alias
	}{TypeHeadline, alias(p)})
}

// TryValidatePartial parses a possibly incomplete JSON snapshot. It returns
// (nil, nil) when the text is not yet syntactically valid JSON or does not
// yet carry its type tag, since both are expected while a response streams.
// A snapshot that parses but contradicts the partial shape for its tag
// fails with ErrSchemaViolation.
func TryValidatePartial(raw string) (Partial, error) {
	doc, err := parseObject(raw)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, nil
		}
		return nil, err
	}

	if _, present := doc["type"]; !present {
		return nil, nil
	}

	t, err := tagOf(doc)
	if err != nil {
		return nil, err
	}

	if err := check(partialValidators[t], doc); err != nil {
		return nil, err
	}

	return decodePartial(t, raw)
}

// RepairPartial closes truncated strings, arrays, and objects in raw before
// validating it as a partial snapshot, producing a preview for fragments
// that strict parsing would drop. Unrepairable text yields (nil, nil).
func RepairPartial(raw string) (Partial, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, nil
	}
	return TryValidatePartial(repaired)
}

// PartialMode selects how snapshots are parsed while streaming.
type PartialMode string

const (
	// PartialStrict only accepts snapshots that are complete JSON documents.
	PartialStrict PartialMode = "strict"
	// PartialRepair repairs truncated snapshots before validating them.
	PartialRepair PartialMode = "repair"
)

// ParsePartialMode validates s as a partial parsing mode.
func ParsePartialMode(s string) (PartialMode, error) {
	switch m := PartialMode(s); m {
	case PartialStrict, PartialRepair:
		return m, nil
	default:
		return "", fmt.Errorf("partial mode must be strict or repair: %q", s)
	}
}

// Parser returns the snapshot parser for the mode.
func (m PartialMode) Parser() func(string) (Partial, error) {
	if m == PartialRepair {
		return RepairPartial
	}
	return TryValidatePartial
}

func decodePartial(t PromptType, raw string) (Partial, error) {
	var (
		p   Partial
		err error
	)
	switch t {
	case TypeOutline:
		var v OutlinePartial
		err = codec.UnmarshalFromString(raw, &v)
		p = v
	case TypeSummary:
		var v SummaryPartial
		err = codec.UnmarshalFromString(raw, &v)
		p = v
	case TypeHeadline:
		var v HeadlinePartial
		err = codec.UnmarshalFromString(raw, &v)
		p = v
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return p, nil
}
