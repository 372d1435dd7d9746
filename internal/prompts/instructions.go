package prompts

import "github.com/JaimeStill/casestudio/internal/schema"

const preamble = `You are a senior content strategist helping a software company write customer case studies.

Write for busy readers evaluating whether a product solved a problem like theirs. Favor concrete outcomes, named roles, and measurable results over generic praise. Never invent statistics, customer names, or quotes that are not present in the request; when a detail is missing, write around it instead of guessing.`

const outlineGuidance = `Produce an outline for a case study about the requested topic.

Order the sections the way the story should be told, typically moving from the customer's situation through the challenge, the solution, the rollout, and the measurable results. Each section title is a short heading. Each description states in one or two sentences what the section should cover so a writer can draft it without further research. When key points are supplied, make sure every one of them is covered by at least one section.`

const summaryGuidance = `Summarize the supplied source material as a case study summary.

Preserve the facts, figures, and sequence of events from the source. Drop filler, repetition, and marketing language. A short summary is two or three sentences, a medium summary is a single paragraph, and a long summary is up to three paragraphs.`

const headlineGuidance = `Write a headline for a case study about the requested topic, plus alternative variations.

The headline leads with the outcome the customer achieved. Variations explore different angles on the same story rather than rewording the same sentence. Produce exactly the requested number of variations. Match the requested style: punchy headlines are short and energetic, insightful headlines surface the lesson learned, formal headlines suit executive audiences, and playful headlines may use wordplay.`

var guidance = map[schema.PromptType]string{
	schema.TypeOutline:  outlineGuidance,
	schema.TypeSummary:  summaryGuidance,
	schema.TypeHeadline: headlineGuidance,
}

// Instructions returns the hardcoded default instructions for a prompt type:
// the shared preamble followed by the type-specific guidance.
// Returns ErrInvalidType if the type is not recognized.
func Instructions(t schema.PromptType) (string, error) {
	text, ok := guidance[t]
	if !ok {
		return "", ErrInvalidType
	}
	return preamble + "\n\n" + text, nil
}
