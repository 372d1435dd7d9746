package prompts

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/casestudio/internal/schema"
)

// Render serializes the fields of p into the user prompt text. Optional
// fields that are absent or blank after trimming are omitted, so the output
// depends only on the values that carry content. Pointer variants are
// rendered like their values; a nil prompt fails with ErrUnsupportedPrompt.
func Render(p schema.Prompt) (string, error) {
	switch v := p.(type) {
	case *schema.OutlinePrompt:
		if v != nil {
			return Render(*v)
		}
	case *schema.SummaryPrompt:
		if v != nil {
			return Render(*v)
		}
	case *schema.HeadlinePrompt:
		if v != nil {
			return Render(*v)
		}
	}

	var b strings.Builder

	switch v := p.(type) {
	case schema.OutlinePrompt:
		line(&b, "Topic", v.Topic)
		line(&b, "Context", v.Context)
		line(&b, "Audience", v.Audience)
		list(&b, "Key points", v.KeyPoints)
		line(&b, "Tone", string(v.Tone))
	case schema.SummaryPrompt:
		line(&b, "Length", string(v.Length))
		line(&b, "Tone", string(v.Tone))
		if src := strings.TrimSpace(v.Source); src != "" {
			b.WriteString("Source:\n")
			b.WriteString(src)
			b.WriteString("\n")
		}
	case schema.HeadlinePrompt:
		line(&b, "Topic", v.Topic)
		line(&b, "Audience", v.Audience)
		line(&b, "Style", string(v.Style))
		line(&b, "Variations", fmt.Sprintf("%d", v.VariantCount))
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedPrompt, p)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func line(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func list(b *strings.Builder, label string, values []string) {
	items := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
