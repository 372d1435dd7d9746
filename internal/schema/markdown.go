package schema

import (
	"fmt"
	"strings"
)

func (r OutlineResponse) Markdown() string {
	var b strings.Builder
	b.WriteString("# Outline\n")
	for i, s := range r.Sections {
		fmt.Fprintf(&b, "\n## %d. %s\n\n%s\n", i+1, s.Title, s.Description)
	}
	return b.String()
}

func (r SummaryResponse) Markdown() string {
	return "# Summary\n\n" + r.Summary + "\n"
}

func (r HeadlineResponse) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", r.Headline)
	if len(r.Variations) > 0 {
		b.WriteString("\n## Variations\n\n")
		for _, v := range r.Variations {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}
	return b.String()
}
