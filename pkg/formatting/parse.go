package formatting

import (
	"regexp"
	"strings"
)

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// Unfence returns the JSON payload of model output that may be wrapped in a
// markdown code fence. An opening fence without a closing fence is stripped
// so that incomplete streaming output can still be read as a JSON prefix;
// a fence header without its newline yields an empty string.
// Content without a fence is returned trimmed.
func Unfence(content string) string {
	content = strings.TrimSpace(content)

	if matches := jsonBlockRegex.FindStringSubmatch(content); len(matches) >= 2 {
		return strings.TrimSpace(matches[1])
	}

	if rest, ok := strings.CutPrefix(content, "```"); ok {
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			return strings.TrimSpace(rest[i+1:])
		}
		return ""
	}

	return content
}
