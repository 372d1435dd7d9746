package generations

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/JaimeStill/casestudio/internal/schema"
)

// Export formats.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render converts the stored result of g into the requested format and
// returns the content with its media type. Raw HTML in model output is
// omitted from the HTML rendering.
func Render(g *Generation, format string) ([]byte, string, error) {
	if format == "" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return nil, "", ErrInvalidFormat
	}

	if g.Status != StatusComplete || len(g.Result) == 0 {
		return nil, "", ErrNotComplete
	}

	res, err := schema.ValidateResponseFor(g.Type, string(g.Result))
	if err != nil {
		return nil, "", fmt.Errorf("stored result: %w", err)
	}

	md := res.Markdown()
	if format == FormatMarkdown {
		return []byte(md), "text/markdown; charset=utf-8", nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return nil, "", fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), "text/html; charset=utf-8", nil
}
