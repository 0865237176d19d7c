package deck

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// prose renders slide bodies. Goldmark's default renderer drops raw HTML,
// so authored text cannot inject markup into the deck shell.
var prose = goldmark.New()

// proseHTML converts a slide body from Markdown to HTML.
func proseHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := prose.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering slide body: %w", err)
	}
	return buf.String(), nil
}
