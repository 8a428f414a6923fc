package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"kb-engine/internal/domain/kbmodel"
)

// SanitizeRichText strips markup from a pasted rich-text blob, leaving plain
// text for the chunker. Block-level elements become paragraph breaks. An
// input that reduces to nothing is ErrEmptyContent, not an empty success.
func SanitizeRichText(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", kbmodel.ErrEmptyContent
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// html.Parse almost never fails; treat the blob as already-plain text
		if text := strings.TrimSpace(raw); text != "" {
			return text, nil
		}
		return "", kbmodel.ErrEmptyContent
	}

	var b strings.Builder
	collectText(doc, &b)

	text := collapseBlankLines(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: rich text reduced to nothing", kbmodel.ErrEmptyContent)
	}
	return text, nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteString("\n")
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n\n")
}
