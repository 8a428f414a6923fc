package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractDoc reads a .docx, .odt, .rtf or plaintext file. cat flattens
// paragraphs and table rows into one text body.
func (e *Extractor) extractDoc(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return strings.TrimSpace(text), nil
}
