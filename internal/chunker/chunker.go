package chunker

import "strings"

// Separators ordered from "best" to "worst" for semantic meaning. The split
// point is searched only in the back half of the window so the overlap region
// can never swallow an entire chunk.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split cuts text into chunks of at most size characters. Each chunk after
// the first begins with exactly the last overlap characters of its
// predecessor. Deterministic; empty input yields no chunks.
func Split(text string, size int, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 2
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	pos := 0
	for {
		end := pos + size
		if end >= len(text) {
			chunks = append(chunks, text[pos:])
			return chunks
		}

		cut := splitPoint(text[pos:end])
		chunks = append(chunks, text[pos:pos+cut])

		next := pos + cut - overlap
		if next <= pos {
			// Separator landed inside the overlap region, fall back to a
			// hard cut so the walk always advances.
			chunks[len(chunks)-1] = text[pos:end]
			next = end - overlap
		}
		pos = next
	}
}

// splitPoint returns the offset to cut a full-size window at, preferring
// paragraph, then line, then sentence, then word boundaries. The cut keeps
// the separator with the leading chunk.
func splitPoint(window string) int {
	floor := len(window) / 2
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > floor {
			return idx + len(sep)
		}
	}
	return len(window)
}
