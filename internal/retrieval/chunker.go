// Package retrieval indexes FAUST library documentation and recalls the
// sections most relevant to a request, for grounding generation prompts.
package retrieval

import (
	"strings"
)

// Chunk is one section of a markdown document, split at level-3 headings.
// FAUST library docs document one function per level-3 heading, so each
// chunk covers exactly one function.
type Chunk struct {
	Heading string
	Content string
}

// ChunkMarkdown splits a library doc into per-function chunks. Text before
// the first level-3 heading becomes a preamble chunk with the document's
// top heading (or empty) as its heading.
func ChunkMarkdown(src string) []Chunk {
	lines := strings.Split(src, "\n")

	var chunks []Chunk
	var heading string
	var body []string
	inFence := false

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if heading == "" && content == "" {
			body = body[:0]
			return
		}
		chunks = append(chunks, Chunk{Heading: heading, Content: content})
		body = body[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if !inFence && strings.HasPrefix(trimmed, "### ") && !strings.HasPrefix(trimmed, "#### ") {
			flush()
			heading = strings.TrimSpace(strings.TrimPrefix(trimmed, "### "))
			continue
		}
		body = append(body, line)
	}
	flush()
	return chunks
}
