// Package chunker splits extracted document text into bounded, indexed
// segments for size-limited processing.
package chunker

import (
	"strings"

	"docuchat/internal/domain/models"
)

// DefaultWindow is the chunk size in words when none is configured.
const DefaultWindow = 500

// Chunker splits text into fixed word-count windows with no overlap.
type Chunker struct {
	window int
}

// New creates a chunker with the given word-count window. Non-positive
// windows fall back to DefaultWindow.
func New(window int) *Chunker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Chunker{window: window}
}

// Window returns the configured word-count window.
func (c *Chunker) Window() int {
	return c.window
}

// Split produces the ordered chunk sequence for a document's text.
// Each chunk is tagged with its 0-based index and the word offset range it
// covers (end exclusive). A document shorter than the window yields exactly
// one chunk; empty input yields zero chunks. Concatenating chunk contents
// in index order reconstructs the source text up to whitespace
// normalization.
func (c *Chunker) Split(documentID, text string) []models.DocumentChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]models.DocumentChunk, 0, (len(words)+c.window-1)/c.window)
	for start := 0; start < len(words); start += c.window {
		end := start + c.window
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, models.DocumentChunk{
			DocumentID: documentID,
			ChunkIndex: len(chunks),
			Content:    strings.Join(words[start:end], " "),
			Metadata: &models.ChunkMetadata{
				WordStart: start,
				WordEnd:   end,
			},
		})
	}

	return chunks
}
