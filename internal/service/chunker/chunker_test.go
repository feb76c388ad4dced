package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplitWindowing(t *testing.T) {
	tests := []struct {
		name       string
		window     int
		wordCount  int
		wantChunks int
	}{
		{
			name:       "empty input yields zero chunks",
			window:     500,
			wordCount:  0,
			wantChunks: 0,
		},
		{
			name:       "shorter than window yields one chunk",
			window:     500,
			wordCount:  12,
			wantChunks: 1,
		},
		{
			name:       "exactly one window",
			window:     10,
			wordCount:  10,
			wantChunks: 1,
		},
		{
			name:       "one word over the window",
			window:     10,
			wordCount:  11,
			wantChunks: 2,
		},
		{
			name:       "several full windows",
			window:     10,
			wordCount:  30,
			wantChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.window)
			chunks := c.Split("doc-1", makeWords(tt.wordCount))

			if len(chunks) != tt.wantChunks {
				t.Fatalf("got %d chunks, want %d", len(chunks), tt.wantChunks)
			}

			// Indices must be contiguous 0..N-1
			for i, chunk := range chunks {
				if chunk.ChunkIndex != i {
					t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
				}
				if chunk.DocumentID != "doc-1" {
					t.Errorf("chunk %d has document id %q", i, chunk.DocumentID)
				}
			}
		})
	}
}

func TestSplitReconstructsContent(t *testing.T) {
	// Concatenating chunks in index order must reproduce the source text
	// up to whitespace normalization.
	texts := []string{
		"single short text",
		makeWords(499),
		makeWords(500),
		makeWords(501),
		makeWords(1750),
		"text   with\n\nirregular\t\twhitespace  between words",
	}

	c := New(500)
	for _, text := range texts {
		chunks := c.Split("doc-1", text)

		parts := make([]string, len(chunks))
		for i, chunk := range chunks {
			parts[i] = chunk.Content
		}
		got := strings.Join(parts, " ")
		want := strings.Join(strings.Fields(text), " ")

		if got != want {
			t.Errorf("reconstruction mismatch for %d-word input", len(strings.Fields(text)))
		}
	}
}

func TestSplitWordOffsets(t *testing.T) {
	c := New(10)
	chunks := c.Split("doc-1", makeWords(25))

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	// Offset ranges must be contiguous and cover every word exactly once
	next := 0
	for i, chunk := range chunks {
		if chunk.Metadata == nil {
			t.Fatalf("chunk %d has no metadata", i)
		}
		if chunk.Metadata.WordStart != next {
			t.Errorf("chunk %d starts at %d, want %d", i, chunk.Metadata.WordStart, next)
		}
		words := len(strings.Fields(chunk.Content))
		if chunk.Metadata.WordEnd-chunk.Metadata.WordStart != words {
			t.Errorf("chunk %d offset span %d does not match %d words",
				i, chunk.Metadata.WordEnd-chunk.Metadata.WordStart, words)
		}
		next = chunk.Metadata.WordEnd
	}
	if next != 25 {
		t.Errorf("offsets cover %d words, want 25", next)
	}
}

func TestNewFallsBackToDefaultWindow(t *testing.T) {
	if got := New(0).Window(); got != DefaultWindow {
		t.Errorf("New(0).Window() = %d, want %d", got, DefaultWindow)
	}
	if got := New(-5).Window(); got != DefaultWindow {
		t.Errorf("New(-5).Window() = %d, want %d", got, DefaultWindow)
	}
}

func makeWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}
