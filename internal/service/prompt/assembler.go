// Package prompt builds grounding prompts that instruct the model to
// answer strictly from supplied document content.
package prompt

import (
	"fmt"
	"strings"

	"docuchat/internal/domain/models"
)

const (
	// MinDocumentContent is the minimum content length (in characters) for
	// a document to participate in generation. Shorter documents are
	// refused (single mode) or excluded (multi mode).
	MinDocumentContent = 10

	// HistoryWindow is how many trailing conversation messages are
	// embedded verbatim in the prompt.
	HistoryWindow = 6
)

// Canned refusals for documents with insufficient content. These are
// returned as ordinary assistant text - the HTTP request itself succeeds.
const (
	RefusalInsufficientContent = "I cannot answer questions about this document because it does not contain enough readable content. Please upload a document with extractable text."
	RefusalNoValidDocuments    = "I cannot answer because none of the selected documents contain enough readable content. Please upload documents with extractable text."
)

// Partition splits documents into those with enough content to ground an
// answer and those excluded for being too short.
func Partition(docs []*models.Document) (valid, excluded []*models.Document) {
	for _, doc := range docs {
		if len(doc.Content) < MinDocumentContent {
			excluded = append(excluded, doc)
		} else {
			valid = append(valid, doc)
		}
	}
	return valid, excluded
}

// ExclusionWarning names the documents left out of a multi-document answer.
// It is prepended to the streamed response as ordinary assistant text.
func ExclusionWarning(excluded []*models.Document) string {
	names := make([]string, len(excluded))
	for i, doc := range excluded {
		names[i] = doc.Name
	}
	return fmt.Sprintf("Note: the following documents were excluded because they do not contain enough readable content: %s.\n\n",
		strings.Join(names, ", "))
}

// BuildSingle assembles the grounding prompt for a single-document
// conversation.
func BuildSingle(doc *models.Document, history []models.Message, question string) string {
	var b strings.Builder

	b.WriteString("You are a document analysis assistant. Answer questions strictly from the document content provided below.\n\n")
	fmt.Fprintf(&b, "Document: %s\n", doc.Name)
	b.WriteString("--- DOCUMENT START ---\n")
	b.WriteString(doc.Content)
	b.WriteString("\n--- DOCUMENT END ---\n\n")

	writeRules(&b, false)
	writeHistory(&b, history)

	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", question)
	return b.String()
}

// BuildMulti assembles the grounding prompt for a multi-document
// conversation. Each document is fenced with a boundary marker and labeled
// by index and name so answers can attribute claims to their source.
func BuildMulti(docs []*models.Document, history []models.Message, question string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a document analysis assistant. Answer questions strictly from the content of the %d documents provided below.\n\n", len(docs))
	for i, doc := range docs {
		fmt.Fprintf(&b, "=== Document %d: %s ===\n", i+1, doc.Name)
		b.WriteString(doc.Content)
		fmt.Fprintf(&b, "\n=== End of Document %d ===\n\n", i+1)
	}

	writeRules(&b, true)
	writeHistory(&b, history)

	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", question)
	return b.String()
}

func writeRules(b *strings.Builder, multi bool) {
	b.WriteString("Rules:\n")
	b.WriteString("1. Answer ONLY using information from the document content above.\n")
	b.WriteString("2. Quote or cite the text that supports your answer.\n")
	b.WriteString("3. If the answer is not in the documents, reply: \"I cannot answer this question because the information is not present in the document.\"\n")
	b.WriteString("4. If the question is ambiguous, ask for clarification instead of guessing.\n")
	if multi {
		b.WriteString("5. When a claim spans documents, attribute each part to its source document by name.\n")
	}
	b.WriteString("\n")
}

// writeHistory embeds the last HistoryWindow messages verbatim.
func writeHistory(b *strings.Builder, history []models.Message) {
	if len(history) == 0 {
		return
	}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	b.WriteString("Conversation so far:\n")
	for _, msg := range history {
		fmt.Fprintf(b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\n")
}
