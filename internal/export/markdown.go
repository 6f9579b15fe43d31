package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ragis-group/ragis-cli/internal"
)

// MarkdownExporter exports a conversation in Markdown format
type MarkdownExporter struct{}

// Export writes the conversation as a Markdown document
func (e *MarkdownExporter) Export(entry *internal.HistoryEntry, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", entry.Preview)
	_, _ = fmt.Fprintf(w, "**Saved:** %s  \n", entry.GetCreatedAt().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(entry.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range entry.Messages {
		content := escapeMarkdown(msg.Text)
		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", msg.Sender, content)
		if i < len(entry.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside code fences
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
