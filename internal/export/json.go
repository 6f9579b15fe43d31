package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ragis-group/ragis-cli/internal"
)

// JSONExporter exports a conversation as a single JSON document
type JSONExporter struct{}

// Export writes the conversation as indented JSON
func (e *JSONExporter) Export(entry *internal.HistoryEntry, w io.Writer) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	_, _ = io.WriteString(w, "\n")
	return nil
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
