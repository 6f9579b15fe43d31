package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ragis-group/ragis-cli/internal"
)

// JSONLExporter exports a conversation in JSONL format (one message per line)
type JSONLExporter struct{}

// Export writes one JSON object per message
func (e *JSONLExporter) Export(entry *internal.HistoryEntry, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range entry.Messages {
		obj := map[string]interface{}{
			"sender": msg.Sender,
			"text":   msg.Text,
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
