package export

import (
	"fmt"
	"io"
	"time"

	"github.com/ragis-group/ragis-cli/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports a conversation in YAML format
type YAMLExporter struct{}

type yamlMessage struct {
	Sender string `yaml:"sender"`
	Text   string `yaml:"text"`
}

type yamlConversation struct {
	ID       int64         `yaml:"id"`
	SavedAt  string        `yaml:"saved_at"`
	Preview  string        `yaml:"preview"`
	Messages []yamlMessage `yaml:"messages"`
}

// Export writes the conversation as a YAML document
func (e *YAMLExporter) Export(entry *internal.HistoryEntry, w io.Writer) error {
	doc := yamlConversation{
		ID:      entry.ID,
		SavedAt: entry.GetCreatedAt().Format(time.RFC3339),
		Preview: entry.Preview,
	}
	for _, msg := range entry.Messages {
		doc.Messages = append(doc.Messages, yamlMessage{Sender: msg.Sender, Text: msg.Text})
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	return nil
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
