package internal

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Message senders. The welcome banner is a system message; everything
// else in a transcript alternates between user and assistant.
const (
	SenderSystem    = "system"
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatMessage is a single turn in a transcript. Pending marks an
// assistant placeholder whose response has not arrived yet; at most one
// pending assistant message exists per transcript at a time.
type ChatMessage struct {
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	Pending bool   `json:"pending,omitempty"`
}

// HistoryEntry is a saved snapshot of a past conversation. ID is
// assigned once at session start (unix milliseconds) and stays stable
// for the session's lifetime; CreatedAt is refreshed on every save.
type HistoryEntry struct {
	ID        int64         `json:"id"`
	CreatedAt int64         `json:"createdAt"`
	Preview   string        `json:"preview"`
	Messages  []ChatMessage `json:"messages"`
}

// GetCreatedAt returns CreatedAt as a time.Time
func (e *HistoryEntry) GetCreatedAt() time.Time {
	return time.Unix(0, e.CreatedAt*int64(time.Millisecond))
}

const (
	previewRuneLimit = 50
	previewFallback  = "Nuova conversazione"
)

// ComputeEntry derives a HistoryEntry from a transcript. The preview
// comes from the first user message, truncated to 50 runes with an
// ellipsis marker; a transcript with no user turn gets a fixed fallback.
func ComputeEntry(messages []ChatMessage, id int64) HistoryEntry {
	preview := previewFallback
	for _, msg := range messages {
		if msg.Sender == SenderUser {
			preview = truncatePreview(msg.Text)
			break
		}
	}

	snapshot := make([]ChatMessage, len(messages))
	copy(snapshot, messages)

	return HistoryEntry{
		ID:        id,
		CreatedAt: time.Now().UnixMilli(),
		Preview:   preview,
		Messages:  snapshot,
	}
}

func truncatePreview(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= previewRuneLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRuneLimit]) + "..."
}
