package internal

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// User-visible chat strings. The product ships in Italian.
const (
	WelcomeText    = "Benvenuto nella chat RAG!"
	ErrorReplyText = "Errore nella richiesta."
	EmptyReplyText = "Errore nella risposta"
)

// ErrRequestInFlight is returned by Send while a previous request is
// still outstanding. Concurrent sends on one transcript are not
// supported; the caller keeps the input disabled instead.
var ErrRequestInFlight = errors.New("a request is already in flight")

// Chatter is the slice of the API client the session needs.
type Chatter interface {
	Chat(prompt string, opts *ChatOptions) (string, error)
}

// SessionController owns the active transcript and its session id,
// mirrors completed exchanges into the history store through the
// debounced autosaver, and drives the chat endpoint. All mutations go
// through the controller; the transcript is append-only except for the
// in-place placeholder replacement.
type SessionController struct {
	mu        sync.Mutex
	id        int64
	messages  []ChatMessage
	inFlight  bool
	entries   []HistoryEntry
	store     *Store
	autosaver *Autosaver
	client    Chatter
	opts      ChatOptions
}

// NewSession loads the history store and starts a fresh transcript with
// the welcome banner.
func NewSession(store *Store, client Chatter) *SessionController {
	s := &SessionController{
		id:       time.Now().UnixMilli(),
		messages: []ChatMessage{{Sender: SenderSystem, Text: WelcomeText}},
		entries:  store.Load(),
		store:    store,
		client:   client,
	}
	s.autosaver = NewAutosaver(s.persist)
	return s
}

// ID returns the stable id of the active session.
func (s *SessionController) ID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Messages returns a snapshot of the transcript.
func (s *SessionController) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Entries returns a snapshot of the loaded history collection.
func (s *SessionController) Entries() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SetChatOptions sets the retrieval overrides attached to every send.
func (s *SessionController) SetChatOptions(opts ChatOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

// Send submits a prompt: the user turn and a pending assistant
// placeholder are appended atomically, the request goes out, and the
// placeholder is replaced in place when the response or failure
// arrives. Returns the final assistant text.
func (s *SessionController) Send(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return "", ErrRequestInFlight
	}
	s.inFlight = true
	s.messages = append(s.messages,
		ChatMessage{Sender: SenderUser, Text: prompt},
		ChatMessage{Sender: SenderAssistant, Pending: true},
	)
	opts := s.opts
	s.mu.Unlock()

	s.autosaver.Arm()
	s.autosaver.Notify(true)

	answer, err := s.client.Chat(prompt, &opts)

	reply := answer
	if err != nil {
		LogWarn("Chat request failed: %v", err)
		reply = ErrorReplyText
	} else if strings.TrimSpace(answer) == "" {
		reply = EmptyReplyText
	}

	s.mu.Lock()
	s.resolvePlaceholder(reply)
	s.inFlight = false
	s.mu.Unlock()

	s.autosaver.Notify(false)
	return reply, err
}

// resolvePlaceholder rewrites the most recent pending assistant entry
// in place. Scanning from the end keeps the operation robust against
// index drift; the placeholder's position never changes.
func (s *SessionController) resolvePlaceholder(text string) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Sender == SenderAssistant && s.messages[i].Pending {
			s.messages[i].Text = text
			s.messages[i].Pending = false
			return
		}
	}
	LogWarn("No pending placeholder found for response")
}

// Reset persists the previous transcript synchronously, then starts a
// fresh session with a new id.
func (s *SessionController) Reset() {
	s.autosaver.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = time.Now().UnixMilli()
	s.messages = []ChatMessage{{Sender: SenderSystem, Text: WelcomeText}}
}

// LoadEntry persists the current transcript synchronously, then swaps
// in a saved conversation. The loaded session keeps the entry's id so
// further sends update the same history slot.
func (s *SessionController) LoadEntry(id int64) error {
	s.autosaver.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			s.id = e.ID
			s.messages = make([]ChatMessage, len(e.Messages))
			copy(s.messages, e.Messages)
			return nil
		}
	}
	return errors.New("conversation not found")
}

// DeleteEntry removes a saved conversation and persists the change. A
// missing id is a no-op.
func (s *SessionController) DeleteEntry(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.store.Remove(s.entries, id)
	if err := s.store.Save(s.entries); err != nil {
		LogWarn("Failed to persist history: %v", err)
	}
}

// Close drops any pending autosave. At most the last debounce window
// of the latest turn is lost.
func (s *SessionController) Close() {
	s.autosaver.Stop()
}

// persist mirrors the current transcript into the history store. A
// transcript without a user turn is never saved; the welcome banner on
// its own is not a conversation.
func (s *SessionController) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasUserTurn := false
	for _, m := range s.messages {
		if m.Sender == SenderUser {
			hasUserTurn = true
			break
		}
	}
	if !hasUserTurn {
		return
	}

	entry := ComputeEntry(s.messages, s.id)
	s.entries = s.store.Upsert(s.entries, entry)
	if err := s.store.Save(s.entries); err != nil {
		LogWarn("Failed to persist history: %v", err)
	}
}
