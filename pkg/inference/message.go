package inference

import "sync"

// Role defines message roles in a conversation.
type Role string

const (
	// RoleSystem is for system instructions.
	RoleSystem Role = "system"

	// RoleUser is for user messages.
	RoleUser Role = "user"

	// RoleAssistant is for assistant responses.
	RoleAssistant Role = "assistant"
)

// Message is one text entry of the conversation history.
// Images are never kept in history; only the current request carries a frame.
type Message struct {
	Role    Role
	Content string
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// History is a bounded record of recent exchanges.
// A turn is one user message plus the assistant reply; only the last
// maxTurns turns are kept. It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	maxTurns int
	messages []Message
}

// NewHistory creates a history holding at most maxTurns exchanges.
// maxTurns <= 0 disables memory.
func NewHistory(maxTurns int) *History {
	return &History{maxTurns: maxTurns}
}

// Add records a completed exchange and evicts the oldest beyond the limit.
func (h *History) Add(user, assistant string) {
	if h.maxTurns <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, NewUserMessage(user), NewAssistantMessage(assistant))
	if excess := len(h.messages) - 2*h.maxTurns; excess > 0 {
		h.messages = append([]Message(nil), h.messages[excess:]...)
	}
}

// Messages returns a copy of the stored messages, oldest first.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.messages...)
}

// Len returns the number of stored exchanges.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages) / 2
}

// Reset forgets everything.
func (h *History) Reset() {
	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
}
