// Package memory holds the engine's per-user in-process state: bounded
// conversation histories, the session registry, and the selected-project
// registry.
//
// All three are explicit process-wide state created at service start and
// injected into the orchestrator; they are cleared only through explicit
// admin or test operations, never by expiry.
package memory

import "sync"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered, bounded message history. When the bound is
// exceeded, the oldest messages are dropped so exactly maxMessages
// most-recent entries remain. A maxMessages of zero means unbounded.
//
// Conversation is safe for concurrent use by multiple goroutines.
type Conversation struct {
	mu          sync.RWMutex
	messages    []Message
	maxMessages int
}

// NewConversation creates an empty conversation bounded to maxMessages.
func NewConversation(maxMessages int) *Conversation {
	if maxMessages < 0 {
		maxMessages = 0
	}
	return &Conversation{maxMessages: maxMessages}
}

// AddHumanMessage appends a user turn.
func (c *Conversation) AddHumanMessage(content string) {
	c.add(Message{Role: RoleHuman, Content: content})
}

// AddAIMessage appends an assistant turn.
func (c *Conversation) AddAIMessage(content string) {
	c.add(Message{Role: RoleAI, Content: content})
}

func (c *Conversation) add(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
	if c.maxMessages > 0 && len(c.messages) > c.maxMessages {
		// Copy instead of re-slicing so dropped messages are released.
		trimmed := make([]Message, c.maxMessages)
		copy(trimmed, c.messages[len(c.messages)-c.maxMessages:])
		c.messages = trimmed
	}
}

// Messages returns a copy of the history in insertion order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Count returns the number of retained messages.
func (c *Conversation) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear resets the history to empty.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
